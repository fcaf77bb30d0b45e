package cache

import "time"

const (
	// Snapshot of the active promotion catalog.
	KeyPromotionCatalog = "promotions:catalog:active"

	// Dedup of consumed events: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var TTLDedup = 48 * time.Hour
