package promotion

import (
	"context"

	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// ListActive returns the raw rows of every promotion flagged active.
	ListActive(ctx context.Context) ([]model.Promotion, error)
	GetByID(ctx context.Context, q sqlx.ExtContext, id string) (*model.Promotion, error)

	// IncrementUsage adds one use unless max_uses is already reached.
	IncrementUsage(ctx context.Context, q sqlx.ExtContext, id string) error
}
