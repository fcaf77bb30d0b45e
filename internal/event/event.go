package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	TypeOrderItemAdded   = "OrderItemAdded"
	TypeOrderItemUpdated = "OrderItemUpdated"
	TypeOrderItemRemoved = "OrderItemRemoved"
	TypeOrderFinalized   = "OrderFinalized"

	TypeVariantRestocked = "VariantRestocked"
	TypeKegRefilled      = "KegRefilled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id for order events
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, producer, correlationID string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

func UnwrapPayload[T any](env *Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return t, nil
}

// Publisher sends envelopes to the event stream. Implementations must be safe
// for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, env *Envelope) error
}

type MessageWriter interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// BrokerPublisher encodes envelopes as JSON messages keyed by correlation id,
// so all events of one order land on the same partition in order.
type BrokerPublisher struct {
	w MessageWriter
}

func NewBrokerPublisher(w MessageWriter) *BrokerPublisher {
	return &BrokerPublisher{w: w}
}

func (p *BrokerPublisher) Publish(ctx context.Context, env *Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.w.Publish(ctx, []byte(env.CorrelationID), value,
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(fmt.Sprint(env.EventVersion))},
	)
}
