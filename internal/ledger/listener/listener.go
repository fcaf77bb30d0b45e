package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/fekuna/omnipos-order-service/internal/cache"
	"github.com/fekuna/omnipos-order-service/internal/event"
	"github.com/fekuna/omnipos-order-service/internal/ledger"
	"github.com/fekuna/omnipos-order-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	consumerName = "restock-listener"
	// Attempts per event when the ledger reports a retryable conflict.
	maxApplyAttempts = 3
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Deduper records event ids already applied. *cache.RedisClient satisfies it.
type Deduper interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unmark(ctx context.Context, key string) error
}

type RestockListener struct {
	consumer   MessageReader
	uc         ledger.UseCase
	dedup      Deduper
	logger     logger.ZapLogger
	backoff    time.Duration
	// retryDelay is the pause between attempts on a retryable conflict.
	retryDelay time.Duration
}

// NewRestockListener wires the consumer to the ledger usecase. dedup may be nil,
// in which case redelivered events are applied again.
func NewRestockListener(consumer MessageReader, uc ledger.UseCase, dedup Deduper, logger logger.ZapLogger) *RestockListener {
	return &RestockListener{
		consumer:   consumer,
		uc:         uc,
		dedup:      dedup,
		logger:     logger,
		backoff:    time.Second,
		retryDelay: 100 * time.Millisecond,
	}
}

func (l *RestockListener) Start(ctx context.Context) {
	l.logger.Info("Starting Restock Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Restock Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				// Don't log context canceled error as error
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(l.backoff)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

func (l *RestockListener) processMessage(ctx context.Context, value []byte) {
	var env event.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	var apply func(context.Context, *event.Envelope) error
	switch env.EventType {
	case event.TypeVariantRestocked:
		apply = l.applyRestock
	case event.TypeKegRefilled:
		apply = l.applyRefill
	default:
		return
	}

	key := ""
	if l.dedup != nil && env.EventID != "" {
		key = fmt.Sprintf(cache.KeyDedup, consumerName, env.EventID)
		first, err := l.dedup.MarkOnce(ctx, key, cache.TTLDedup)
		if err != nil {
			l.logger.Warn("dedup check failed, applying event anyway",
				zap.String("event_id", env.EventID), zap.Error(err))
			key = ""
		} else if !first {
			l.logger.Debug("skipping duplicate event", zap.String("event_id", env.EventID))
			return
		}
	}

	err := l.applyWithRetry(ctx, apply, &env)
	if err == nil {
		return
	}
	l.logger.Error("Failed to apply restock event",
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType),
		zap.Error(err),
	)
	// A failed event must not stay marked, or its redelivery would be dropped.
	if key != "" {
		if uerr := l.dedup.Unmark(context.WithoutCancel(ctx), key); uerr != nil {
			l.logger.Warn("failed to release dedup key",
				zap.String("event_id", env.EventID), zap.Error(uerr))
		}
	}
}

func (l *RestockListener) applyWithRetry(ctx context.Context, apply func(context.Context, *event.Envelope) error, env *event.Envelope) error {
	var err error
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		err = apply(ctx, env)
		if err == nil || !apperror.IsRetryable(err) || attempt == maxApplyAttempts {
			return err
		}
		l.logger.Warn("retrying restock event after conflict",
			zap.String("event_id", env.EventID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
	return err
}

func (l *RestockListener) applyRestock(ctx context.Context, env *event.Envelope) error {
	p, err := event.UnwrapPayload[event.VariantRestockedPayload](env)
	if err != nil {
		return err
	}
	_, err = l.uc.AdjustVariantStock(ctx, &dto.AdjustStockInput{
		VariantID:      p.VariantID,
		QuantityChange: p.Quantity,
		Reason:         p.Notes,
		ReferenceID:    env.EventID,
		ReferenceType:  model.ReferenceRestock,
		UserID:         env.Producer,
	})
	return err
}

func (l *RestockListener) applyRefill(ctx context.Context, env *event.Envelope) error {
	p, err := event.UnwrapPayload[event.KegRefilledPayload](env)
	if err != nil {
		return err
	}
	_, err = l.uc.AdjustKegVolume(ctx, &dto.AdjustKegInput{
		KegID:         p.KegID,
		LitersChange:  p.Liters,
		Reason:        p.Notes,
		ReferenceID:   env.EventID,
		ReferenceType: model.ReferenceKegRefill,
		UserID:        env.Producer,
	})
	return err
}
