package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/fekuna/omnipos-order-service/internal/cache"
	"github.com/fekuna/omnipos-order-service/internal/event"
	"github.com/fekuna/omnipos-order-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu     sync.Mutex
	stocks []*dto.AdjustStockInput
	kegs   []*dto.AdjustKegInput
	// stockErrs are returned, in order, by the next stock adjustments.
	stockErrs []error
}

func (f *fakeLedger) GetVariantStock(context.Context, string) (*model.ProductVariant, error) {
	return nil, errors.New("not used")
}

func (f *fakeLedger) GetKeg(context.Context, string) (*model.Keg, error) {
	return nil, errors.New("not used")
}

func (f *fakeLedger) AdjustVariantStock(_ context.Context, in *dto.AdjustStockInput) (*model.InventoryMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.stockErrs) > 0 {
		err := f.stockErrs[0]
		f.stockErrs = f.stockErrs[1:]
		return nil, err
	}
	f.stocks = append(f.stocks, in)
	return &model.InventoryMovement{}, nil
}

func (f *fakeLedger) AdjustKegVolume(_ context.Context, in *dto.AdjustKegInput) (*model.InventoryMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kegs = append(f.kegs, in)
	return &model.InventoryMovement{}, nil
}

func (f *fakeLedger) ListMovements(context.Context, *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	return nil, 0, nil
}

func (f *fakeLedger) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stocks), len(f.kegs)
}

// sliceReader hands out queued messages, then blocks until ctx is done.
type sliceReader struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func encode(t *testing.T, eventType string, payload any) []byte {
	t.Helper()
	env, err := event.NewEnvelope(eventType, "warehouse-service", "", payload)
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

func newDeduper(t *testing.T) *cache.RedisClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return &cache.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
}

func TestProcessRestockEvents(t *testing.T) {
	uc := &fakeLedger{}
	l := NewRestockListener(nil, uc, newDeduper(t), logger.NewNop())
	ctx := context.Background()

	l.processMessage(ctx, encode(t, event.TypeVariantRestocked, event.VariantRestockedPayload{VariantID: "v1", Quantity: 24, Notes: "crate"}))
	l.processMessage(ctx, encode(t, event.TypeKegRefilled, event.KegRefilledPayload{KegID: "k1", Liters: decimal.RequireFromString("30")}))

	require.Len(t, uc.stocks, 1)
	assert.Equal(t, "v1", uc.stocks[0].VariantID)
	assert.Equal(t, int64(24), uc.stocks[0].QuantityChange)
	assert.Equal(t, model.ReferenceRestock, uc.stocks[0].ReferenceType)
	assert.Equal(t, "crate", uc.stocks[0].Reason)
	assert.NotEmpty(t, uc.stocks[0].ReferenceID)

	require.Len(t, uc.kegs, 1)
	assert.Equal(t, "k1", uc.kegs[0].KegID)
	assert.True(t, uc.kegs[0].LitersChange.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, model.ReferenceKegRefill, uc.kegs[0].ReferenceType)
}

func TestProcessSkipsDuplicatesAndForeignEvents(t *testing.T) {
	uc := &fakeLedger{}
	l := NewRestockListener(nil, uc, newDeduper(t), logger.NewNop())
	ctx := context.Background()

	msg := encode(t, event.TypeVariantRestocked, event.VariantRestockedPayload{VariantID: "v1", Quantity: 6})
	l.processMessage(ctx, msg)
	l.processMessage(ctx, msg)
	l.processMessage(ctx, encode(t, event.TypeOrderFinalized, event.OrderFinalizedPayload{OrderID: "o1"}))
	l.processMessage(ctx, []byte("{not json"))

	stocks, kegs := uc.calls()
	assert.Equal(t, 1, stocks)
	assert.Equal(t, 0, kegs)
}

func TestFailedEventIsAppliedOnRedelivery(t *testing.T) {
	uc := &fakeLedger{stockErrs: []error{errors.New("connection refused")}}
	rc := newDeduper(t)
	l := NewRestockListener(nil, uc, rc, logger.NewNop())
	ctx := context.Background()

	env, err := event.NewEnvelope(event.TypeVariantRestocked, "warehouse-service", "",
		event.VariantRestockedPayload{VariantID: "v1", Quantity: 12})
	require.NoError(t, err)
	msg, err := json.Marshal(env)
	require.NoError(t, err)
	key := fmt.Sprintf(cache.KeyDedup, consumerName, env.EventID)

	l.processMessage(ctx, msg)
	stocks, _ := uc.calls()
	assert.Equal(t, 0, stocks)
	exists, err := rc.Client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists, "failed event is not remembered")

	l.processMessage(ctx, msg)
	l.processMessage(ctx, msg)

	stocks, _ = uc.calls()
	assert.Equal(t, 1, stocks, "applied once after redelivery, later copies dropped")
}

func TestConflictIsRetriedWithinDelivery(t *testing.T) {
	uc := &fakeLedger{stockErrs: []error{apperror.Conflict("deadlock detected")}}
	l := NewRestockListener(nil, uc, newDeduper(t), logger.NewNop())
	l.retryDelay = 0
	ctx := context.Background()

	msg := encode(t, event.TypeVariantRestocked, event.VariantRestockedPayload{VariantID: "v1", Quantity: 4})
	l.processMessage(ctx, msg)
	l.processMessage(ctx, msg)

	stocks, _ := uc.calls()
	assert.Equal(t, 1, stocks)
}

func TestConflictRetriesAreBounded(t *testing.T) {
	conflict := apperror.Conflict("lock timeout")
	uc := &fakeLedger{stockErrs: []error{conflict, conflict, conflict}}
	l := NewRestockListener(nil, uc, newDeduper(t), logger.NewNop())
	l.retryDelay = 0
	ctx := context.Background()

	msg := encode(t, event.TypeVariantRestocked, event.VariantRestockedPayload{VariantID: "v1", Quantity: 4})
	l.processMessage(ctx, msg)
	stocks, _ := uc.calls()
	require.Equal(t, 0, stocks)
	assert.Empty(t, uc.stockErrs, "every attempt reached the ledger")

	l.processMessage(ctx, msg)
	stocks, _ = uc.calls()
	assert.Equal(t, 1, stocks)
}

func TestProcessWithoutDeduperAppliesRedelivery(t *testing.T) {
	uc := &fakeLedger{}
	l := NewRestockListener(nil, uc, nil, logger.NewNop())

	msg := encode(t, event.TypeVariantRestocked, event.VariantRestockedPayload{VariantID: "v1", Quantity: 6})
	l.processMessage(context.Background(), msg)
	l.processMessage(context.Background(), msg)

	stocks, _ := uc.calls()
	assert.Equal(t, 2, stocks)
}

func TestStartConsumesUntilCancelled(t *testing.T) {
	uc := &fakeLedger{}
	reader := &sliceReader{msgs: []kafka.Message{
		{Value: encode(t, event.TypeVariantRestocked, event.VariantRestockedPayload{VariantID: "v1", Quantity: 1})},
		{Value: encode(t, event.TypeKegRefilled, event.KegRefilledPayload{KegID: "k1", Liters: decimal.NewFromInt(5)})},
	}}
	l := NewRestockListener(reader, uc, nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		s, k := uc.calls()
		return s == 1 && k == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
