package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/fekuna/omnipos-order-service/internal/auth"
	"github.com/fekuna/omnipos-order-service/internal/database"
	"github.com/fekuna/omnipos-order-service/internal/event"
	"github.com/fekuna/omnipos-order-service/internal/ledger"
	ledgerdto "github.com/fekuna/omnipos-order-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/orderitem"
	"github.com/fekuna/omnipos-order-service/internal/orderitem/dto"
	"github.com/fekuna/omnipos-order-service/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	producerName = "omnipos-order-service"

	// Scales of order_items.price_at_sale and order_items.serving_liters.
	priceScale   = 2
	servingScale = 3
)

type Options struct {
	// DefaultServingLiters is drawn per unit from a keg when the variant has
	// no serving volume of its own.
	DefaultServingLiters decimal.Decimal
}

type orderItemUseCase struct {
	tx        database.Transactor
	repo      orderitem.Repository
	ledgers   ledger.Repository
	publisher event.Publisher
	opts      Options
	logger    logger.ZapLogger
}

// NewOrderItemUseCase wires line item handling to the stock and keg ledgers.
// publisher may be nil.
func NewOrderItemUseCase(
	tx database.Transactor,
	repo orderitem.Repository,
	ledgers ledger.Repository,
	publisher event.Publisher,
	opts Options,
	log logger.ZapLogger,
) orderitem.UseCase {
	// The stored serving is rounded to the column scale; debit with the same value.
	opts.DefaultServingLiters = opts.DefaultServingLiters.Round(servingScale)
	return &orderItemUseCase{
		tx:        tx,
		repo:      repo,
		ledgers:   ledgers,
		publisher: publisher,
		opts:      opts,
		logger:    log,
	}
}

func (uc *orderItemUseCase) AddItem(ctx context.Context, input *dto.AddItemInput) (*model.OrderItem, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "orderitem.AddItem")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", input.OrderID),
		attribute.String("variant.id", input.VariantID),
		attribute.Int64("quantity", input.Quantity),
	)

	if input.OrderID == "" || input.VariantID == "" {
		return nil, apperror.InvalidArgument("order id and variant id are required")
	}
	if err := validateLine(input.Quantity, input.PriceAtSale); err != nil {
		return nil, err
	}

	var item *model.OrderItem
	err := uc.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		order, err := uc.openOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}

		v, err := uc.ledgers.GetVariant(ctx, tx, input.VariantID)
		if err != nil {
			return err
		}
		if v == nil {
			return apperror.NotFound("variant %s", input.VariantID)
		}

		now := time.Now().UTC()
		item = &model.OrderItem{
			BaseModel:   model.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
			OrderID:     input.OrderID,
			VariantID:   input.VariantID,
			Quantity:    input.Quantity,
			PriceAtSale: input.PriceAtSale,
			Subtotal:    lineSubtotal(input.Quantity, input.PriceAtSale),
			Note:        input.Note,
		}
		if v.IsKegLinked() {
			item.KegID = v.KegID
			item.ServingLiters = v.ServingLiters(uc.opts.DefaultServingLiters)
		}

		if err := uc.repo.Create(ctx, tx, item); err != nil {
			return err
		}
		return uc.moveLedgers(ctx, tx, order, item, -item.Quantity)
	})
	if err != nil {
		return nil, uc.fail(span, "add order item", err)
	}

	uc.publish(ctx, event.TypeOrderItemAdded, item, 0)
	return item, nil
}

func (uc *orderItemUseCase) UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.OrderItem, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "orderitem.UpdateItem")
	defer span.End()
	span.SetAttributes(
		attribute.String("item.id", input.ItemID),
		attribute.Int64("quantity", input.Quantity),
	)

	if input.ItemID == "" {
		return nil, apperror.InvalidArgument("item id is required")
	}
	if err := validateLine(input.Quantity, input.PriceAtSale); err != nil {
		return nil, err
	}

	var (
		item        *model.OrderItem
		oldQuantity int64
	)
	err := uc.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var (
			order *model.Order
			err   error
		)
		item, order, err = uc.lockItem(ctx, tx, input.ItemID)
		if err != nil {
			return err
		}

		oldQuantity = item.Quantity
		delta := input.Quantity - oldQuantity

		item.Quantity = input.Quantity
		item.PriceAtSale = input.PriceAtSale
		item.Subtotal = lineSubtotal(input.Quantity, input.PriceAtSale)
		item.UpdatedAt = time.Now().UTC()
		if err := uc.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		// A zero delta still goes through both ledgers.
		return uc.moveLedgers(ctx, tx, order, item, -delta)
	})
	if err != nil {
		return nil, uc.fail(span, "update order item", err)
	}

	uc.publish(ctx, event.TypeOrderItemUpdated, item, oldQuantity)
	return item, nil
}

func (uc *orderItemUseCase) DeleteItem(ctx context.Context, itemID string) error {
	ctx, span := telemetry.Tracer().Start(ctx, "orderitem.DeleteItem")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", itemID))

	if itemID == "" {
		return apperror.InvalidArgument("item id is required")
	}

	var item *model.OrderItem
	err := uc.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var (
			order *model.Order
			err   error
		)
		item, order, err = uc.lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if err := uc.repo.Delete(ctx, tx, itemID); err != nil {
			return err
		}
		return uc.moveLedgers(ctx, tx, order, item, item.Quantity)
	})
	if err != nil {
		return uc.fail(span, "delete order item", err)
	}

	uc.publish(ctx, event.TypeOrderItemRemoved, item, 0)
	return nil
}

func (uc *orderItemUseCase) GetItem(ctx context.Context, itemID string) (*model.OrderItem, error) {
	item, err := uc.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperror.NotFound("order item %s", itemID)
	}
	return item, nil
}

func (uc *orderItemUseCase) ListItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := uc.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		o, err := uc.repo.FindOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperror.NotFound("order %s", orderID)
		}
		items, err = uc.repo.ListByOrder(ctx, tx, orderID)
		return err
	})
	return items, err
}

// openOrder locks the order and refuses paid or cancelled ones.
func (uc *orderItemUseCase) openOrder(ctx context.Context, tx *sqlx.Tx, orderID string) (*model.Order, error) {
	o, err := uc.repo.LockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperror.NotFound("order %s", orderID)
	}
	if o.Status.IsTerminal() {
		return nil, apperror.FailedPrecondition("order %s is %s", orderID, o.Status)
	}
	return o, nil
}

// lockItem locks the item first and its order second, the order every item
// mutation takes them in.
func (uc *orderItemUseCase) lockItem(ctx context.Context, tx *sqlx.Tx, itemID string) (*model.OrderItem, *model.Order, error) {
	item, err := uc.repo.GetForUpdate(ctx, tx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, apperror.NotFound("order item %s", itemID)
	}
	order, err := uc.openOrder(ctx, tx, item.OrderID)
	if err != nil {
		return nil, nil, err
	}
	return item, order, nil
}

// moveLedgers applies stockDelta units to the variant and the matching volume
// to the keg captured on the item, then refreshes the order totals.
func (uc *orderItemUseCase) moveLedgers(ctx context.Context, tx *sqlx.Tx, order *model.Order, item *model.OrderItem, stockDelta int64) error {
	ref := ledgerdto.Reference{
		Type:      model.ReferenceOrderItem,
		ID:        &item.ID,
		Notes:     "order " + item.OrderID,
		CreatedBy: auth.UserIDPtr(ctx),
	}

	if _, err := uc.ledgers.AdjustStock(ctx, tx, &ledgerdto.StockAdjustment{
		VariantID: item.VariantID,
		Delta:     stockDelta,
		Reference: ref,
	}); err != nil {
		return err
	}

	if item.KegID != nil {
		if _, err := uc.ledgers.AdjustKeg(ctx, tx, &ledgerdto.KegAdjustment{
			KegID:       *item.KegID,
			DeltaLiters: item.DispensedLiters(stockDelta),
			Reference:   ref,
		}); err != nil {
			return err
		}
	}

	return uc.repo.RefreshTotals(ctx, tx, order)
}

func (uc *orderItemUseCase) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	if apperror.HTTPStatus(err) >= 500 {
		uc.logger.Error(op+" failed", zap.Error(err))
	} else {
		uc.logger.Debug(op+" rejected", zap.Error(err))
	}
	return err
}

func (uc *orderItemUseCase) publish(ctx context.Context, eventType string, item *model.OrderItem, oldQuantity int64) {
	if uc.publisher == nil {
		return
	}
	env, err := event.NewEnvelope(eventType, producerName, item.OrderID, event.OrderItemPayload{
		OrderID:     item.OrderID,
		ItemID:      item.ID,
		VariantID:   item.VariantID,
		Quantity:    item.Quantity,
		QuantityOld: oldQuantity,
		PriceAtSale: item.PriceAtSale,
		KegID:       item.KegID,
	})
	if err == nil {
		err = uc.publisher.Publish(ctx, env)
	}
	if err != nil {
		uc.logger.Warn("failed to publish order item event",
			zap.String("event_type", eventType),
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
	}
}

func validateLine(quantity int64, price decimal.Decimal) error {
	if quantity <= 0 {
		return apperror.InvalidArgument("quantity must be greater than zero, got %d", quantity)
	}
	if price.IsNegative() {
		return apperror.InvalidArgument("price at sale must not be negative, got %s", price)
	}
	if !price.Equal(price.Round(priceScale)) {
		return apperror.InvalidArgument("price at sale must have at most %d decimal places, got %s", priceScale, price)
	}
	return nil
}

func lineSubtotal(quantity int64, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}
