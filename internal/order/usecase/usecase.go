package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/fekuna/omnipos-order-service/internal/auth"
	"github.com/fekuna/omnipos-order-service/internal/database"
	"github.com/fekuna/omnipos-order-service/internal/event"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/order"
	"github.com/fekuna/omnipos-order-service/internal/order/dto"
	"github.com/fekuna/omnipos-order-service/internal/orderitem"
	"github.com/fekuna/omnipos-order-service/internal/promotion"
	"github.com/fekuna/omnipos-order-service/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const producerName = "omnipos-order-service"

type orderUseCase struct {
	tx         database.Transactor
	repo       order.Repository
	items      orderitem.Repository
	promotions promotion.UseCase
	publisher  event.Publisher
	logger     logger.ZapLogger
}

// NewOrderUseCase builds the order lifecycle service. publisher may be nil.
func NewOrderUseCase(
	tx database.Transactor,
	repo order.Repository,
	items orderitem.Repository,
	promotions promotion.UseCase,
	publisher event.Publisher,
	log logger.ZapLogger,
) order.UseCase {
	return &orderUseCase{
		tx:         tx,
		repo:       repo,
		items:      items,
		promotions: promotions,
		publisher:  publisher,
		logger:     log,
	}
}

func (uc *orderUseCase) CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error) {
	now := time.Now().UTC()
	o := &model.Order{
		BaseModel:  model.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		Status:     model.OrderStatusPending,
		TableLabel: input.TableLabel,
		Subtotal:   decimal.Zero,
		Discount:   decimal.Zero,
		Total:      decimal.Zero,
		CreatedBy:  auth.UserIDPtr(ctx),
		Items:      []model.OrderItem{},
	}
	if err := uc.repo.Create(ctx, o); err != nil {
		uc.logger.Error("failed to create order", zap.Error(err))
		return nil, err
	}
	uc.logger.Info("order created", zap.String("order_id", o.ID))
	return o, nil
}

func (uc *orderUseCase) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var o *model.Order
	err := uc.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		o, err = uc.repo.FindByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperror.NotFound("order %s", orderID)
		}
		o.Items, err = uc.items.ListByOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (uc *orderUseCase) ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, 0, apperror.InvalidArgument("unknown order status %q", filters.Status)
	}
	if filters.Page < 0 || filters.PageSize < 0 {
		return nil, 0, apperror.InvalidArgument("page and page size must not be negative")
	}
	return uc.repo.FindAll(ctx, filters)
}

// AdvanceStatus moves the order along the status table. Payment goes through
// FinalizeOrder so that totals and promotion usage are settled with it.
func (uc *orderUseCase) AdvanceStatus(ctx context.Context, orderID string, to model.OrderStatus) (*model.Order, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "order.AdvanceStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("order.status", string(to)))

	if !to.Valid() {
		return nil, apperror.InvalidArgument("unknown order status %q", to)
	}
	if to == model.OrderStatusPaid {
		return nil, apperror.FailedPrecondition("orders are paid by finalizing them")
	}

	var o *model.Order
	err := uc.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		o, err = uc.repo.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperror.NotFound("order %s", orderID)
		}
		if !model.CanTransition(o.Status, to) {
			return apperror.FailedPrecondition("order %s cannot move from %s to %s", orderID, o.Status, to)
		}
		o.Status = to
		o.UpdatedAt = time.Now().UTC()
		return uc.repo.UpdateStatus(ctx, tx, o)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	uc.logger.Info("order status changed", zap.String("order_id", orderID), zap.String("status", string(to)))
	return o, nil
}

func (uc *orderUseCase) FinalizeOrder(ctx context.Context, orderID string, promotionID *string, now time.Time) (*model.Order, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "order.FinalizeOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))
	if promotionID != nil {
		span.SetAttributes(attribute.String("promotion.id", *promotionID))
	}

	var o *model.Order
	err := uc.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		o, err = uc.repo.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperror.NotFound("order %s", orderID)
		}
		if !model.CanTransition(o.Status, model.OrderStatusPaid) {
			return apperror.FailedPrecondition("order %s is %s and cannot be paid", orderID, o.Status)
		}

		o.Items, err = uc.items.ListByOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		subtotal := decimal.Zero
		for _, it := range o.Items {
			subtotal = subtotal.Add(it.Subtotal)
		}

		discount := decimal.Zero
		if promotionID != nil {
			applied, err := uc.promotions.ApplyToOrder(ctx, tx, *promotionID, subtotal, now)
			if err != nil {
				return err
			}
			discount = decimal.Min(applied.Discount, subtotal)
		}

		paidAt := now.UTC()
		o.Status = model.OrderStatusPaid
		o.Subtotal = subtotal
		o.Discount = discount
		o.Total = subtotal.Sub(discount)
		o.PromotionID = promotionID
		o.PaidAt = &paidAt
		o.UpdatedAt = time.Now().UTC()
		return uc.repo.SaveFinalized(ctx, tx, o)
	})
	if err != nil {
		span.RecordError(err)
		if apperror.HTTPStatus(err) >= 500 {
			uc.logger.Error("failed to finalize order", zap.String("order_id", orderID), zap.Error(err))
		}
		return nil, err
	}

	if promotionID != nil {
		uc.promotions.InvalidateCache(ctx)
	}
	uc.publishFinalized(ctx, o)
	uc.logger.Info("order finalized",
		zap.String("order_id", o.ID),
		zap.String("total", o.Total.StringFixed(2)),
	)
	return o, nil
}

func (uc *orderUseCase) publishFinalized(ctx context.Context, o *model.Order) {
	if uc.publisher == nil {
		return
	}
	env, err := event.NewEnvelope(event.TypeOrderFinalized, producerName, o.ID, event.OrderFinalizedPayload{
		OrderID:     o.ID,
		Subtotal:    o.Subtotal,
		Discount:    o.Discount,
		Total:       o.Total,
		PromotionID: o.PromotionID,
	})
	if err == nil {
		err = uc.publisher.Publish(ctx, env)
	}
	if err != nil {
		uc.logger.Warn("failed to publish order finalized event", zap.String("order_id", o.ID), zap.Error(err))
	}
}
