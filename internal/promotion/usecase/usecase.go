package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/fekuna/omnipos-order-service/internal/cache"
	"github.com/fekuna/omnipos-order-service/internal/database"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/promotion"
	"github.com/fekuna/omnipos-order-service/internal/telemetry"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type Options struct {
	// Location is the business time zone eligibility is judged in.
	Location *time.Location
	CacheTTL time.Duration
}

type promotionUseCase struct {
	tx     database.Transactor
	repo   promotion.Repository
	cache  *cache.RedisClient
	opts   Options
	logger logger.ZapLogger
}

// NewPromotionUseCase builds the promotion service. cache may be nil, in which
// case every evaluation reads the catalog from the database.
func NewPromotionUseCase(tx database.Transactor, repo promotion.Repository, cache *cache.RedisClient, opts Options, log logger.ZapLogger) promotion.UseCase {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &promotionUseCase{
		tx:     tx,
		repo:   repo,
		cache:  cache,
		opts:   opts,
		logger: log,
	}
}

func (uc *promotionUseCase) GetValidPromotions(ctx context.Context, orderTotal decimal.Decimal, now time.Time) ([]promotion.Applicable, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "promotion.GetValidPromotions")
	defer span.End()
	span.SetAttributes(attribute.String("order.total", orderTotal.String()))

	if orderTotal.IsNegative() {
		return nil, apperror.InvalidArgument("order total must not be negative")
	}

	rows, err := uc.loadCatalog(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	rules, err := promotion.ParseCatalog(rows)
	if err != nil {
		uc.logger.Warn("skipping malformed promotions", zap.Error(err))
	}

	result := promotion.Evaluate(rules, orderTotal, now.In(uc.opts.Location))
	span.SetAttributes(attribute.Int("promotions.eligible", len(result)))
	return result, nil
}

func (uc *promotionUseCase) BestPromotion(ctx context.Context, orderTotal decimal.Decimal, now time.Time) (*promotion.Applicable, error) {
	valid, err := uc.GetValidPromotions(ctx, orderTotal, now)
	if err != nil {
		return nil, err
	}
	return promotion.Best(valid), nil
}

func (uc *promotionUseCase) RecordUsage(ctx context.Context, promotionID string) error {
	if promotionID == "" {
		return apperror.InvalidArgument("promotion id is required")
	}
	err := uc.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		return uc.repo.IncrementUsage(ctx, tx, promotionID)
	})
	if err != nil {
		return err
	}
	uc.InvalidateCache(ctx)
	return nil
}

func (uc *promotionUseCase) ApplyToOrder(ctx context.Context, q sqlx.ExtContext, promotionID string, orderTotal decimal.Decimal, now time.Time) (*promotion.Applicable, error) {
	row, err := uc.repo.GetByID(ctx, q, promotionID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperror.NotFound("promotion %s", promotionID)
	}

	rule, err := promotion.FromModel(row)
	if err != nil {
		uc.logger.Warn("malformed promotion", zap.String("promotion_id", promotionID), zap.Error(err))
		return nil, apperror.FailedPrecondition("promotion %s cannot be applied: %v", promotionID, err)
	}

	best := promotion.Best(promotion.Evaluate([]promotion.Rule{rule}, orderTotal, now.In(uc.opts.Location)))
	if best == nil {
		return nil, apperror.FailedPrecondition("promotion %s does not apply to this order", promotionID)
	}

	if err := uc.repo.IncrementUsage(ctx, q, promotionID); err != nil {
		return nil, err
	}
	return best, nil
}

func (uc *promotionUseCase) InvalidateCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Client.Del(ctx, cache.KeyPromotionCatalog).Err(); err != nil {
		uc.logger.Warn("failed to invalidate promotion cache", zap.Error(err))
	}
}

func (uc *promotionUseCase) loadCatalog(ctx context.Context) ([]model.Promotion, error) {
	if uc.cache != nil {
		val, err := uc.cache.Client.Get(ctx, cache.KeyPromotionCatalog).Result()
		if err == nil {
			var rows []model.Promotion
			if err := json.Unmarshal([]byte(val), &rows); err == nil {
				return rows, nil
			}
		}
	}

	rows, err := uc.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil && uc.opts.CacheTTL > 0 {
		if data, err := json.Marshal(rows); err == nil {
			if err := uc.cache.Client.Set(ctx, cache.KeyPromotionCatalog, data, uc.opts.CacheTTL).Err(); err != nil {
				uc.logger.Warn("failed to cache promotion catalog", zap.Error(err))
			}
		}
	}
	return rows, nil
}
