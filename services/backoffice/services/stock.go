package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

const DefaultReserveAttempts = 3

// StockReserver decrements and restores product stock with version-guarded writes,
// re-reading the product whenever a concurrent writer wins.
type StockReserver struct {
	products repository.ProductRepo
	attempts int
	metrics  *awspkg.MetricsClient
	logger   *zap.Logger
}

func NewStockReserver(products repository.ProductRepo, attempts int, metrics *awspkg.MetricsClient, logger *zap.Logger) *StockReserver {
	if attempts <= 0 {
		attempts = DefaultReserveAttempts
	}
	return &StockReserver{products: products, attempts: attempts, metrics: metrics, logger: logger}
}

// Reserve takes qty units of a product and returns the product as written.
func (r *StockReserver) Reserve(ctx context.Context, productID string, qty int) (*models.Product, error) {
	start := time.Now()
	defer func() { r.metrics.RecordLatencyAsync(awspkg.MetricStockReserveTime, time.Since(start), nil) }()

	for attempt := 1; attempt <= r.attempts; attempt++ {
		p, err := r.products.FindByID(ctx, productID)
		if err != nil {
			return nil, storeError(err, "Product")
		}
		if p.StockQuantity < qty {
			return nil, apperrors.InsufficientStock("Not enough stock for %s. Available: %d", p.Name, p.StockQuantity)
		}
		p.StockQuantity -= qty
		err = r.products.Update(ctx, p)
		if err == nil {
			r.metrics.RecordCountAsync(awspkg.MetricStockReserved, nil)
			return p, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, storeError(err, "Product")
		}
		r.metrics.RecordCountAsync(awspkg.MetricStockConflicts, nil)
		r.logger.Debug("Stock reservation lost a race, retrying",
			zap.String("product_id", productID), zap.Int("attempt", attempt))
	}
	return nil, apperrors.Conflict("Stock for this product is changing quickly. Please try again")
}

// Release puts qty units back. Failures are logged; the caller has already failed.
func (r *StockReserver) Release(ctx context.Context, productID string, qty int) {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		p, err := r.products.FindByID(ctx, productID)
		if err != nil {
			r.logger.Error("Failed to load product for stock release", zap.String("product_id", productID), zap.Error(err))
			return
		}
		p.StockQuantity += qty
		err = r.products.Update(ctx, p)
		if err == nil {
			return
		}
		if !errors.Is(err, repository.ErrConflict) {
			r.logger.Error("Failed to release stock", zap.String("product_id", productID), zap.Int("quantity", qty), zap.Error(err))
			return
		}
	}
	r.logger.Error("Gave up releasing stock after repeated conflicts", zap.String("product_id", productID), zap.Int("quantity", qty))
}
