package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
)

const (
	dashboardCacheKey   = "dashboard"
	DefaultDashboardTTL = 30 * time.Second
	recentOrdersShown   = 5
)

type DashboardService struct {
	customers repository.CustomerRepo
	products  repository.ProductRepo
	orders    repository.OrderRepo
	queue     QueueDepth
	cache     Cache
	ttl       time.Duration
	metrics   *awspkg.MetricsClient
	logger    *zap.Logger
}

// NewDashboardService builds the summary service. queue and cache may be nil.
func NewDashboardService(customers repository.CustomerRepo, products repository.ProductRepo, orders repository.OrderRepo, queue QueueDepth, cache Cache, ttl time.Duration, metrics *awspkg.MetricsClient, logger *zap.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = DefaultDashboardTTL
	}
	return &DashboardService{customers: customers, products: products, orders: orders, queue: queue, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

// Summary serves the dashboard from cache when possible. Cache errors are logged and
// the summary is computed from the stores.
func (s *DashboardService) Summary(ctx context.Context) (*models.Dashboard, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, dashboardCacheKey)
		if err == nil {
			var d models.Dashboard
			if err := json.Unmarshal([]byte(raw), &d); err == nil {
				s.metrics.RecordCountAsync(awspkg.MetricCacheHits, map[string]string{"Cache": "dashboard"})
				return &d, nil
			}
		} else if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("Dashboard cache read failed", zap.Error(err))
		}
		s.metrics.RecordCountAsync(awspkg.MetricCacheMisses, map[string]string{"Cache": "dashboard"})
	}

	d, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(d); err == nil {
			if err := s.cache.Set(ctx, dashboardCacheKey, string(raw), s.ttl); err != nil {
				s.logger.Warn("Dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return d, nil
}

// Invalidate drops the cached summary.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("Dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) compute(ctx context.Context) (*models.Dashboard, error) {
	customers, err := s.customers.Count(ctx)
	if err != nil {
		return nil, storeError(err, "Customers")
	}
	products, err := s.products.FindAll(ctx)
	if err != nil {
		return nil, storeError(err, "Products")
	}
	orders, err := s.orders.FindAll(ctx)
	if err != nil {
		return nil, storeError(err, "Orders")
	}

	d := &models.Dashboard{
		TotalCustomers:    customers,
		TotalProducts:     len(products),
		TotalOrders:       len(orders),
		OrderStatusCounts: make(map[models.OrderStatus]int, len(models.OrderStatuses)),
		LowStockProducts:  lowStock(products),
	}
	for _, st := range models.OrderStatuses {
		d.OrderStatusCounts[st] = 0
	}
	for _, o := range orders {
		d.OrderStatusCounts[o.Status]++
		if o.Status != models.OrderCancelled {
			d.TotalRevenue += o.TotalPrice
		}
	}

	if s.queue != nil {
		if n, err := s.queue.Count(ctx); err != nil {
			s.logger.Warn("Order queue depth unavailable", zap.Error(err))
		} else {
			d.PendingConfirmations = n
		}
	}

	sortNewestFirst(orders)
	if len(orders) > recentOrdersShown {
		orders = orders[:recentOrdersShown]
	}
	d.RecentOrders = orders
	if d.RecentOrders == nil {
		d.RecentOrders = []models.Order{}
	}
	return d, nil
}
