package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

const searchResultLimit = 10

type OrderFilter struct {
	Search string
	Status string
}

type CreateOrderRequest struct {
	CustomerID string `json:"customerId" validate:"required"`
	ProductID  string `json:"productId" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,min=1"`
}

// SearchResult is one autocomplete entry.
type SearchResult struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type OrderService struct {
	orders     repository.OrderRepo
	customers  repository.CustomerRepo
	products   repository.ProductRepo
	stock      *StockReserver
	dispatcher *OrderDispatcher
	metrics    *awspkg.MetricsClient
	logger     *zap.Logger
	now        func() time.Time
}

func NewOrderService(
	orders repository.OrderRepo,
	customers repository.CustomerRepo,
	products repository.ProductRepo,
	stock *StockReserver,
	dispatcher *OrderDispatcher,
	metrics *awspkg.MetricsClient,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:     orders,
		customers:  customers,
		products:   products,
		stock:      stock,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// List returns orders newest first.
func (s *OrderService) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	all, err := s.orders.FindAll(ctx)
	if err != nil {
		return nil, storeError(err, "Orders")
	}
	var status models.OrderStatus
	if filter.Status != "" {
		st, ok := models.ParseOrderStatus(filter.Status)
		if !ok {
			return nil, apperrors.Validation("Unknown order status %q", filter.Status)
		}
		status = st
	}

	out := make([]models.Order, 0, len(all))
	for i := range all {
		o := &all[i]
		if status != "" && o.Status != status {
			continue
		}
		if !o.Matches(filter.Search) {
			continue
		}
		out = append(out, *o)
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].OrderDate.After(orders[j].OrderDate) })
}

func (s *OrderService) Statuses() []models.OrderStatus {
	return models.OrderStatuses
}

func (s *OrderService) Get(ctx context.Context, partitionKey, id string) (*models.Order, error) {
	o, err := s.orders.FindByKey(ctx, partitionKey, id)
	if err != nil {
		return nil, storeError(err, "Order")
	}
	return o, nil
}

// Create places a single order on behalf of a customer, reserving stock the same
// way checkout does.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	if req.Quantity < 1 {
		return nil, apperrors.Validation("Quantity must be at least 1")
	}
	customer, err := s.customers.FindByID(ctx, req.CustomerID)
	if err != nil {
		return nil, storeError(err, "Customer")
	}
	product, err := s.stock.Reserve(ctx, req.ProductID, req.Quantity)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		CustomerID:    customer.RowKey,
		CustomerName:  customer.FullName(),
		CustomerEmail: customer.Email,
		ProductID:     product.RowKey,
		ProductName:   product.Name,
		Quantity:      req.Quantity,
		UnitPrice:     product.Price,
		TotalPrice:    product.Price * float64(req.Quantity),
		Status:        models.OrderPending,
		OrderDate:     s.now(),
	}
	order.RowKey = uuid.NewString()
	if err := s.orders.Create(ctx, order); err != nil {
		s.stock.Release(ctx, product.RowKey, req.Quantity)
		s.metrics.RecordCountAsync(awspkg.MetricOrdersFailed, nil)
		return nil, storeError(err, "Order")
	}
	s.metrics.RecordCountAsync(awspkg.MetricOrdersCreated, nil)
	s.dispatcher.Dispatch(ctx, order)
	s.logger.Info("Order created", zap.String("order_id", order.RowKey), zap.String("customer_id", customer.RowKey))
	return order, nil
}

// UpdateStatus moves an order to status, stamping the shipped and delivered dates.
// Cancelling a Pending or Confirmed order returns its units to stock, and reopening
// a Cancelled order takes them again.
func (s *OrderService) UpdateStatus(ctx context.Context, partitionKey, id, status string) (*models.Order, error) {
	st, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, apperrors.Validation("Unknown order status %q", status)
	}
	o, err := s.orders.FindByKey(ctx, partitionKey, id)
	if err != nil {
		return nil, storeError(err, "Order")
	}
	previous := o.Status
	reopening := previous == models.OrderCancelled && holdsStock(st)
	if reopening {
		if _, err := s.stock.Reserve(ctx, o.ProductID, o.Quantity); err != nil {
			return nil, err
		}
	}

	now := s.now()
	o.Status = st
	switch st {
	case models.OrderShipped:
		o.ShippedDate = &now
	case models.OrderDelivered:
		o.DeliveredDate = &now
		if o.ShippedDate == nil {
			o.ShippedDate = &now
		}
	}
	if err := s.orders.Update(ctx, o); err != nil {
		if reopening {
			s.stock.Release(ctx, o.ProductID, o.Quantity)
		}
		return nil, storeError(err, "Order")
	}
	if holdsStock(previous) && st == models.OrderCancelled {
		s.stock.Release(ctx, o.ProductID, o.Quantity)
	}
	s.logger.Info("Order status updated", zap.String("order_id", id), zap.String("status", string(st)))
	return o, nil
}

// Delete removes an order. Units held by a Pending or Confirmed order go back to stock.
func (s *OrderService) Delete(ctx context.Context, partitionKey, id string) error {
	o, err := s.orders.FindByKey(ctx, partitionKey, id)
	if err != nil {
		return storeError(err, "Order")
	}
	if err := s.orders.Delete(ctx, partitionKey, id); err != nil {
		return storeError(err, "Order")
	}
	if holdsStock(o.Status) {
		s.stock.Release(ctx, o.ProductID, o.Quantity)
	}
	return nil
}

// holdsStock reports whether an order in status still has its units reserved.
func holdsStock(status models.OrderStatus) bool {
	return status == models.OrderPending || status == models.OrderConfirmed
}

// Search returns at most ten orders matching term, newest first.
func (s *OrderService) Search(ctx context.Context, term string) ([]SearchResult, error) {
	orders, err := s.List(ctx, OrderFilter{Search: term})
	if err != nil {
		return nil, err
	}
	if len(orders) > searchResultLimit {
		orders = orders[:searchResultLimit]
	}
	out := make([]SearchResult, 0, len(orders))
	for i := range orders {
		out = append(out, SearchResult{ID: orders[i].RowKey, Text: orders[i].SearchText()})
	}
	return out, nil
}

// Confirm moves a Pending order to Confirmed. Orders in any other status are
// returned unchanged with changed == false.
func (s *OrderService) Confirm(ctx context.Context, partitionKey, id string) (order *models.Order, changed bool, err error) {
	o, err := s.orders.FindByKey(ctx, partitionKey, id)
	if err != nil {
		return nil, false, storeError(err, "Order")
	}
	if o.Status != models.OrderPending {
		return o, false, nil
	}
	o.Status = models.OrderConfirmed
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, false, storeError(err, "Order")
	}
	s.metrics.RecordCountAsync(awspkg.MetricOrdersConfirmed, nil)
	return o, true, nil
}
