package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

// Buyer identifies who is checking out.
type Buyer struct {
	UserID     string
	Username   string
	Email      string
	CustomerID string
}

// CheckoutSummary is a cart that passed validation against current stock.
type CheckoutSummary struct {
	Lines      []models.CartLine `json:"lines"`
	GrandTotal float64           `json:"grandTotal"`
}

// PlacementError is returned when PlaceOrder stops part way. Orders written for
// earlier lines stay in place and are listed here.
type PlacementError struct {
	PlacedOrderIDs []string
	Err            error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("order placement stopped after %d order(s): %v", len(e.PlacedOrderIDs), e.Err)
}

func (e *PlacementError) Unwrap() error { return e.Err }

type CheckoutService struct {
	carts      repository.CartRepo
	products   repository.ProductRepo
	orders     repository.OrderRepo
	customers  repository.CustomerRepo
	stock      *StockReserver
	dispatcher *OrderDispatcher
	metrics    *awspkg.MetricsClient
	logger     *zap.Logger
	now        func() time.Time
}

func NewCheckoutService(
	carts repository.CartRepo,
	products repository.ProductRepo,
	orders repository.OrderRepo,
	customers repository.CustomerRepo,
	stock *StockReserver,
	dispatcher *OrderDispatcher,
	metrics *awspkg.MetricsClient,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:      carts,
		products:   products,
		orders:     orders,
		customers:  customers,
		stock:      stock,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PrepareCheckout checks every cart line against current stock. The total uses the
// prices captured when lines were added.
func (s *CheckoutService) PrepareCheckout(ctx context.Context, userID string) (*CheckoutSummary, error) {
	lines, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "Cart")
	}
	if len(lines) == 0 {
		return nil, apperrors.ErrEmptyCart
	}
	sortLines(lines)

	summary := &CheckoutSummary{Lines: lines}
	for i := range lines {
		l := &lines[i]
		p, err := s.products.FindByID(ctx, l.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Product %s is no longer available", l.ProductName)
		}
		if err != nil {
			return nil, storeError(err, "Product")
		}
		if p.StockQuantity < l.Quantity {
			return nil, apperrors.InsufficientStock("Not enough stock for %s. Available: %d", p.Name, p.StockQuantity)
		}
		summary.GrandTotal += l.LineTotal()
	}
	return summary, nil
}

// PlaceOrder turns each cart line into an order, reserving stock first. The cart is
// emptied only when every line has been written.
func (s *CheckoutService) PlaceOrder(ctx context.Context, buyer Buyer) ([]models.Order, error) {
	summary, err := s.PrepareCheckout(ctx, buyer.UserID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCountAsync(awspkg.MetricCartCheckouts, nil)

	customerID, customerName, customerEmail := s.resolveCustomer(ctx, buyer)
	placed := make([]models.Order, 0, len(summary.Lines))
	fail := func(err error) ([]models.Order, error) {
		s.metrics.RecordCountAsync(awspkg.MetricOrdersFailed, nil)
		ids := make([]string, len(placed))
		for i := range placed {
			ids[i] = placed[i].RowKey
		}
		s.logger.Warn("Order placement stopped",
			zap.String("user_id", buyer.UserID), zap.Strings("placed_order_ids", ids), zap.Error(err))
		return placed, &PlacementError{PlacedOrderIDs: ids, Err: err}
	}

	for _, line := range summary.Lines {
		if _, err := s.stock.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				err = apperrors.NotFound("Product %s is no longer available", line.ProductName)
			}
			return fail(err)
		}

		order := models.Order{
			CustomerID:    customerID,
			CustomerName:  customerName,
			CustomerEmail: customerEmail,
			ProductID:     line.ProductID,
			ProductName:   line.ProductName,
			Quantity:      line.Quantity,
			UnitPrice:     line.Price,
			TotalPrice:    line.LineTotal(),
			Status:        models.OrderPending,
			OrderDate:     s.now(),
		}
		order.RowKey = uuid.NewString()
		if err := s.orders.Create(ctx, &order); err != nil {
			s.stock.Release(ctx, line.ProductID, line.Quantity)
			return fail(storeError(err, "Order"))
		}
		s.metrics.RecordCountAsync(awspkg.MetricOrdersCreated, nil)
		s.dispatcher.Dispatch(ctx, &order)
		placed = append(placed, order)
	}

	if err := s.carts.DeleteAll(ctx, buyer.UserID); err != nil {
		// Orders are already written, so this is not a checkout failure.
		s.logger.Error("Failed to clear cart after placing orders", zap.String("user_id", buyer.UserID), zap.Error(err))
	}
	s.logger.Info("Orders placed", zap.String("user_id", buyer.UserID), zap.Int("orders", len(placed)))
	return placed, nil
}

// resolveCustomer prefers the linked customer row and falls back to the account.
func (s *CheckoutService) resolveCustomer(ctx context.Context, buyer Buyer) (id, name, email string) {
	id, name, email = buyer.UserID, buyer.Username, buyer.Email
	if buyer.CustomerID == "" || s.customers == nil {
		return
	}
	c, err := s.customers.FindByID(ctx, buyer.CustomerID)
	if err != nil {
		s.logger.Warn("Linked customer not found, using account details",
			zap.String("customer_id", buyer.CustomerID), zap.Error(err))
		return
	}
	return c.RowKey, c.FullName(), c.Email
}
