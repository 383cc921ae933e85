package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

// CartView is a user's cart with totals.
type CartView struct {
	Lines      []models.CartLine `json:"lines"`
	TotalItems int               `json:"totalItems"`
	GrandTotal float64           `json:"grandTotal"`
}

func newCartView(lines []models.CartLine) *CartView {
	v := &CartView{Lines: lines}
	if v.Lines == nil {
		v.Lines = []models.CartLine{}
	}
	for i := range lines {
		v.TotalItems += lines[i].Quantity
		v.GrandTotal += lines[i].LineTotal()
	}
	return v
}

type CartService struct {
	carts    repository.CartRepo
	products repository.ProductRepo
	logger   *zap.Logger
	now      func() time.Time
}

func NewCartService(carts repository.CartRepo, products repository.ProductRepo, logger *zap.Logger) *CartService {
	return &CartService{carts: carts, products: products, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Add puts qty units of a product in the cart, merging with an existing line for
// the same product. The merged quantity may not exceed current stock.
func (s *CartService) Add(ctx context.Context, userID, productID string, qty int) (*models.CartLine, error) {
	if qty < 1 {
		return nil, apperrors.Validation("Quantity must be at least 1")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, storeError(err, "Product")
	}

	lines, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "Cart")
	}
	var existing *models.CartLine
	for i := range lines {
		if lines[i].ProductID == productID {
			existing = &lines[i]
			break
		}
	}

	inCart := 0
	if existing != nil {
		inCart = existing.Quantity
	}
	if inCart+qty > product.StockQuantity {
		return nil, apperrors.InsufficientStock("Not enough stock for %s. Available: %d, already in cart: %d",
			product.Name, product.StockQuantity, inCart)
	}

	if existing != nil {
		existing.Quantity += qty
		if err := s.carts.Update(ctx, existing); err != nil {
			return nil, storeError(err, "Cart item")
		}
		return existing, nil
	}

	line := &models.CartLine{
		UserID:      userID,
		ProductID:   product.RowKey,
		ProductName: product.Name,
		Price:       product.Price,
		ImageURL:    product.ImageURL,
		Quantity:    qty,
		AddedDate:   s.now(),
	}
	line.RowKey = uuid.NewString()
	if err := s.carts.Create(ctx, line); err != nil {
		return nil, storeError(err, "Cart item")
	}
	s.logger.Info("Product added to cart", zap.String("user_id", userID), zap.String("product_id", productID), zap.Int("quantity", qty))
	return line, nil
}

// Update sets a line's quantity. A quantity of zero or less removes the line and
// returns nil.
func (s *CartService) Update(ctx context.Context, userID, lineID string, qty int) (*models.CartLine, error) {
	if qty <= 0 {
		return nil, s.Remove(ctx, userID, lineID)
	}
	line, err := s.carts.FindLine(ctx, userID, lineID)
	if err != nil {
		return nil, storeError(err, "Cart item")
	}
	product, err := s.products.FindByID(ctx, line.ProductID)
	if err != nil {
		return nil, storeError(err, "Product")
	}
	if qty > product.StockQuantity {
		return nil, apperrors.InsufficientStock("Not enough stock for %s. Available: %d", product.Name, product.StockQuantity)
	}
	line.Quantity = qty
	if err := s.carts.Update(ctx, line); err != nil {
		return nil, storeError(err, "Cart item")
	}
	return line, nil
}

func (s *CartService) Remove(ctx context.Context, userID, lineID string) error {
	if err := s.carts.Delete(ctx, userID, lineID); err != nil {
		return storeError(err, "Cart item")
	}
	return nil
}

// List returns the cart oldest line first. Lines whose product no longer exists are
// removed from the cart and left out.
func (s *CartService) List(ctx context.Context, userID string) (*CartView, error) {
	lines, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "Cart")
	}

	kept := make([]models.CartLine, 0, len(lines))
	for _, l := range lines {
		_, err := s.products.FindByID(ctx, l.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("Dropping cart line for deleted product",
				zap.String("user_id", userID), zap.String("product_id", l.ProductID))
			if err := s.carts.Delete(ctx, userID, l.RowKey); err != nil && !errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("Failed to delete orphaned cart line", zap.String("line_id", l.RowKey), zap.Error(err))
			}
			continue
		}
		if err != nil {
			return nil, storeError(err, "Product")
		}
		kept = append(kept, l)
	}
	sortLines(kept)
	return newCartView(kept), nil
}

// sortLines orders lines by added date, then row key.
func sortLines(lines []models.CartLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].AddedDate.Equal(lines[j].AddedDate) {
			return lines[i].AddedDate.Before(lines[j].AddedDate)
		}
		return lines[i].RowKey < lines[j].RowKey
	})
}

// Count is the number of units in the cart.
func (s *CartService) Count(ctx context.Context, userID string) (int, error) {
	lines, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return 0, storeError(err, "Cart")
	}
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total, nil
}
