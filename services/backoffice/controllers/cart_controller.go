package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

type CartAPI interface {
	Add(ctx context.Context, userID, productID string, qty int) (*models.CartLine, error)
	Update(ctx context.Context, userID, lineID string, qty int) (*models.CartLine, error)
	Remove(ctx context.Context, userID, lineID string) error
	List(ctx context.Context, userID string) (*services.CartView, error)
	Count(ctx context.Context, userID string) (int, error)
}

type CheckoutAPI interface {
	PrepareCheckout(ctx context.Context, userID string) (*services.CheckoutSummary, error)
	PlaceOrder(ctx context.Context, buyer services.Buyer) ([]models.Order, error)
}

type addToCartRequest struct {
	ProductID string `json:"productId" form:"productId" validate:"required"`
	Quantity  int    `json:"quantity" form:"quantity"`
}

type updateCartRequest struct {
	RowKey   string `json:"rowKey" form:"rowKey" validate:"required"`
	Quantity int    `json:"quantity" form:"quantity"`
}

type removeCartRequest struct {
	RowKey string `json:"rowKey" form:"rowKey" validate:"required"`
}

type CartController struct {
	cart      CartAPI
	checkout  CheckoutAPI
	validator *RequestValidator
}

func NewCartController(cart CartAPI, checkout CheckoutAPI, v *RequestValidator) *CartController {
	return &CartController{cart: cart, checkout: checkout, validator: v}
}

func userKey(id uint) string { return strconv.FormatUint(uint64(id), 10) }

// GetCart handles GET /cart
func (cc *CartController) GetCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	view, err := cc.cart.List(c.Request.Context(), userKey(p.UserID))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddToCart handles POST /cart/add
func (cc *CartController) AddToCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req addToCartRequest
	if err := cc.validator.Bind(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	line, err := cc.cart.Add(c.Request.Context(), userKey(p.UserID), req.ProductID, req.Quantity)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	count, _ := cc.cart.Count(c.Request.Context(), userKey(p.UserID))
	c.JSON(http.StatusOK, gin.H{"message": line.ProductName + " added to cart", "line": line, "cartCount": count})
}

// UpdateCart handles POST /cart/update
func (cc *CartController) UpdateCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req updateCartRequest
	if err := cc.validator.Bind(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}
	line, err := cc.cart.Update(c.Request.Context(), userKey(p.UserID), req.RowKey, req.Quantity)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if line == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated", "line": line})
}

// RemoveFromCart handles POST /cart/remove
func (cc *CartController) RemoveFromCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req removeCartRequest
	if err := cc.validator.Bind(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}
	if err := cc.cart.Remove(c.Request.Context(), userKey(p.UserID), req.RowKey); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

// Checkout handles GET /cart/checkout
func (cc *CartController) Checkout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	summary, err := cc.checkout.PrepareCheckout(c.Request.Context(), userKey(p.UserID))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// PlaceOrder handles POST /cart/placeorder
func (cc *CartController) PlaceOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orders, err := cc.checkout.PlaceOrder(c.Request.Context(), services.Buyer{
		UserID:     userKey(p.UserID),
		Username:   p.Username,
		Email:      p.Email,
		CustomerID: p.CustomerID,
	})
	if err != nil {
		appErr := apperrors.As(err)
		body := gin.H{"error": appErr.Message, "kind": appErr.Kind}
		var pe *services.PlacementError
		if errors.As(err, &pe) {
			body["placedOrderIds"] = pe.PlacedOrderIDs
		}
		c.JSON(appErr.Code, body)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully", "orders": orders})
}

// CartCount handles GET /cart/count
func (cc *CartController) CartCount(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	n, err := cc.cart.Count(c.Request.Context(), userKey(p.UserID))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}
