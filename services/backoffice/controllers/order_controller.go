package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

type OrderAPI interface {
	List(ctx context.Context, filter services.OrderFilter) ([]models.Order, error)
	Statuses() []models.OrderStatus
	Get(ctx context.Context, partitionKey, id string) (*models.Order, error)
	Create(ctx context.Context, req services.CreateOrderRequest) (*models.Order, error)
	UpdateStatus(ctx context.Context, partitionKey, id, status string) (*models.Order, error)
	Delete(ctx context.Context, partitionKey, id string) error
	Search(ctx context.Context, term string) ([]services.SearchResult, error)
}

type updateStatusRequest struct {
	PartitionKey string `json:"partitionKey" form:"partitionKey"`
	RowKey       string `json:"rowKey" form:"rowKey" validate:"required"`
	Status       string `json:"status" form:"status" validate:"required"`
}

type OrderController struct {
	service   OrderAPI
	dashboard Invalidator
	validator *RequestValidator
}

func NewOrderController(service OrderAPI, dashboard Invalidator, v *RequestValidator) *OrderController {
	return &OrderController{service: service, dashboard: dashboard, validator: v}
}

// GetOrders handles GET /orders?search=&status=
func (oc *OrderController) GetOrders(c *gin.Context) {
	orders, err := oc.service.List(c.Request.Context(), services.OrderFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "statuses": oc.service.Statuses()})
}

func (oc *OrderController) GetStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, oc.service.Statuses())
}

// GetOrder reads ?pk= for orders stored outside the default partition.
func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.service.Get(c.Request.Context(), c.Query("pk"), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := oc.validator.Bind(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}
	order, err := oc.service.Create(c.Request.Context(), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	oc.dashboard.Invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, order)
}

// UpdateOrderStatus handles POST /orders/updatestatus
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := oc.validator.Bind(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}
	order, err := oc.service.UpdateStatus(c.Request.Context(), req.PartitionKey, req.RowKey, req.Status)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	oc.dashboard.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order status updated to " + string(order.Status), "order": order})
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	if err := oc.service.Delete(c.Request.Context(), c.Query("pk"), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	oc.dashboard.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})
}

// SearchOrders handles GET /orders/search?term=
func (oc *OrderController) SearchOrders(c *gin.Context) {
	results, err := oc.service.Search(c.Request.Context(), c.Query("term"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
