package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

type CustomerAPI interface {
	List(ctx context.Context, search string) ([]models.Customer, error)
	Get(ctx context.Context, id string) (*models.Customer, error)
	Create(ctx context.Context, in services.CustomerInput) (*models.Customer, error)
	Update(ctx context.Context, id string, in services.CustomerInput) (*models.Customer, error)
	Delete(ctx context.Context, id string) error
}

type CustomerController struct {
	service   CustomerAPI
	dashboard Invalidator
	validator *RequestValidator
}

func NewCustomerController(service CustomerAPI, dashboard Invalidator, v *RequestValidator) *CustomerController {
	return &CustomerController{service: service, dashboard: dashboard, validator: v}
}

func (cc *CustomerController) GetCustomers(c *gin.Context) {
	customers, err := cc.service.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (cc *CustomerController) GetCustomer(c *gin.Context) {
	cust, err := cc.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (cc *CustomerController) CreateCustomer(c *gin.Context) {
	var in services.CustomerInput
	if err := cc.validator.Bind(c, &in); err != nil {
		apperrors.Respond(c, err)
		return
	}
	cust, err := cc.service.Create(c.Request.Context(), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	cc.dashboard.Invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, cust)
}

func (cc *CustomerController) UpdateCustomer(c *gin.Context) {
	var in services.CustomerInput
	if err := cc.validator.Bind(c, &in); err != nil {
		apperrors.Respond(c, err)
		return
	}
	cust, err := cc.service.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (cc *CustomerController) DeleteCustomer(c *gin.Context) {
	if err := cc.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	cc.dashboard.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}
