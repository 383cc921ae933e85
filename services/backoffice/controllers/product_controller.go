package controllers

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

type ProductAPI interface {
	List(ctx context.Context, filter services.ProductFilter) ([]models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, in services.ProductInput, image *multipart.FileHeader) (*models.Product, error)
	Update(ctx context.Context, id string, version int64, in services.ProductInput, image *multipart.FileHeader) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

// Invalidator drops cached aggregates after a write.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type ProductController struct {
	service   ProductAPI
	dashboard Invalidator
	validator *RequestValidator
}

func NewProductController(service ProductAPI, dashboard Invalidator, v *RequestValidator) *ProductController {
	return &ProductController{service: service, dashboard: dashboard, validator: v}
}

// GetProducts handles GET /products?search=&category=
func (pc *ProductController) GetProducts(c *gin.Context) {
	products, err := pc.service.List(c.Request.Context(), services.ProductFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	categories, err := pc.service.Categories(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "categories": categories})
}

func (pc *ProductController) GetCategories(c *gin.Context) {
	categories, err := pc.service.Categories(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (pc *ProductController) GetProduct(c *gin.Context) {
	p, err := pc.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateProduct accepts JSON or a multipart form with an optional "image" file.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var in services.ProductInput
	if err := pc.validator.Bind(c, &in); err != nil {
		apperrors.Respond(c, err)
		return
	}
	p, err := pc.service.Create(c.Request.Context(), in, optionalFile(c, "image"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	pc.dashboard.Invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, p)
}

func (pc *ProductController) UpdateProduct(c *gin.Context) {
	var in services.ProductInput
	if err := pc.validator.Bind(c, &in); err != nil {
		apperrors.Respond(c, err)
		return
	}
	version, err := versionParam(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	p, err := pc.service.Update(c.Request.Context(), c.Param("id"), version, in, optionalFile(c, "image"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	pc.dashboard.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) DeleteProduct(c *gin.Context) {
	if err := pc.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	pc.dashboard.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func optionalFile(c *gin.Context, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return fh
}

// versionParam reads the expected row version from the form or the query string.
// A missing value means the caller skipped the check.
func versionParam(c *gin.Context) (int64, error) {
	raw := c.PostForm("version")
	if raw == "" {
		raw = c.Query("version")
	}
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, apperrors.Validation("version must be a non-negative integer")
	}
	return v, nil
}
