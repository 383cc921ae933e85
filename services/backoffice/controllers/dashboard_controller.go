package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

type DashboardAPI interface {
	Summary(ctx context.Context) (*models.Dashboard, error)
}

type DashboardController struct {
	service DashboardAPI
}

func NewDashboardController(service DashboardAPI) *DashboardController {
	return &DashboardController{service: service}
}

func (dc *DashboardController) GetDashboard(c *gin.Context) {
	d, err := dc.service.Summary(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Health is the unauthenticated liveness probe.
func Health(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": service})
	}
}
