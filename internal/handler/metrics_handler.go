package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/site-requisition-api/internal/service"
	"github.com/noah-isme/site-requisition-api/pkg/response"
)

// MetricsHandler serves the Prometheus scrape endpoint and an admin-facing
// counters snapshot.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler constructs MetricsHandler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Prometheus exposes the scrape endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Snapshot godoc
// @Summary Runtime counters snapshot
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/metrics [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
