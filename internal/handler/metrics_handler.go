package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/participation-api/internal/service"
	"github.com/campuspulse/participation-api/pkg/response"
)

// MetricsHandler exposes the ops snapshot alongside the Prometheus scrape
// endpoint wired in the router.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler constructs MetricsHandler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Snapshot godoc
// @Summary Aggregated runtime metrics
// @Tags Ops
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ops/metrics [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
