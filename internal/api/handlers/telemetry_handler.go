package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapframe/kiosk-analytics/internal/service"
)

type TelemetryHandler struct {
	telemetryService *service.TelemetryService
}

func NewTelemetryHandler(telemetryService *service.TelemetryService) *TelemetryHandler {
	return &TelemetryHandler{telemetryService: telemetryService}
}

// IngestMetrics accepts a batch of latency measurements
func (h *TelemetryHandler) IngestMetrics(c *gin.Context) {
	var batch []service.MetricInput
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	count, err := h.telemetryService.IngestMetrics(c.Request.Context(), batch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"inserted": count})
}

// IngestErrors accepts a batch of error reports
func (h *TelemetryHandler) IngestErrors(c *gin.Context) {
	var batch []service.ErrorReportInput
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	count, err := h.telemetryService.IngestErrors(c.Request.Context(), batch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"inserted": count})
}
