package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/snapframe/kiosk-analytics/internal/domain"
	"github.com/snapframe/kiosk-analytics/internal/service"
)

type SummaryHandler struct {
	rollupService *service.RollupService
}

func NewSummaryHandler(rollupService *service.RollupService) *SummaryHandler {
	return &SummaryHandler{rollupService: rollupService}
}

type rollupRequest struct {
	Date    string `json:"date" binding:"required"`
	KioskID string `json:"kioskId"`
}

// RunRollup triggers the daily aggregation for one date
func (h *SummaryHandler) RunRollup(c *gin.Context) {
	var req rollupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}

	result, err := h.rollupService.Aggregate(c.Request.Context(), req.Date, req.KioskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSummary returns the stored summary for one kiosk and day
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	summary, err := h.rollupService.Summary(c.Request.Context(), c.Param("date"), c.Param("kioskId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ListSummaries returns stored summaries matching the query filters
func (h *SummaryHandler) ListSummaries(c *gin.Context) {
	filter := domain.SummaryFilter{
		KioskID:  c.Query("kioskId"),
		StoreID:  c.Query("storeId"),
		DateFrom: c.Query("from"),
		DateTo:   c.Query("to"),
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	summaries, total, err := h.rollupService.Summaries(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summaries": summaries, "total": total})
}
