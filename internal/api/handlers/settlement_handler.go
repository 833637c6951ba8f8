package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapframe/kiosk-analytics/internal/service"
)

type SettlementHandler struct {
	settlementService *service.SettlementService
}

func NewSettlementHandler(settlementService *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService}
}

// GetMonthly returns the per-store monthly settlement report
func (h *SettlementHandler) GetMonthly(c *gin.Context) {
	year, month, err := service.ParseSettlementMonth(c.Query("year"), c.Query("month"))
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.settlementService.Monthly(c.Request.Context(), year, month, c.Query("storeId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "month": month, "stores": report})
}

// GetDomestic returns the home-country settlement report
func (h *SettlementHandler) GetDomestic(c *gin.Context) {
	year, month, err := service.ParseSettlementMonth(c.Query("year"), c.Query("month"))
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.settlementService.Domestic(c.Request.Context(), year, month)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "month": month, "stores": report})
}

// GetOverseas returns the settlement report for stores outside the home country
func (h *SettlementHandler) GetOverseas(c *gin.Context) {
	year, month, err := service.ParseSettlementMonth(c.Query("year"), c.Query("month"))
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.settlementService.Overseas(c.Request.Context(), year, month)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "month": month, "stores": report})
}

// ExportMonthlyCSV streams the monthly report as a CSV download
func (h *SettlementHandler) ExportMonthlyCSV(c *gin.Context) {
	year, month, err := service.ParseSettlementMonth(c.Query("year"), c.Query("month"))
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := h.settlementService.ExportMonthlyCSV(c.Request.Context(), year, month, c.Query("storeId"))
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("settlement-%04d-%02d.csv", year, month)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", data)
}
