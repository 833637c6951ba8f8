package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/snapframe/kiosk-analytics/internal/service"
)

type SalesHandler struct {
	salesService *service.SalesService
}

func NewSalesHandler(salesService *service.SalesService) *SalesHandler {
	return &SalesHandler{salesService: salesService}
}

// CreateSale records a new ledger entry
func (h *SalesHandler) CreateSale(c *gin.Context) {
	var in service.CreateSaleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sale, err := h.salesService.Record(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.salesService.Serialize(sale))
}

// ListSales returns ledger entries matching the query filters
func (h *SalesHandler) ListSales(c *gin.Context) {
	filter := service.ListFilter{
		StoreID: c.Query("storeId"),
		KioskID: c.Query("kioskId"),
		Status:  c.Query("status"),
		From:    c.Query("from"),
		To:      c.Query("to"),
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	sales, total, err := h.salesService.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sales": sales, "total": total})
}

// GetSale returns one ledger entry by id
func (h *SalesHandler) GetSale(c *gin.Context) {
	sale, err := h.salesService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.salesService.Serialize(sale))
}

type refundRequest struct {
	Reason string `json:"reason" binding:"required"`
	Actor  string `json:"actor" binding:"required"`
}

// RefundSale transitions a completed sale to refunded
func (h *SalesHandler) RefundSale(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason and actor are required"})
		return
	}

	sale, err := h.salesService.Refund(c.Request.Context(), c.Param("id"), req.Reason, req.Actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.salesService.Serialize(sale))
}
