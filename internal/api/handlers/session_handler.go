package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/snapframe/kiosk-analytics/internal/domain"
	"github.com/snapframe/kiosk-analytics/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// CreateSession opens a new kiosk session
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var in service.CreateSessionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.sessionService.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// UpdateSession applies a partial update to an open session
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	var in service.UpdateSessionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.sessionService.Update(c.Request.Context(), c.Param("sessionId"), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetSession returns one session by its client-assigned id
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessionService.Get(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSessions returns sessions matching the query filters
func (h *SessionHandler) ListSessions(c *gin.Context) {
	filter := domain.SessionFilter{
		KioskID: c.Query("kioskId"),
		StoreID: c.Query("storeId"),
		Status:  domain.SessionStatus(c.Query("status")),
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	sessions, total, err := h.sessionService.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "total": total})
}
