package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/snapframe/kiosk-analytics/internal/api/handlers"
	"github.com/snapframe/kiosk-analytics/internal/api/middleware"
	"github.com/snapframe/kiosk-analytics/internal/service"
)

type Services struct {
	SalesService      *service.SalesService
	SettlementService *service.SettlementService
	SessionService    *service.SessionService
	TelemetryService  *service.TelemetryService
	RollupService     *service.RollupService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.SalesService != nil {
			salesHandler := handlers.NewSalesHandler(services.SalesService)
			salesGroup := apiGroup.Group("/sales")
			{
				salesGroup.POST("", salesHandler.CreateSale)
				salesGroup.GET("", salesHandler.ListSales)
				salesGroup.GET("/:id", salesHandler.GetSale)
				salesGroup.POST("/:id/refund", salesHandler.RefundSale)
			}
		}

		if services.SettlementService != nil {
			settlementHandler := handlers.NewSettlementHandler(services.SettlementService)
			settlementGroup := apiGroup.Group("/settlements")
			{
				settlementGroup.GET("/monthly", settlementHandler.GetMonthly)
				settlementGroup.GET("/domestic", settlementHandler.GetDomestic)
				settlementGroup.GET("/overseas", settlementHandler.GetOverseas)
				settlementGroup.GET("/monthly/export", settlementHandler.ExportMonthlyCSV)
			}
		}

		if services.SessionService != nil {
			sessionHandler := handlers.NewSessionHandler(services.SessionService)
			sessionGroup := apiGroup.Group("/sessions")
			{
				sessionGroup.POST("", sessionHandler.CreateSession)
				sessionGroup.GET("", sessionHandler.ListSessions)
				sessionGroup.GET("/:sessionId", sessionHandler.GetSession)
				sessionGroup.PUT("/:sessionId", sessionHandler.UpdateSession)
			}
		}

		if services.TelemetryService != nil {
			telemetryHandler := handlers.NewTelemetryHandler(services.TelemetryService)
			telemetryGroup := apiGroup.Group("/telemetry")
			{
				telemetryGroup.POST("/metrics", telemetryHandler.IngestMetrics)
				telemetryGroup.POST("/errors", telemetryHandler.IngestErrors)
			}
		}

		if services.RollupService != nil {
			summaryHandler := handlers.NewSummaryHandler(services.RollupService)
			summaryGroup := apiGroup.Group("/summaries")
			{
				summaryGroup.POST("/rollup", summaryHandler.RunRollup)
				summaryGroup.GET("", summaryHandler.ListSummaries)
				summaryGroup.GET("/:date/:kioskId", summaryHandler.GetSummary)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
