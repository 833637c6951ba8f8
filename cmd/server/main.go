package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snapframe/kiosk-analytics/internal/api"
	"github.com/snapframe/kiosk-analytics/internal/cache"
	"github.com/snapframe/kiosk-analytics/internal/config"
	"github.com/snapframe/kiosk-analytics/internal/repository/postgres"
	"github.com/snapframe/kiosk-analytics/internal/service"
	"github.com/snapframe/kiosk-analytics/internal/storage"
	"github.com/snapframe/kiosk-analytics/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	salesRepo := postgres.NewSalesRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	telemetryRepo := postgres.NewTelemetryRepository(db)
	summaryRepo := postgres.NewSummaryRepository(db)
	storeRepo := postgres.NewStoreRepository(db)

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to redis")
	}

	var archive storage.ObjectStorage
	if cfg.Archive.Enabled {
		archiveClient, err := storage.NewArchiveClient(cfg.Archive)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize archive storage")
		}
		archive = archiveClient
	}

	services := &api.Services{
		SalesService:      service.NewSalesService(salesRepo, reportCache),
		SettlementService: service.NewSettlementService(salesRepo, storeRepo, reportCache, archive, cfg.Settlement),
		SessionService:    service.NewSessionService(sessionRepo),
		TelemetryService:  service.NewTelemetryService(telemetryRepo),
		RollupService:     service.NewRollupService(sessionRepo, salesRepo, telemetryRepo, summaryRepo, storeRepo, cfg.Rollup.BatchSize),
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
