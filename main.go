package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"currency-rate-api/internal/api"
	"currency-rate-api/internal/config"
	"currency-rate-api/internal/logger"
	"currency-rate-api/internal/metrics"
	"currency-rate-api/internal/platform"
	"currency-rate-api/internal/ratelimit"
	"currency-rate-api/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize services
	appMetrics := metrics.New()
	rateClient := service.NewRateClient(cfg, logger, appMetrics)
	rateLimiter := ratelimit.NewLimiter(cfg, logger)

	// Initialize HTTP handlers
	handlerConfig := api.HandlerConfig{
		Logger:                logger,
		RateClient:            rateClient,
		RateLimiter:           rateLimiter,
		Metrics:               appMetrics,
		MaxConcurrentRequests: cfg.MaxConcurrentRequests,
		TrustedProxies:        cfg.TrustedProxies,
	}
	handlers := api.NewHandlers(handlerConfig)

	// Setup Gin router
	router := handlers.SetupRoutes()

	// Setup HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ExchangeRateAPI.Timeout + 5*time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("base_url", cfg.ExchangeRateAPI.BaseURL).Info("Starting currency rate gateway on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Create a shutdown context that works across platforms
	shutdownCtx, stop := platform.NewShutdownContext(context.Background())
	defer stop()
	<-shutdownCtx.Done()

	logger.Info("Shutting down server...")

	// Stop rate limiter cleanup
	rateLimiter.Stop()

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
