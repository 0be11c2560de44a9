package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"currency-rate-api/internal/metrics"
	"currency-rate-api/internal/middleware"
	"currency-rate-api/internal/models"
	"currency-rate-api/internal/ratelimit"
	"currency-rate-api/internal/service"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HandlerConfig holds the dependencies of Handlers
type HandlerConfig struct {
	Logger      *logrus.Logger
	RateClient  service.RateClient
	RateLimiter *ratelimit.Limiter
	Metrics     *metrics.Metrics
	// MaxConcurrentRequests bounds in-flight upstream calls; <= 0 means unbounded
	MaxConcurrentRequests int
	// TrustedProxies may set the client IP through X-Forwarded-For; nil trusts none
	TrustedProxies []string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	logger      *logrus.Logger
	startTime   time.Time
	rateClient  service.RateClient
	rateLimiter *ratelimit.Limiter
	metrics     *metrics.Metrics
	upstream    *semaphore.Weighted

	trustedProxies []string
}

// NewHandlers creates a new handlers instance
func NewHandlers(handlerConfig HandlerConfig) *Handlers {
	handlers := &Handlers{
		logger:      handlerConfig.Logger,
		startTime:   time.Now(),
		rateClient:  handlerConfig.RateClient,
		rateLimiter: handlerConfig.RateLimiter,
		metrics:     handlerConfig.Metrics,

		trustedProxies: handlerConfig.TrustedProxies,
	}
	if handlerConfig.MaxConcurrentRequests > 0 {
		handlers.upstream = semaphore.NewWeighted(int64(handlerConfig.MaxConcurrentRequests))
	}
	return handlers
}

// SetupRoutes configures all the routes using Gin
func (handlers *Handlers) SetupRoutes() *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(handlers.trustedProxies); err != nil {
		handlers.logger.WithError(err).Warn("Invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(handlers.logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(handlers.corsMiddleware())
	if handlers.metrics != nil {
		router.Use(middleware.Metrics(handlers.metrics))
	}

	router.GET("/health", handlers.HealthCheck)
	if handlers.metrics != nil {
		router.GET("/metrics", gin.WrapH(handlers.metrics.Handler()))
	}

	apiV1 := router.Group("/api/v1")
	if handlers.rateLimiter != nil {
		apiV1.Use(handlers.rateLimiter.Middleware())
	}
	{
		apiV1.GET("/currencies", handlers.ListCurrencies)
		apiV1.GET("/convert/:from/:to/:amount", handlers.Convert)
	}

	return router
}

// HealthCheck handles health check requests. It does not call upstream.
func (handlers *Handlers) HealthCheck(context *gin.Context) {
	healthCheckResponse := models.HealthCheck{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(handlers.startTime).String(),
	}

	context.JSON(http.StatusOK, healthCheckResponse)
}

// ListCurrencies returns the currency codes supported upstream
func (handlers *Handlers) ListCurrencies(context *gin.Context) {
	if handlers.rateClient == nil {
		handlers.writeErrorResponse(context, http.StatusServiceUnavailable, "rates service unavailable", "not configured")
		return
	}

	release, ok := handlers.acquireUpstream(context)
	if !ok {
		return
	}
	defer release()

	codes, fetchError := handlers.rateClient.ListCurrencyCodes(context.Request.Context())
	if fetchError != nil {
		handlers.writeServiceError(context, "failed to fetch currency codes", fetchError)
		return
	}

	context.JSON(http.StatusOK, models.CurrenciesResponse{
		Base:  service.DefaultBaseCurrency,
		Codes: codes,
	})
}

// Convert converts an amount between two currencies
func (handlers *Handlers) Convert(context *gin.Context) {
	if handlers.rateClient == nil {
		handlers.writeErrorResponse(context, http.StatusServiceUnavailable, "rates service unavailable", "not configured")
		return
	}

	from := strings.ToUpper(context.Param("from"))
	to := strings.ToUpper(context.Param("to"))
	amount, parseError := service.ParseAmount(context.Param("amount"))
	if parseError != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "Invalid amount", parseError.Error())
		return
	}

	release, ok := handlers.acquireUpstream(context)
	if !ok {
		return
	}
	defer release()

	result, convertError := handlers.rateClient.Convert(context.Request.Context(), from, to, amount)
	if convertError != nil {
		handlers.writeServiceError(context, "failed to convert amount", convertError)
		return
	}

	context.JSON(http.StatusOK, models.ConvertResponse{
		From:   from,
		To:     to,
		Amount: amount,
		Result: result,
	})
}

// acquireUpstream waits for an upstream slot; on failure the response is already written
func (handlers *Handlers) acquireUpstream(context *gin.Context) (func(), bool) {
	if handlers.upstream == nil {
		return func() {}, true
	}
	if err := handlers.upstream.Acquire(context.Request.Context(), 1); err != nil {
		handlers.writeErrorResponse(context, http.StatusServiceUnavailable, "upstream busy", err.Error())
		return nil, false
	}
	return func() { handlers.upstream.Release(1) }, true
}

// writeServiceError maps client errors to gateway status codes. The client has
// already logged the failure; the detail goes to the request log only.
func (handlers *Handlers) writeServiceError(context *gin.Context, errorMessage string, serviceError error) {
	statusCode := http.StatusBadGateway
	errorType := service.ClassifyError(serviceError)

	switch {
	case errors.Is(serviceError, service.ErrInvalidAmount):
		statusCode = http.StatusBadRequest
	case errorType == service.ErrorTypeConfigMissing:
		statusCode = http.StatusServiceUnavailable
	case errorType == service.ErrorTypeTransportFailure && isDeadline(serviceError):
		statusCode = http.StatusGatewayTimeout
	}

	_ = context.Error(serviceError)
	handlers.writeErrorResponse(context, statusCode, errorMessage, publicDetail(serviceError))
}

// publicDetail describes err without server-side details such as file paths
func publicDetail(err error) string {
	if errors.Is(err, service.ErrInvalidAmount) {
		return service.ErrInvalidAmount.Error()
	}

	var serviceError *service.ServiceError
	if !errors.As(err, &serviceError) {
		return service.ErrorTypeUnknown.String()
	}
	if serviceError.UpstreamErrorType != "" {
		return serviceError.Type.String() + ": " + serviceError.UpstreamErrorType
	}
	return serviceError.Type.String()
}

func isDeadline(err error) bool {
	var serviceError *service.ServiceError
	if errors.As(err, &serviceError) && serviceError.Timeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// writeErrorResponse writes an error response using Gin context
func (handlers *Handlers) writeErrorResponse(context *gin.Context, statusCode int, errorMessage, errorDetails string) {
	errorResponse := models.ErrorResponse{
		Error:   errorMessage,
		Message: errorDetails,
		Code:    statusCode,
	}

	context.AbortWithStatusJSON(statusCode, errorResponse)
}

// corsMiddleware adds CORS headers using Gin middleware
func (handlers *Handlers) corsMiddleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		context.Header("Access-Control-Allow-Origin", "*")
		context.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		context.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if context.Request.Method == "OPTIONS" {
			context.AbortWithStatus(http.StatusOK)
			return
		}

		context.Next()
	}
}
