package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"currency-rate-api/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Limiter implements a token bucket rate limiter per IP
type Limiter struct {
	Configuration *config.Config
	logger        *logrus.Logger

	// Map of IP -> token bucket
	clientBuckets map[string]*TokenBucket
	bucketsMutex  sync.Mutex

	// Cleanup goroutine control
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

// TokenBucket represents a token bucket for rate limiting
type TokenBucket struct {
	capacity     int
	tokens       int
	lastRefill   time.Time
	refillRate   int
	refillPeriod time.Duration
	mu           sync.Mutex
}

// NewLimiter creates a new rate limiter
func NewLimiter(configuration *config.Config, logger *logrus.Logger) *Limiter {
	rateLimiter := &Limiter{
		Configuration: configuration,
		logger:        logger,
		clientBuckets: make(map[string]*TokenBucket),
		cleanupTicker: time.NewTicker(5 * time.Minute),
		stopCleanup:   make(chan struct{}),
	}

	go rateLimiter.cleanup()

	return rateLimiter
}

// Allow checks if a request from the given IP is allowed
func (rateLimiter *Limiter) Allow(clientIP string) bool {
	if !rateLimiter.Configuration.RateLimitEnabled {
		return true
	}

	rateLimiter.bucketsMutex.Lock()
	tokenBucket, bucketExists := rateLimiter.clientBuckets[clientIP]
	if !bucketExists {
		tokenBucket = &TokenBucket{
			capacity:     rateLimiter.Configuration.RateLimitBurst,
			tokens:       rateLimiter.Configuration.RateLimitBurst,
			lastRefill:   time.Now(),
			refillRate:   rateLimiter.Configuration.RateLimitRequests,
			refillPeriod: rateLimiter.Configuration.RateLimitWindow,
		}
		rateLimiter.clientBuckets[clientIP] = tokenBucket
	}
	rateLimiter.bucketsMutex.Unlock()

	return tokenBucket.Allow()
}

// Middleware rejects requests over the limit with 429. Clients are keyed by
// gin's ClientIP, so forwarding headers only count when the engine trusts the
// peer (see gin.Engine.SetTrustedProxies).
func (rateLimiter *Limiter) Middleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		clientIP := context.ClientIP()

		if !rateLimiter.Allow(clientIP) {
			rateLimiter.logger.WithField("client_ip", clientIP).Warn("Rate limit exceeded")
			context.Header("X-RateLimit-Limit", strconv.Itoa(rateLimiter.Configuration.RateLimitRequests))
			context.Header("X-RateLimit-Remaining", "0")
			context.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rateLimiter.Configuration.RateLimitWindow).Unix(), 10))
			context.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		context.Next()
	}
}

// cleanup removes idle buckets
func (rateLimiter *Limiter) cleanup() {
	for {
		select {
		case <-rateLimiter.cleanupTicker.C:
			rateLimiter.bucketsMutex.Lock()
			currentTime := time.Now()
			for clientIP, tokenBucket := range rateLimiter.clientBuckets {
				tokenBucket.mu.Lock()
				if currentTime.Sub(tokenBucket.lastRefill) > 24*time.Hour {
					delete(rateLimiter.clientBuckets, clientIP)
				}
				tokenBucket.mu.Unlock()
			}
			rateLimiter.bucketsMutex.Unlock()
		case <-rateLimiter.stopCleanup:
			rateLimiter.cleanupTicker.Stop()
			return
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (rateLimiter *Limiter) Stop() {
	rateLimiter.stopOnce.Do(func() {
		close(rateLimiter.stopCleanup)
	})
}

// Allow checks if a token is available in the bucket
func (tokenBucket *TokenBucket) Allow() bool {
	tokenBucket.mu.Lock()
	defer tokenBucket.mu.Unlock()

	currentTime := time.Now()

	// Refill tokens based on time elapsed
	if currentTime.After(tokenBucket.lastRefill) && tokenBucket.refillPeriod > 0 {
		timeElapsed := currentTime.Sub(tokenBucket.lastRefill)
		tokensToAdd := int(timeElapsed.Seconds() / tokenBucket.refillPeriod.Seconds() * float64(tokenBucket.refillRate))

		if tokensToAdd > 0 {
			tokenBucket.tokens = min(tokenBucket.capacity, tokenBucket.tokens+tokensToAdd)
			tokenBucket.lastRefill = currentTime
		}
	}

	if tokenBucket.tokens > 0 {
		tokenBucket.tokens--
		return true
	}

	return false
}
