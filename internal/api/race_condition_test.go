package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"currency-rate-api/internal/testutils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// blockingRateClient tracks how many calls are in flight at once
type blockingRateClient struct {
	inFlight    int32
	maxInFlight int32
	hold        time.Duration
}

func (b *blockingRateClient) enter() {
	current := atomic.AddInt32(&b.inFlight, 1)
	for {
		seen := atomic.LoadInt32(&b.maxInFlight)
		if current <= seen || atomic.CompareAndSwapInt32(&b.maxInFlight, seen, current) {
			break
		}
	}
	time.Sleep(b.hold)
	atomic.AddInt32(&b.inFlight, -1)
}

func (b *blockingRateClient) ListCurrencyCodes(ctx context.Context) ([]string, error) {
	b.enter()
	return []string{"USD"}, nil
}

func (b *blockingRateClient) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (string, error) {
	b.enter()
	return "1", nil
}

// TestRaceConditionUpstreamBound checks MaxConcurrentRequests under concurrent load
func TestRaceConditionUpstreamBound(t *testing.T) {
	const maxConcurrent = 3
	const numGoroutines = 20

	rateClient := &blockingRateClient{hold: 20 * time.Millisecond}
	handlers := NewHandlers(HandlerConfig{
		Logger:                testutils.MockLogger(),
		RateClient:            rateClient,
		MaxConcurrentRequests: maxConcurrent,
	})

	gin.SetMode(gin.TestMode)
	router := handlers.SetupRoutes()

	var wg sync.WaitGroup
	statuses := make(chan int, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()

			path := "/api/v1/currencies"
			if goroutineID%2 == 0 {
				path = "/api/v1/convert/USD/EUR/1"
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
			statuses <- w.Code
		}(i)
	}

	wg.Wait()
	close(statuses)

	for status := range statuses {
		if status != http.StatusOK {
			t.Errorf("concurrent request status = %v, want %v", status, http.StatusOK)
		}
	}

	if got := atomic.LoadInt32(&rateClient.maxInFlight); got > maxConcurrent {
		t.Errorf("max in-flight upstream calls = %d, want <= %d", got, maxConcurrent)
	}
}

// TestRaceConditionUpstreamBound_Cancelled checks a waiting request gives up with its context
func TestRaceConditionUpstreamBound_Cancelled(t *testing.T) {
	rateClient := &blockingRateClient{hold: 300 * time.Millisecond}
	handlers := NewHandlers(HandlerConfig{
		Logger:                testutils.MockLogger(),
		RateClient:            rateClient,
		MaxConcurrentRequests: 1,
	})

	gin.SetMode(gin.TestMode)
	router := handlers.SetupRoutes()

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(started)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/currencies", nil))
	}()
	<-started
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/currencies", nil).WithContext(ctx))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("waiting request status = %v, want %v", w.Code, http.StatusServiceUnavailable)
	}

	<-done
}
