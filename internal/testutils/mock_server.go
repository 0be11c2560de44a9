package testutils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// DefaultLatestBody is served for /latest/{base} unless overridden
const DefaultLatestBody = `{
	"result": "success",
	"time_last_update_unix": 1585267200,
	"time_next_update_unix": 1585353700,
	"base_code": "USD",
	"conversion_rates": {
		"USD": 1,
		"EUR": 0.9013,
		"GBP": 0.7679,
		"IDR": 16234.5,
		"JPY": 110.25
	}
}`

// DefaultPairBody is served for /pair/{from}/{to}/{amount} unless overridden
const DefaultPairBody = `{
	"result": "success",
	"time_last_update_unix": 1585267200,
	"time_next_update_unix": 1585353700,
	"base_code": "USD",
	"target_code": "IDR",
	"conversion_rate": 1.2345,
	"conversion_result": 123.45
}`

// MockResponse is one canned reply
type MockResponse struct {
	Status int
	Body   string
}

// MockExchangeRateServer imitates ExchangeRate-API v6 and records every request path
type MockExchangeRateServer struct {
	server *httptest.Server

	mu       sync.Mutex
	latest   MockResponse
	pair     MockResponse
	queued   []MockResponse
	delay    time.Duration
	requests []string
}

// NewMockExchangeRateServer creates a new mock exchange rate server
func NewMockExchangeRateServer() *MockExchangeRateServer {
	mock := &MockExchangeRateServer{
		latest: MockResponse{Status: http.StatusOK, Body: DefaultLatestBody},
		pair:   MockResponse{Status: http.StatusOK, Body: DefaultPairBody},
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

// handler handles HTTP requests to the mock server
func (m *MockExchangeRateServer) handler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()

	m.mu.Lock()
	m.requests = append(m.requests, path)
	delay := m.delay

	var response MockResponse
	switch {
	case len(m.queued) > 0:
		response = m.queued[0]
		m.queued = m.queued[1:]
	case r.Method != http.MethodGet:
		response = MockResponse{Status: http.StatusMethodNotAllowed, Body: `{"result":"error","error-type":"method-not-allowed"}`}
	case strings.Contains(path, "/latest/"):
		response = m.latest
	case strings.Contains(path, "/pair/"):
		response = m.pair
	default:
		response = MockResponse{Status: http.StatusNotFound, Body: `{"result":"error","error-type":"unsupported-code"}`}
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(response.Status)
	_, _ = w.Write([]byte(response.Body))
}

// URL returns the v6 base URL of the mock server, without the API key
func (m *MockExchangeRateServer) URL() string {
	return m.server.URL + "/v6"
}

// Close closes the mock server
func (m *MockExchangeRateServer) Close() {
	m.server.Close()
}

// SetLatestResponse overrides the reply for /latest/{base}
func (m *MockExchangeRateServer) SetLatestResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = MockResponse{Status: status, Body: body}
}

// SetPairResponse overrides the reply for /pair/{from}/{to}/{amount}
func (m *MockExchangeRateServer) SetPairResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = MockResponse{Status: status, Body: body}
}

// QueueResponse serves status/body once, for the next request on any route
func (m *MockExchangeRateServer) QueueResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, MockResponse{Status: status, Body: body})
}

// SetDelay holds every reply for d
func (m *MockExchangeRateServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Requests returns the escaped paths received so far
func (m *MockExchangeRateServer) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// RequestCount returns how many requests were received
func (m *MockExchangeRateServer) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
