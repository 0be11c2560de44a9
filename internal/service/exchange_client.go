package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"currency-rate-api/internal/config"
	"currency-rate-api/internal/metrics"
	"currency-rate-api/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultBaseCurrency is the base used when listing currency codes
	DefaultBaseCurrency = "USD"
	// DefaultTimeout bounds a request when the configuration leaves it unset
	DefaultTimeout = 10 * time.Second

	routeLatest = "latest"
	routePair   = "pair"
	routeOther  = "other"

	outcomeSuccess        = "success"
	outcomeHTTPError      = "http_error"
	outcomeTransportError = "transport_error"
	outcomeMalformed      = "malformed"

	maxResponseBytes = 4 << 20
)

// ExchangeClient talks to ExchangeRate-API v6. It keeps no state between calls:
// every operation re-reads the API key and performs exactly one GET.
type ExchangeClient struct {
	configuration config.ExchangeRateAPI
	logger        *logrus.Logger
	httpClient    *http.Client
	metrics       *metrics.Metrics
}

// ClientOption customises an ExchangeClient
type ClientOption func(*ExchangeClient)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(client *ExchangeClient) {
		if httpClient != nil {
			client.httpClient = httpClient
		}
	}
}

// WithMetrics records every upstream call on m
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(client *ExchangeClient) {
		client.metrics = m
	}
}

// NewExchangeClient creates a new exchange client
func NewExchangeClient(configuration config.ExchangeRateAPI, logger *logrus.Logger, options ...ClientOption) *ExchangeClient {
	if configuration.BaseURL == "" {
		configuration.BaseURL = config.DefaultBaseURL
	}
	if configuration.PropertiesPath == "" {
		configuration.PropertiesPath = config.DefaultPropertiesPath
	}
	if configuration.Timeout <= 0 {
		configuration.Timeout = DefaultTimeout
	}

	client := &ExchangeClient{
		configuration: configuration,
		logger:        logger,
		httpClient:    newHTTPClient(),
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// newHTTPClient builds the transport; the per-request deadline comes from the context.
func newHTTPClient() *http.Client {
	httpTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Transport: httpTransport}
}

// LoadAPIKey reads API_KEY from the properties file
func (client *ExchangeClient) LoadAPIKey() (string, error) {
	apiKey, err := config.LoadAPIKey(client.configuration.PropertiesPath)
	if err != nil {
		client.logger.WithField("path", client.configuration.PropertiesPath).Errorf("Unable to load API key: %v", err)
		return "", &ServiceError{
			Type:    ErrorTypeConfigMissing,
			Message: "api key unavailable",
			Cause:   err,
		}
	}
	return apiKey, nil
}

// BuildBaseURL joins the API host and key. It is a pure function of its inputs.
func BuildBaseURL(host, apiKey string) string {
	return strings.TrimRight(host, "/") + "/" + apiKey
}

// BaseURL loads the API key and returns the keyed base URL
func (client *ExchangeClient) BaseURL() (string, error) {
	apiKey, err := client.LoadAPIKey()
	if err != nil {
		return "", err
	}
	return BuildBaseURL(client.configuration.BaseURL, apiKey), nil
}

// FetchJSON performs one GET against requestURL and decodes a 200 body into out.
// Every failure is logged once here and returned as a *ServiceError.
func (client *ExchangeClient) FetchJSON(ctx context.Context, requestURL string, out interface{}) error {
	route := routeOf(requestURL)
	fields := logrus.Fields{"route": route}

	startedAt := time.Now()
	outcome := outcomeSuccess
	defer func() {
		client.metrics.ObserveUpstream(route, outcome, time.Since(startedAt))
	}()

	requestContext, cancel := context.WithTimeout(ctx, client.configuration.Timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(requestContext, http.MethodGet, requestURL, nil)
	if err != nil {
		outcome = outcomeTransportError
		cause := redactURL(err)
		client.logger.WithFields(fields).Errorf("Failed to create request: %v", cause)
		return &ServiceError{
			Type:    ErrorTypeTransportFailure,
			Message: "failed to create request",
			Cause:   cause,
		}
	}
	request.Header.Set("Accept", "application/json")

	client.logger.WithFields(fields).Debug("Sending request to exchange rate api")

	response, err := client.httpClient.Do(request)
	if err != nil {
		outcome = outcomeTransportError
		cause := redactURL(err)
		client.logger.WithFields(fields).Errorf("An error occurred during the API request: %v", cause)
		return &ServiceError{
			Type:    ErrorTypeTransportFailure,
			Message: "request to exchange rate api failed",
			Timeout: isTimeout(err),
			Cause:   cause,
		}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		outcome = outcomeTransportError
		cause := redactURL(err)
		client.logger.WithFields(fields).Errorf("Failed to read response body: %v", cause)
		return &ServiceError{
			Type:    ErrorTypeTransportFailure,
			Message: "failed to read response body",
			Timeout: isTimeout(err),
			Cause:   cause,
		}
	}

	if response.StatusCode != http.StatusOK {
		outcome = outcomeHTTPError
		upstreamErrorType := parseUpstreamErrorType(body)
		fields["status"] = response.StatusCode
		if upstreamErrorType != "" {
			fields["error_type"] = upstreamErrorType
		}
		client.logger.WithFields(fields).Errorf("GET request failed with response code: %d", response.StatusCode)
		return &ServiceError{
			Type:              ErrorTypeHTTPNonSuccess,
			Message:           fmt.Sprintf("exchange rate api returned status %d", response.StatusCode),
			StatusCode:        response.StatusCode,
			UpstreamErrorType: upstreamErrorType,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		outcome = outcomeMalformed
		client.logger.WithFields(fields).Errorf("Failed to parse response: %v", err)
		return &ServiceError{
			Type:    ErrorTypeMalformedResponse,
			Message: "failed to parse response",
			Cause:   err,
		}
	}

	return nil
}

// LatestRates fetches the latest rates document for base
func (client *ExchangeClient) LatestRates(ctx context.Context, base string) (models.LatestRatesResponse, error) {
	baseURL, err := client.BaseURL()
	if err != nil {
		return models.LatestRatesResponse{}, err
	}

	var response models.LatestRatesResponse
	if err := client.FetchJSON(ctx, baseURL+"/latest/"+url.PathEscape(base), &response); err != nil {
		return models.LatestRatesResponse{}, err
	}
	if err := client.checkResult(routeLatest, response.Result, response.ErrorType); err != nil {
		return models.LatestRatesResponse{}, err
	}
	return response, nil
}

// ListCurrencyCodes returns the currency codes ExchangeRate-API quotes against USD,
// sorted ascending.
func (client *ExchangeClient) ListCurrencyCodes(ctx context.Context) ([]string, error) {
	latest, err := client.LatestRates(ctx, DefaultBaseCurrency)
	if err != nil {
		return nil, err
	}

	codes := latest.Codes()
	if len(codes) == 0 {
		client.logger.WithField("route", routeLatest).Error("Response has no conversion_rates")
		return nil, &ServiceError{
			Type:    ErrorTypeMalformedResponse,
			Message: "response has no conversion_rates",
		}
	}

	sort.Strings(codes)
	return codes, nil
}

// Pair fetches the pair conversion document for amount of from in to
func (client *ExchangeClient) Pair(ctx context.Context, from, to string, amount decimal.Decimal) (models.PairConversionResponse, error) {
	if err := CheckAmount(amount); err != nil {
		client.logger.WithField("route", routePair).Errorf("Rejected amount: %v", err)
		return models.PairConversionResponse{}, err
	}

	baseURL, err := client.BaseURL()
	if err != nil {
		return models.PairConversionResponse{}, err
	}

	requestURL := fmt.Sprintf("%s/pair/%s/%s/%s", baseURL, url.PathEscape(from), url.PathEscape(to), amount.String())

	var response models.PairConversionResponse
	if err := client.FetchJSON(ctx, requestURL, &response); err != nil {
		return models.PairConversionResponse{}, err
	}
	if err := client.checkResult(routePair, response.Result, response.ErrorType); err != nil {
		return models.PairConversionResponse{}, err
	}
	return response, nil
}

// Convert returns conversion_result for amount of from in to, as the upstream wrote it
func (client *ExchangeClient) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (string, error) {
	pair, err := client.Pair(ctx, from, to, amount)
	if err != nil {
		return "", err
	}

	if pair.ConversionResult == "" {
		client.logger.WithField("route", routePair).Error("Response has no conversion_result")
		return "", &ServiceError{
			Type:    ErrorTypeMalformedResponse,
			Message: "response has no conversion_result",
		}
	}

	return pair.ConversionResult.String(), nil
}

// checkResult rejects a 200 reply whose body reports "result":"error"
func (client *ExchangeClient) checkResult(route, result, upstreamErrorType string) error {
	if result == "" || result == models.ResultSuccess {
		return nil
	}

	client.logger.WithFields(logrus.Fields{
		"route":      route,
		"result":     result,
		"error_type": upstreamErrorType,
	}).Error("Exchange rate api reported an error")
	return &ServiceError{
		Type:              ErrorTypeHTTPNonSuccess,
		Message:           "exchange rate api reported an error",
		StatusCode:        http.StatusOK,
		UpstreamErrorType: upstreamErrorType,
	}
}

func routeOf(requestURL string) string {
	switch {
	case strings.Contains(requestURL, "/latest/"):
		return routeLatest
	case strings.Contains(requestURL, "/pair/"):
		return routePair
	default:
		return routeOther
	}
}

func parseUpstreamErrorType(body []byte) string {
	var upstreamError models.UpstreamError
	if err := json.Unmarshal(body, &upstreamError); err != nil {
		return ""
	}
	return upstreamError.ErrorType
}

// redactURL drops the request URL, which embeds the API key, from net/http errors
func redactURL(err error) error {
	var urlError *url.Error
	if errors.As(err, &urlError) {
		return fmt.Errorf("%s: %w", urlError.Op, urlError.Err)
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netError net.Error
	return errors.As(err, &netError) && netError.Timeout()
}
