package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ResultSuccess is the "result" value ExchangeRate-API sends on success.
const ResultSuccess = "success"

// LatestRatesResponse is the body of GET /v6/{key}/latest/{base}
type LatestRatesResponse struct {
	Result             string                 `json:"result"`
	TimeLastUpdateUnix int64                  `json:"time_last_update_unix"`
	TimeNextUpdateUnix int64                  `json:"time_next_update_unix"`
	BaseCode           string                 `json:"base_code"`
	ConversionRates    map[string]json.Number `json:"conversion_rates"`
	ErrorType          string                 `json:"error-type,omitempty"`
}

// Codes returns the currency codes present in ConversionRates
func (r LatestRatesResponse) Codes() []string {
	codes := make([]string, 0, len(r.ConversionRates))
	for code := range r.ConversionRates {
		codes = append(codes, code)
	}
	return codes
}

// PairConversionResponse is the body of GET /v6/{key}/pair/{from}/{to}/{amount}
type PairConversionResponse struct {
	Result             string      `json:"result"`
	TimeLastUpdateUnix int64       `json:"time_last_update_unix"`
	TimeNextUpdateUnix int64       `json:"time_next_update_unix"`
	BaseCode           string      `json:"base_code"`
	TargetCode         string      `json:"target_code"`
	ConversionRate     json.Number `json:"conversion_rate"`
	ConversionResult   json.Number `json:"conversion_result"`
	ErrorType          string      `json:"error-type,omitempty"`
}

// UpstreamError is the body ExchangeRate-API sends alongside a failure status
type UpstreamError struct {
	Result    string `json:"result"`
	ErrorType string `json:"error-type"`
}

type CurrenciesResponse struct {
	Base  string   `json:"base"`
	Codes []string `json:"codes"`
}

type ConvertResponse struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Result string          `json:"result"`
}

type HealthCheck struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
