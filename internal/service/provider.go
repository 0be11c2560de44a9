package service

import (
	"context"

	"currency-rate-api/internal/config"
	"currency-rate-api/internal/metrics"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// RateClient is the part of ExchangeClient the gateway and CLI depend on
type RateClient interface {
	ListCurrencyCodes(ctx context.Context) ([]string, error)
	Convert(ctx context.Context, from, to string, amount decimal.Decimal) (string, error)
}

var _ RateClient = (*ExchangeClient)(nil)

// NewRateClient builds the ExchangeClient described by configuration
func NewRateClient(configuration *config.Config, logger *logrus.Logger, m *metrics.Metrics) *ExchangeClient {
	return NewExchangeClient(configuration.ExchangeRateAPI, logger, WithMetrics(m))
}
