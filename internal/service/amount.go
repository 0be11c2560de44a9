package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// MaxAmountDigits bounds the significant digits of an amount
	MaxAmountDigits = 34
	// MaxAmountExponent bounds the decimal exponent of an amount in either direction
	MaxAmountExponent = 34
)

// ErrInvalidAmount is returned for amounts that do not parse or are out of range
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a decimal amount and rejects values whose text form
// would be unreasonably long, e.g. "1e2000000000".
func ParseAmount(text string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, text)
	}
	if err := CheckAmount(amount); err != nil {
		return decimal.Decimal{}, err
	}
	return amount, nil
}

// CheckAmount reports whether amount fits the digit and exponent bounds
func CheckAmount(amount decimal.Decimal) error {
	exponent := amount.Exponent()
	if exponent > MaxAmountExponent || exponent < -MaxAmountExponent {
		return fmt.Errorf("%w: exponent %d out of range", ErrInvalidAmount, exponent)
	}
	if amount.NumDigits() > MaxAmountDigits {
		return fmt.Errorf("%w: more than %d digits", ErrInvalidAmount, MaxAmountDigits)
	}
	return nil
}
