package domain

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 currency code supported by the payment provider.
type Currency string

const (
	CurrencyKES Currency = "KES"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyNGN Currency = "NGN"
)

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case CurrencyKES, CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyNGN:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported currency %q", s)
	}
}
