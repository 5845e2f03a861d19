// Package models defines the client-side domain records, their sealed
// storage rows, the remote DTOs and the tagged Result type.
package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// supported lists the currencies the bank serves, with display symbols.
var supported = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "C$",
	"AUD": "A$",
}

// Money is an exact decimal amount in an ISO-4217 currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// ParseMoney builds Money from its decimal string and currency code.
func ParseMoney(amount, code string) (Money, error) {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return Money{}, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	if _, ok := supported[unit.String()]; !ok {
		return Money{}, fmt.Errorf("unsupported currency %q", code)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return Money{Amount: d, Currency: unit.String()}, nil
}

// Symbol returns the display symbol of the currency.
func (m Money) Symbol() string {
	if s, ok := supported[m.Currency]; ok {
		return s
	}
	return m.Currency
}

// String renders the amount with the currency's standard minor units.
func (m Money) String() string {
	places := int32(2)
	if unit, err := currency.ParseISO(m.Currency); err == nil {
		scale, _ := currency.Standard.Rounding(unit)
		places = int32(scale)
	}
	amount := m.Amount.StringFixed(places)
	if m.Amount.IsNegative() {
		return "-" + m.Symbol() + m.Amount.Abs().StringFixed(places)
	}
	return m.Symbol() + amount
}

func (m Money) IsZero() bool { return m.Amount.IsZero() && m.Currency == "" }
