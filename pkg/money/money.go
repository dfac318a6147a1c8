// Package money provides currency-aware amounts for ramp totals. Amounts are
// held as decimals and converted to minor units through go-money for display.
package money

import (
	"encoding/json"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// defaultFraction is used for fiat symbols go-money does not know about.
const defaultFraction = 2

// Money represents a monetary value with currency.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewFromDecimal creates Money from a decimal amount and currency code.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	return &Money{amount: amount, currency: currencyCode}
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return NewFromDecimal(decimal.Zero, currencyCode)
}

// Amount returns the decimal amount
func (m *Money) Amount() decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	return m.amount
}

// Currency returns the currency code
func (m *Money) Currency() string {
	if m == nil {
		return ""
	}
	return m.currency
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.amount.IsZero()
}

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil {
		return other, nil
	}
	if other == nil {
		return m, nil
	}
	if m.currency != other.currency {
		return nil, fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	return NewFromDecimal(m.amount.Add(other.amount), m.currency), nil
}

// Minor returns the amount in minor units (cents) for the currency, rounded
// half away from zero.
func (m *Money) Minor() int64 {
	if m == nil {
		return 0
	}
	return m.amount.Shift(int32(fraction(m.currency))).Round(0).IntPart()
}

// Display formats the amount with the currency's grapheme and separators
// (e.g. "$1,234.56"). Unknown currencies render as "1234.56 XYZ".
func (m *Money) Display() string {
	if m == nil {
		return ""
	}
	if money.GetCurrency(m.currency) == nil {
		return m.amount.StringFixed(defaultFraction) + " " + m.currency
	}
	return money.New(m.Minor(), m.currency).Display()
}

// String implements fmt.Stringer
func (m *Money) String() string {
	return m.Display()
}

// MarshalJSON encodes the amount as a decimal string with its currency.
func (m *Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount().String(),
		Currency: m.Currency(),
		Display:  m.Display(),
	})
}

func fraction(currencyCode string) int {
	if c := money.GetCurrency(currencyCode); c != nil {
		return c.Fraction
	}
	return defaultFraction
}
