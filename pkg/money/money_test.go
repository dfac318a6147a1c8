package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Display(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     string
	}{
		{"usd", "150.5", "USD", "$150.50"},
		{"usd thousands", "1234.56", "USD", "$1,234.56"},
		{"rounds to minor units", "0.005", "USD", "$0.01"},
		{"unknown symbol", "12.3", "XYZ", "12.30 XYZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFromDecimal(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.want, m.Display())
		})
	}
}

func TestMoney_Add(t *testing.T) {
	a := NewFromDecimal(decimal.RequireFromString("100"), "EUR")
	b := NewFromDecimal(decimal.RequireFromString("50.25"), "EUR")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("150.25").Equal(sum.Amount()))
	assert.Equal(t, int64(15025), sum.Minor())

	_, err = a.Add(Zero("USD"))
	assert.Error(t, err)

	var nilMoney *Money
	got, err := nilMoney.Add(b)
	require.NoError(t, err)
	assert.Same(t, b, got)
}

func TestMoney_MarshalJSON(t *testing.T) {
	m := NewFromDecimal(decimal.RequireFromString("42"), "USD")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"42","currency":"USD","display":"$42.00"}`, string(data))
}
