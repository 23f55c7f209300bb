package tax_test

import (
	"context"
	"testing"

	"github.com/dukerupert/marbelle/internal/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func defaultCalculator(t *testing.T) tax.Calculator {
	t.Helper()
	calc, err := tax.NewPercentageCalculator(tax.DefaultRate)
	require.NoError(t, err)
	return calc
}

// Test_PercentageCalculator_CartExample: 2 x 29.99 + 1 x 49.99 = 109.97 at 9% = 9.8973, rounds to 9.90
func Test_PercentageCalculator_CartExample(t *testing.T) {
	calc := defaultCalculator(t)

	params := tax.TaxParams{
		LineItems: []tax.LineItem{
			{
				ProductID:   uuid.New(),
				Description: "Carrara Tile",
				Quantity:    2,
				UnitPrice:   dec("29.99"),
				TotalPrice:  dec("59.98"),
			},
			{
				ProductID:   uuid.New(),
				Description: "Nero Marquina Slab",
				Quantity:    1,
				UnitPrice:   dec("49.99"),
				TotalPrice:  dec("49.99"),
			},
		},
	}

	result, err := calc.CalculateTax(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, "9.90", result.TotalTax.StringFixed(2))
}

func Test_PercentageCalculator_DifferentTaxRates(t *testing.T) {
	tests := []struct {
		name        string
		rate        string
		subtotal    string
		expectedTax string
		explanation string
	}{
		{
			name:        "zero percent rate",
			rate:        "0",
			subtotal:    "100.00",
			expectedTax: "0.00",
			explanation: "100 * 0 = 0",
		},
		{
			name:        "five percent rate",
			rate:        "0.05",
			subtotal:    "100.00",
			expectedTax: "5.00",
			explanation: "100 * 0.05 = 5",
		},
		{
			name:        "eight percent rate",
			rate:        "0.08",
			subtotal:    "60.00",
			expectedTax: "4.80",
			explanation: "60 * 0.08 = 4.80",
		},
		{
			name:        "nine percent rate",
			rate:        "0.09",
			subtotal:    "29.99",
			expectedTax: "2.70",
			explanation: "29.99 * 0.09 = 2.6991, rounds to 2.70",
		},
		{
			name:        "one hundred percent rate edge case",
			rate:        "1",
			subtotal:    "50.00",
			expectedTax: "50.00",
			explanation: "tax equals subtotal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := tax.NewPercentageCalculator(dec(tt.rate))
			require.NoError(t, err)

			params := tax.TaxParams{
				LineItems: []tax.LineItem{
					{TotalPrice: dec(tt.subtotal)},
				},
			}

			result, err := calc.CalculateTax(context.Background(), params)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedTax, result.TotalTax.StringFixed(2), tt.explanation)
		})
	}
}

func Test_PercentageCalculator_RoundingBehavior(t *testing.T) {
	tests := []struct {
		name        string
		rate        string
		subtotal    string
		expectedTax string
		explanation string
	}{
		{
			name:        "exact half cent rounds up",
			rate:        "0.10",
			subtotal:    "0.05",
			expectedTax: "0.01",
			explanation: "0.05 * 0.10 = 0.005, rounds to 0.01",
		},
		{
			name:        "rounds up above midpoint",
			rate:        "0.08",
			subtotal:    "10.62",
			expectedTax: "0.85",
			explanation: "10.62 * 0.08 = 0.8496, rounds to 0.85",
		},
		{
			name:        "rounds down below midpoint",
			rate:        "0.08",
			subtotal:    "10.40",
			expectedTax: "0.83",
			explanation: "10.40 * 0.08 = 0.832, rounds to 0.83",
		},
		{
			name:        "fractional cents round to nearest",
			rate:        "0.065",
			subtotal:    "15.37",
			expectedTax: "1.00",
			explanation: "15.37 * 0.065 = 0.99905, rounds to 1.00",
		},
		{
			name:        "many lines accumulate before rounding",
			rate:        "0.09",
			subtotal:    "109.97",
			expectedTax: "9.90",
			explanation: "109.97 * 0.09 = 9.8973, rounds to 9.90",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := tax.NewPercentageCalculator(dec(tt.rate))
			require.NoError(t, err)

			result, err := calc.CalculateTax(context.Background(), tax.TaxParams{
				LineItems: []tax.LineItem{{TotalPrice: dec(tt.subtotal)}},
			})

			require.NoError(t, err)
			assert.Equal(t, tt.expectedTax, result.TotalTax.StringFixed(2), tt.explanation)
		})
	}
}

func Test_PercentageCalculator_EmptyCart(t *testing.T) {
	result, err := defaultCalculator(t).CalculateTax(context.Background(), tax.TaxParams{})

	require.NoError(t, err)
	assert.True(t, result.TotalTax.IsZero())
}

func Test_NewPercentageCalculator_RejectsInvalidRate(t *testing.T) {
	for _, rate := range []string{"-0.01", "1.01", "9"} {
		calc, err := tax.NewPercentageCalculator(dec(rate))
		assert.ErrorIs(t, err, tax.ErrInvalidTaxRate, rate)
		assert.Nil(t, calc)
	}
}

func Test_PercentageCalculator_RejectsNegativeTaxable(t *testing.T) {
	_, err := defaultCalculator(t).CalculateTax(context.Background(), tax.TaxParams{
		LineItems: []tax.LineItem{{TotalPrice: dec("-1.00")}},
	})
	assert.ErrorIs(t, err, tax.ErrNegativeAmount)
}
