package tax

import (
	"context"

	"github.com/shopspring/decimal"
)

// PercentageCalculator calculates tax using a simple percentage rate.
type PercentageCalculator struct {
	rate decimal.Decimal
}

// NewPercentageCalculator creates a new percentage-based tax calculator.
// The rate must be within [0, 1].
func NewPercentageCalculator(rate decimal.Decimal) (Calculator, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, ErrInvalidTaxRate
	}
	return &PercentageCalculator{rate: rate}, nil
}

// CalculateTax computes tax on the subtotal using the configured rate,
// rounded half-up to cents.
func (c *PercentageCalculator) CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error) {
	taxable := params.Subtotal()
	if taxable.IsNegative() {
		return nil, ErrNegativeAmount
	}

	return &TaxResult{TotalTax: taxable.Mul(c.rate).Round(2)}, nil
}
