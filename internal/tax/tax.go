package tax

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultRate is the flat sales tax rate applied to cart subtotals when
// TAX_RATE is unset.
var DefaultRate = decimal.RequireFromString("0.09")

// Calculator defines the interface for tax calculation.
// PercentageCalculator is the only implementation; tests substitute fakes.
type Calculator interface {
	// CalculateTax computes tax for line items, rounded to cents.
	CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error)
}

// TaxParams contains all information needed for tax calculation.
type TaxParams struct {
	LineItems []LineItem
}

// Subtotal sums TotalPrice across line items.
func (p TaxParams) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range p.LineItems {
		sum = sum.Add(item.TotalPrice)
	}
	return sum
}

// LineItem represents a single item being taxed.
type LineItem struct {
	ProductID   uuid.UUID
	Description string
	Quantity    int32
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// TaxResult contains the calculated tax amount.
type TaxResult struct {
	TotalTax decimal.Decimal
}
