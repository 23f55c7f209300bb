// Package pricing derives cart totals from cart lines. Totals are computed on
// every read and never stored.
package pricing

import (
	"context"
	"fmt"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/tax"
	"github.com/shopspring/decimal"
)

// ItemSubtotal returns quantity * frozen unit price for one line.
func ItemSubtotal(item domain.CartItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity))
}

// Subtotal sums the line subtotals. An empty cart is zero.
func Subtotal(items []domain.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(ItemSubtotal(item))
	}
	return sum
}

// ItemCount returns the number of units across all lines.
func ItemCount(items []domain.CartItem) int {
	n := 0
	for _, item := range items {
		n += int(item.Quantity)
	}
	return n
}

// Calculator computes cart totals with a tax calculator.
type Calculator struct {
	tax tax.Calculator
}

func NewCalculator(t tax.Calculator) *Calculator {
	return &Calculator{tax: t}
}

// Totals computes item count, subtotal, tax and total for items.
func (c *Calculator) Totals(ctx context.Context, items []domain.CartItem) (domain.CartTotals, error) {
	subtotal := Subtotal(items)

	lines := make([]tax.LineItem, len(items))
	for i, item := range items {
		lines[i] = tax.LineItem{
			ProductID:   item.Product.ID,
			Description: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  ItemSubtotal(item),
		}
	}

	result, err := c.tax.CalculateTax(ctx, tax.TaxParams{LineItems: lines})
	if err != nil {
		return domain.CartTotals{}, fmt.Errorf("calculate tax: %w", err)
	}

	return domain.CartTotals{
		ItemCount: ItemCount(items),
		Subtotal:  subtotal,
		Tax:       result.TotalTax,
		Total:     subtotal.Add(result.TotalTax),
	}, nil
}
