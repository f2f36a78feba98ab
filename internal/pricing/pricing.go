// Package pricing computes cart and order totals with exact decimal arithmetic.
package pricing

import (
	"github.com/shopspring/decimal"

	"qrmenu/internal/model"
)

// Line is the priced part of a cart or order line.
type Line struct {
	UnitPrice           decimal.Decimal
	DiscountedUnitPrice *decimal.Decimal
	Quantity            int
}

// Totals holds what the customer pays and what the discounts saved.
type Totals struct {
	Price    decimal.Decimal
	Discount decimal.Decimal
}

// Effective is the unit price charged: the discounted price whenever one is
// set, whatever its magnitude.
func (l Line) Effective() decimal.Decimal {
	if l.DiscountedUnitPrice != nil {
		return *l.DiscountedUnitPrice
	}
	return l.UnitPrice
}

// Subtotal is the effective price times the quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Effective().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Saving is (price - discounted price) * quantity, or zero without a discount.
// The value is signed: a discounted price above the list price yields a
// negative saving so that Price + Discount always equals the undiscounted sum.
func (l Line) Saving() decimal.Decimal {
	if l.DiscountedUnitPrice == nil {
		return decimal.Zero
	}
	return l.UnitPrice.Sub(*l.DiscountedUnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Compute sums the lines.
func Compute(lines []Line) Totals {
	t := Totals{Price: decimal.Zero, Discount: decimal.Zero}
	for _, l := range lines {
		t.Price = t.Price.Add(l.Subtotal())
		t.Discount = t.Discount.Add(l.Saving())
	}
	return t
}

// FromOrderLines adapts order snapshots for Compute.
func FromOrderLines(lines []model.OrderLine) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = Line{
			UnitPrice:           l.Price,
			DiscountedUnitPrice: l.DiscountedPrice,
			Quantity:            l.Quantity,
		}
	}
	return out
}

// Equal reports whether two totals agree to the cent.
func (t Totals) Equal(other Totals) bool {
	return t.Price.Round(2).Equal(other.Price.Round(2)) &&
		t.Discount.Round(2).Equal(other.Discount.Round(2))
}
