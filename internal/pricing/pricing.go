// Package pricing turns cart line items into subtotal, shipping and total.
// All arithmetic is exact decimal; floats only appear at display time.
package pricing

import (
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var (
	DefaultFreeShippingThreshold = decimal.NewFromInt(100)
	DefaultFlatShippingFee       = decimal.RequireFromString("9.99")
)

// Policy holds the shipping rule: free at or above Threshold, FlatFee below it.
type Policy struct {
	Threshold decimal.Decimal
	FlatFee   decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultFreeShippingThreshold, FlatFee: DefaultFlatShippingFee}
}

// Summary is the derived pricing of a cart.
type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// FreeShipping reports whether no shipping fee applies.
func (s Summary) FreeShipping() bool {
	return s.Shipping.IsZero()
}

// Subtotal sums price times quantity over items; zero for none.
func Subtotal(items []domain.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// Shipping applies the policy to a subtotal.
func (p Policy) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.Threshold) {
		return decimal.Zero
	}
	return p.FlatFee
}

// Calculate prices items under the policy.
func (p Policy) Calculate(items []domain.LineItem) Summary {
	subtotal := Subtotal(items)
	shipping := p.Shipping(subtotal)
	return Summary{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}

// Calculate prices items under the default policy.
func Calculate(items []domain.LineItem) Summary {
	return DefaultPolicy().Calculate(items)
}

// Remaining is how much more must be spent to reach free shipping, zero once reached.
func (p Policy) Remaining(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.Threshold) {
		return decimal.Zero
	}
	return p.Threshold.Sub(subtotal)
}
