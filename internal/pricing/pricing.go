// Package pricing derives shipping, tax and the grand total from a cart subtotal.
package pricing

import "github.com/shopspring/decimal"

// Policy holds the storefront pricing rules.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultPolicy returns free shipping from 500, a flat fee of 50 below that and 14% tax.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(500),
		ShippingFee:           decimal.NewFromInt(50),
		TaxRate:               decimal.RequireFromString("0.14"),
	}
}

// Quote is the price breakdown for one subtotal.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Shipping returns zero at or above the free-shipping threshold, the flat fee otherwise.
func (p Policy) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.ShippingFee
}

// Tax returns subtotal × rate.
func (p Policy) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.TaxRate)
}

// Quote computes the full breakdown. Nothing is rounded.
func (p Policy) Quote(subtotal decimal.Decimal) Quote {
	shipping := p.Shipping(subtotal)
	tax := p.Tax(subtotal)
	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// Rounded returns a copy with every amount rounded half away from zero to places decimals.
func (q Quote) Rounded(places int32) Quote {
	return Quote{
		Subtotal: q.Subtotal.Round(places),
		Shipping: q.Shipping.Round(places),
		Tax:      q.Tax.Round(places),
		Total:    q.Total.Round(places),
	}
}
