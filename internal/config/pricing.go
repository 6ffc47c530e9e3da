package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// PricingConfig overrides the default pricing policy. Empty fields keep the default.
// Amounts are strings so they are parsed as exact decimals.
type PricingConfig struct {
	FreeShippingThreshold string `koanf:"freeshippingthreshold"`
	ShippingFee           string `koanf:"shippingfee"`
	TaxRate               string `koanf:"taxrate"`
}

// String returns a string representation of the pricing configuration.
func (c *PricingConfig) String() string {
	p, _ := c.Policy()
	var b strings.Builder
	b.WriteString("\n--- Pricing ---\n")
	b.WriteString(fmt.Sprintf("  pricing.freeshippingthreshold: %s\n", p.FreeShippingThreshold))
	b.WriteString(fmt.Sprintf("  pricing.shippingfee: %s\n", p.ShippingFee))
	b.WriteString(fmt.Sprintf("  pricing.taxrate: %s\n", p.TaxRate))
	return b.String()
}

func (c *PricingConfig) Validate() error {
	_, err := c.Policy()
	return err
}

// Policy builds the pricing policy, starting from pricing.DefaultPolicy.
func (c *PricingConfig) Policy() (pricing.Policy, error) {
	p := pricing.DefaultPolicy()
	fields := []struct {
		name  string
		raw   string
		into  *decimal.Decimal
		ratio bool
	}{
		{name: "freeshippingthreshold", raw: c.FreeShippingThreshold, into: &p.FreeShippingThreshold},
		{name: "shippingfee", raw: c.ShippingFee, into: &p.ShippingFee},
		{name: "taxrate", raw: c.TaxRate, into: &p.TaxRate, ratio: true},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return p, fmt.Errorf("pricing.%s: %w", f.name, err)
		}
		if v.IsNegative() {
			return p, fmt.Errorf("pricing.%s must not be negative: %s", f.name, f.raw)
		}
		if f.ratio && v.GreaterThan(decimal.NewFromInt(1)) {
			return p, fmt.Errorf("pricing.%s must be a ratio between 0 and 1: %s", f.name, f.raw)
		}
		*f.into = v
	}
	return p, nil
}
