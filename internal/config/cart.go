package config

import "fmt"

type CartConfig struct {
	// UnlimitedStock lets cart quantities exceed product stock.
	UnlimitedStock bool `koanf:"unlimitedstock"`
}

// String returns a string representation of the cart configuration.
func (c *CartConfig) String() string {
	return fmt.Sprintf("\n--- Cart ---\n  cart.unlimitedstock: %t\n", c.UnlimitedStock)
}
