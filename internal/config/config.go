// Package config defines the storefront process configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Catalog    CatalogConfig           `koanf:"catalog"`
	Pricing    PricingConfig           `koanf:"pricing"`
	Cart       CartConfig              `koanf:"cart"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Redis      config.RedisConfig      `koanf:"redis"`
	NATS       config.NATSConfig       `koanf:"nats"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Catalog.String())
	b.WriteString(c.Pricing.String())
	b.WriteString(c.Cart.String())
	if c.Catalog.Source == SourcePostgres {
		b.WriteString(c.Database.String())
	}
	if c.Catalog.Cache.Enabled {
		b.WriteString(c.Redis.String())
	}
	if c.Catalog.Source == SourceHTTP {
		b.WriteString(c.Resilience.String())
	}
	b.WriteString(c.NATS.String())
	b.WriteString(c.Telemetry.String())
	return b.String()
}

// Validate checks the sections the configured catalog source and features depend on.
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	if err := c.Pricing.Validate(); err != nil {
		return err
	}
	if err := c.NATS.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	switch c.Catalog.Source {
	case SourcePostgres:
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("catalog source %q: %w", c.Catalog.Source, err)
		}
	case SourceHTTP:
		if err := c.Resilience.Validate(); err != nil {
			return fmt.Errorf("catalog source %q: %w", c.Catalog.Source, err)
		}
	}
	if c.Catalog.Cache.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("catalog cache: %w", err)
		}
	}
	return nil
}
