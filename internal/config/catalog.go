package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

const (
	defaultCatalogPath     = "assets/products.json"
	defaultCatalogTimeout  = 10 * time.Second
	defaultCatalogCacheKey = "storefront:catalog:products"
)

type CatalogConfig struct {
	Source  string        `koanf:"source"`
	Path    string        `koanf:"path"`
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	Cache   struct {
		Enabled bool          `koanf:"enabled"`
		TTL     time.Duration `koanf:"ttl"`
		Key     string        `koanf:"key"`
	} `koanf:"cache"`
}

// String returns a string representation of the catalog configuration.
func (c *CatalogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Catalog ---\n")
	b.WriteString(fmt.Sprintf("  catalog.source: %s\n", c.Source))
	switch c.Source {
	case SourceFile:
		b.WriteString(fmt.Sprintf("  catalog.path: %s\n", c.Path))
	case SourceHTTP:
		b.WriteString(fmt.Sprintf("  catalog.url: %s\n", c.URL))
	}
	b.WriteString(fmt.Sprintf("  catalog.timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  catalog.cache.enabled: %t\n", c.Cache.Enabled))
	if c.Cache.Enabled {
		b.WriteString(fmt.Sprintf("  catalog.cache.ttl: %s\n", c.Cache.TTL))
		b.WriteString(fmt.Sprintf("  catalog.cache.key: %s\n", c.Cache.Key))
	}
	return b.String()
}

func (c *CatalogConfig) Validate() error {
	if c.Source == "" {
		c.Source = SourceFile
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultCatalogTimeout
	}
	switch c.Source {
	case SourceFile:
		if c.Path == "" {
			c.Path = defaultCatalogPath
		}
	case SourceHTTP:
		if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
			return fmt.Errorf("catalog URL must be an http(s) URL: %q", c.URL)
		}
	case SourcePostgres:
	default:
		return fmt.Errorf("unknown catalog source: %q", c.Source)
	}
	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("catalog cache TTL must be greater than 0")
		}
		if c.Cache.Key == "" {
			c.Cache.Key = defaultCatalogCacheKey
		}
	}
	return nil
}
