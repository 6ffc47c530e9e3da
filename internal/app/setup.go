// Package app contains the application setup for the storefront.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/catalog/source"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/storefront"
	"github.com/abgdnv/storefront/internal/transport/rest"
	"github.com/abgdnv/storefront/pkg/server"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
)

// Dependencies holds the storefront service and what its HTTP surface needs.
type Dependencies struct {
	Service        *storefront.Service
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// Externals are the optional connections the configured catalog source may use.
type Externals struct {
	DB             *pgxpool.Pool
	Redis          *redis.Client
	MeterProvider  metric.MeterProvider
	MetricsHandler http.Handler
}

// NewCatalogSource builds the catalog source selected by cfg.Catalog.Source,
// wrapped in a Redis read-through cache when caching is enabled.
func NewCatalogSource(cfg *config.Config, ext Externals, logger *slog.Logger) (catalog.Source, error) {
	var src catalog.Source
	switch cfg.Catalog.Source {
	case config.SourceFile:
		src = source.NewFileSource(cfg.Catalog.Path)
	case config.SourceHTTP:
		src = source.NewHTTPSource(cfg.Catalog.URL, cfg.Catalog.Timeout, cfg.Resilience.CircuitBreaker, logger)
	case config.SourcePostgres:
		if ext.DB == nil {
			return nil, fmt.Errorf("catalog source %q needs a database pool", cfg.Catalog.Source)
		}
		src = source.NewPgSource(ext.DB)
	default:
		return nil, fmt.Errorf("unknown catalog source: %q", cfg.Catalog.Source)
	}

	if cfg.Catalog.Cache.Enabled {
		if ext.Redis == nil {
			return nil, fmt.Errorf("catalog cache is enabled but no redis client is configured")
		}
		src = source.NewCachedSource(src, ext.Redis, cfg.Catalog.Cache.Key, cfg.Catalog.Cache.TTL, logger)
	}
	return src, nil
}

// SetupDependencies creates the storefront service from the configuration.
func SetupDependencies(cfg *config.Config, ext Externals, logger *slog.Logger) (*Dependencies, error) {
	src, err := NewCatalogSource(cfg, ext, logger)
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Pricing.Policy()
	if err != nil {
		return nil, fmt.Errorf("invalid pricing configuration: %w", err)
	}

	opts := []storefront.Option{
		storefront.WithPricing(policy),
		storefront.WithLogger(logger),
	}
	if cfg.Cart.UnlimitedStock {
		opts = append(opts, storefront.WithCartOptions(cart.WithoutStockLimit()))
	}
	if ext.MeterProvider != nil {
		opts = append(opts, storefront.WithMeterProvider(ext.MeterProvider))
	}
	svc, err := storefront.New(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storefront service: %w", err)
	}

	return &Dependencies{
		Service:        svc,
		MetricsHandler: ext.MetricsHandler,
		Logger:         logger,
	}, nil
}

// SetupHttpHandler initializes the router with the storefront routes and the metrics endpoint.
func SetupHttpHandler(deps *Dependencies, metricsPath string) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	rest.NewHandler(deps.Service, deps.Logger).RegisterRoutes(mux)
	if deps.MetricsHandler != nil {
		mux.Method(http.MethodGet, metricsPath, deps.MetricsHandler)
	}
	return mux
}

// SetupHttpServer creates and configures the storefront HTTP server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps, cfg.Telemetry.Metrics.Path)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}
	return server.NewHTTPServer(httpCfg, "storefront", mux)
}
