package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/storefront"
	"github.com/abgdnv/storefront/pkg/bootstrap"
	"github.com/abgdnv/storefront/pkg/config/configloader"
	"github.com/abgdnv/storefront/pkg/messaging"
	natsclient "github.com/abgdnv/storefront/pkg/nats"
	"github.com/abgdnv/storefront/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storefront"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run wires the storefront from configuration, loads the catalog and serves HTTP until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shut down tracer provider", "error", err)
			}
		}()
	}

	mp, registry, err := telemetry.NewMeterProvider(serviceName)
	if err != nil {
		return fmt.Errorf("failed to create meter provider: %w", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shut down meter provider", "error", err)
		}
	}()
	ext := app.Externals{
		MeterProvider:  mp,
		MetricsHandler: telemetry.MetricsHandler(registry),
	}

	if cfg.Catalog.Source == config.SourcePostgres {
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return err
		}
		defer dbPool.Close()
		logger.Info("Successfully connected to the database!")
		ext.DB = dbPool
	}

	if cfg.Catalog.Cache.Enabled {
		rdb, err := bootstrap.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("Failed to close redis client", "error", err)
			}
		}()
		logger.Info("Successfully connected to redis", slog.String("addr", cfg.Redis.Addr))
		ext.Redis = rdb
	}

	deps, err := app.SetupDependencies(cfg, ext, logger)
	if err != nil {
		return fmt.Errorf("failed to set up storefront: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.NATS.Enabled {
		forwarder, closeConn, err := newForwarder(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeConn()
		detach := forwarder.Attach(deps.Service)
		defer detach()
		g.Go(func() error {
			return forwarder.Run(gCtx)
		})
	}

	// an unavailable catalog is served as empty; POST /api/v1/catalog/reload retries
	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.Catalog.Timeout)
	if _, err := deps.Service.LoadCatalog(loadCtx); err != nil {
		logger.Warn("Initial catalog load failed", "error", err)
	}
	cancelLoad()

	httpServer := app.SetupHttpServer(deps, cfg)
	serve(gCtx, g, logger, "HTTP", httpServer, cfg.Shutdown.Timeout)

	if cfg.PProf.Enabled {
		pprofServer := &http.Server{
			Addr: cfg.PProf.Addr,
		}
		serve(gCtx, g, logger, "pprof", pprofServer, cfg.Shutdown.Timeout)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// serve starts srv in g and shuts it down gracefully once ctx is done.
func serve(ctx context.Context, g *errgroup.Group, logger *slog.Logger, name string, srv *http.Server, shutdownTimeout time.Duration) {
	g.Go(func() error {
		logger.Info(name+" server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server failed: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down " + name + " server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// newForwarder connects to NATS, makes sure the storefront stream exists and
// returns a forwarder publishing into it.
func newForwarder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storefront.Forwarder, func(), error) {
	nc, err := natsclient.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := natsclient.NewJetStreamContext(nc)
	if err != nil {
		// nc is already closed
		return nil, nil, err
	}
	streamCtx, cancel := context.WithTimeout(ctx, cfg.NATS.Timeout)
	defer cancel()
	if err := natsclient.EnsureStream(streamCtx, js, messaging.StorefrontStream, messaging.StorefrontSubjects); err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Connected to NATS", slog.String("url", cfg.NATS.Url), slog.String("stream", messaging.StorefrontStream))

	closeConn := func() {
		if err := nc.Drain(); err != nil {
			logger.Error("Failed to drain NATS connection", "error", err)
		}
	}
	return storefront.NewForwarder(natsclient.NewNatsPublisher(js), cfg.NATS.Buffer, logger), closeConn, nil
}
