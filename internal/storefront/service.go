// Package storefront is the single writer in front of the catalog and cart stores.
// It serializes every store call, runs catalog fetches outside the lock and adds
// tracing and metrics around the state core.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/observer"
	"github.com/abgdnv/storefront/internal/pricing"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/abgdnv/storefront/internal/storefront"

// CartSnapshot is the cart with its aggregates, as handed to readers and subscribers.
type CartSnapshot struct {
	Items     []cart.LineItem `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// NewCartSnapshot derives the aggregates from items.
func NewCartSnapshot(items []cart.LineItem) CartSnapshot {
	snap := CartSnapshot{Items: items, Subtotal: decimal.Zero}
	if snap.Items == nil {
		snap.Items = []cart.LineItem{}
	}
	for _, li := range items {
		snap.ItemCount += li.Quantity
		snap.Subtotal = snap.Subtotal.Add(li.Total())
	}
	return snap
}

// LoadResult describes one applied catalog load.
type LoadResult struct {
	ProductCount int
	Categories   []string
	Err          error
	Duration     time.Duration
}

// Service owns one catalog store and one cart store.
// Listeners registered through the Subscribe methods run while the service lock is held
// and must not call back into the Service.
type Service struct {
	mu      sync.Mutex
	catalog *catalog.Store
	cart    *cart.Store
	source  catalog.Source
	policy  pricing.Policy
	loads   observer.Subject[LoadResult]

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *serviceMetrics
}

type options struct {
	policy        pricing.Policy
	logger        *slog.Logger
	cartOptions   []cart.Option
	meterProvider metric.MeterProvider
	tracer        trace.TracerProvider
}

// Option configures a Service.
type Option func(*options)

// WithPricing replaces pricing.DefaultPolicy.
func WithPricing(policy pricing.Policy) Option {
	return func(o *options) { o.policy = policy }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCartOptions passes options through to cart.NewStore.
func WithCartOptions(opts ...cart.Option) Option {
	return func(o *options) { o.cartOptions = append(o.cartOptions, opts...) }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// New creates a service with an empty catalog and an empty cart. Call LoadCatalog to fill the catalog.
func New(source catalog.Source, opts ...Option) (*Service, error) {
	o := options{
		policy: pricing.DefaultPolicy(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.tracer == nil {
		o.tracer = otel.GetTracerProvider()
	}

	logger := o.logger.With("component", "storefront")
	s := &Service{
		catalog: catalog.NewStore(),
		cart:    cart.NewStore(append([]cart.Option{cart.WithLogger(o.logger)}, o.cartOptions...)...),
		source:  source,
		policy:  o.policy,
		logger:  logger,
		tracer:  o.tracer.Tracer(instrumentationName),
	}
	m, err := newServiceMetrics(o.meterProvider.Meter(instrumentationName), s.itemCount)
	if err != nil {
		return nil, fmt.Errorf("failed to create storefront metrics: %w", err)
	}
	s.metrics = m
	return s, nil
}

// LoadCatalog fetches the catalog from the configured source and swaps it in.
// The fetch runs without the service lock so readers keep seeing the previous catalog.
// When several loads overlap, only the most recently started one is applied.
func (s *Service) LoadCatalog(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "storefront.LoadCatalog")
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	ticket := s.catalog.BeginLoad()
	s.mu.Unlock()

	products, fetchErr := s.source.Fetch(ctx)

	s.mu.Lock()
	loaded, err := s.catalog.CompleteLoad(ticket, products, fetchErr)
	result := LoadResult{
		ProductCount: len(loaded),
		Categories:   s.catalog.Categories(),
		Err:          err,
		Duration:     time.Since(start),
	}
	stale := errors.Is(err, sferrors.ErrStaleCatalogLoad)
	if !stale {
		s.loads.Publish(result)
	}
	s.mu.Unlock()

	outcome := "success"
	switch {
	case stale:
		outcome = "stale"
		s.logger.InfoContext(ctx, "Discarded superseded catalog load", "duration", result.Duration)
	case err != nil:
		outcome = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog load failed")
		s.logger.ErrorContext(ctx, "Catalog load failed, serving empty catalog", "error", err)
	default:
		s.logger.InfoContext(ctx, "Catalog loaded", "products", result.ProductCount, "categories", len(result.Categories))
	}
	span.SetAttributes(attribute.Int("catalog.products", result.ProductCount), attribute.String("catalog.outcome", outcome))
	s.metrics.catalogLoad(ctx, outcome, result.Duration)
	return result.ProductCount, err
}

// cacheInvalidator is implemented by sources that keep a cached copy of the catalog.
type cacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RefreshCatalog drops any cached catalog copy held by the source, then loads.
func (s *Service) RefreshCatalog(ctx context.Context) (int, error) {
	if inv, ok := s.source.(cacheInvalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "Catalog cache invalidation failed", "error", err)
		}
	}
	return s.LoadCatalog(ctx)
}

// VisibleProducts returns the filtered catalog.
func (s *Service) VisibleProducts() []*catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.VisibleProducts()
}

// SetFilter replaces the catalog filter and returns the resulting visible products.
func (s *Service) SetFilter(f catalog.Filter) []*catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.SetFilter(f)
	return s.catalog.VisibleProducts()
}

// ProductsMatching applies f to the full catalog without touching the stored filter.
func (s *Service) ProductsMatching(f catalog.Filter) []*catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f.Apply(s.catalog.Products())
}

// Filter returns the current catalog filter.
func (s *Service) Filter() catalog.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Filter()
}

// Categories returns the sorted categories of the full catalog.
func (s *Service) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Categories()
}

// Product looks up a product in the full catalog.
func (s *Service) Product(id int) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.ProductByID(id)
}

// LastLoadError returns the failure of the last applied catalog load, or nil.
func (s *Service) LastLoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.LastError()
}

// Cart returns the current cart.
func (s *Service) Cart() CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewCartSnapshot(s.cart.Items())
}

// AddItem adds quantity units of the catalog product productID to the cart.
func (s *Service) AddItem(ctx context.Context, productID, quantity int) (CartSnapshot, error) {
	_, span := s.tracer.Start(ctx, "storefront.AddItem", trace.WithAttributes(
		attribute.Int("product.id", productID),
		attribute.Int("cart.quantity", quantity),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	product, err := s.catalog.ProductByID(productID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return CartSnapshot{}, fmt.Errorf("add product %d to cart: %w", productID, err)
	}
	if err := s.cart.AddItem(product, quantity); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return CartSnapshot{}, err
	}
	s.metrics.cartMutation(ctx, "add")
	return NewCartSnapshot(s.cart.Items()), nil
}

// SetQuantity replaces the quantity of a cart line; a quantity <= 0 removes it.
func (s *Service) SetQuantity(ctx context.Context, productID, quantity int) CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.SetQuantity(productID, quantity)
	s.metrics.cartMutation(ctx, "set_quantity")
	return NewCartSnapshot(s.cart.Items())
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(ctx context.Context, productID int) CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.RemoveItem(productID)
	s.metrics.cartMutation(ctx, "remove")
	return NewCartSnapshot(s.cart.Items())
}

// ClearCart empties the cart.
func (s *Service) ClearCart(ctx context.Context) CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	s.metrics.cartMutation(ctx, "clear")
	return NewCartSnapshot(s.cart.Items())
}

// Summary prices the current cart subtotal. Amounts are not rounded.
func (s *Service) Summary() pricing.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Quote(s.cart.Subtotal())
}

// SubscribeCart registers fn for every cart change.
func (s *Service) SubscribeCart(fn func(CartSnapshot)) func() {
	return s.cart.Subscribe(func(items []cart.LineItem) {
		fn(NewCartSnapshot(items))
	})
}

// SubscribeCatalog registers fn for every change of the visible products.
func (s *Service) SubscribeCatalog(fn func([]*catalog.Product)) func() {
	return s.catalog.Subscribe(fn)
}

// SubscribeLoads registers fn for every applied catalog load, failed ones included.
func (s *Service) SubscribeLoads(fn func(LoadResult)) func() {
	return s.loads.Subscribe(fn)
}

func (s *Service) itemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ItemCount()
}
