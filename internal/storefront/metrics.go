package storefront

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type serviceMetrics struct {
	catalogLoads    metric.Int64Counter
	catalogLoadTime metric.Float64Histogram
	cartMutations   metric.Int64Counter
}

func newServiceMetrics(meter metric.Meter, itemCount func() int) (*serviceMetrics, error) {
	loads, err := meter.Int64Counter("storefront.catalog.loads",
		metric.WithDescription("Catalog loads by outcome."))
	if err != nil {
		return nil, err
	}
	loadTime, err := meter.Float64Histogram("storefront.catalog.load.duration",
		metric.WithDescription("Catalog load duration."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	mutations, err := meter.Int64Counter("storefront.cart.mutations",
		metric.WithDescription("Cart mutations by operation."))
	if err != nil {
		return nil, err
	}
	_, err = meter.Int64ObservableGauge("storefront.cart.items",
		metric.WithDescription("Units currently in the cart."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(itemCount()))
			return nil
		}))
	if err != nil {
		return nil, err
	}
	return &serviceMetrics{
		catalogLoads:    loads,
		catalogLoadTime: loadTime,
		cartMutations:   mutations,
	}, nil
}

func (m *serviceMetrics) catalogLoad(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.catalogLoads.Add(ctx, 1, attrs)
	m.catalogLoadTime.Record(ctx, d.Seconds(), attrs)
}

func (m *serviceMetrics) cartMutation(ctx context.Context, op string) {
	m.cartMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
