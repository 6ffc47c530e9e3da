package storefront

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
)

const publishTimeout = 5 * time.Second

// Forwarder publishes cart and catalog changes to a message broker.
// Store listeners only enqueue; a separate goroutine running Run does the publishing,
// so a slow broker never blocks a store mutation. Events that do not fit in the
// buffer are dropped and logged.
type Forwarder struct {
	publisher messaging.Publisher
	queue     chan messaging.Event
	logger    *slog.Logger
	now       func() time.Time
}

// NewForwarder creates a forwarder holding up to buffer pending events.
func NewForwarder(publisher messaging.Publisher, buffer int, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		publisher: publisher,
		queue:     make(chan messaging.Event, buffer),
		logger:    logger.With("component", "event-forwarder"),
		now:       time.Now,
	}
}

// Attach subscribes to the service. The returned function detaches again.
func (f *Forwarder) Attach(svc *Service) func() {
	unsubscribeCart := svc.SubscribeCart(func(snap CartSnapshot) {
		f.enqueue(f.cartEvent(snap))
	})
	unsubscribeLoads := svc.SubscribeLoads(func(res LoadResult) {
		f.enqueue(f.catalogEvent(res))
	})
	return func() {
		unsubscribeCart()
		unsubscribeLoads()
	}
}

// Run publishes queued events until ctx is cancelled.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-f.queue:
			pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := f.publisher.Publish(pubCtx, event); err != nil {
				f.logger.ErrorContext(ctx, "Failed to publish event", "subject", event.Subject(), "error", err)
			} else {
				f.logger.DebugContext(ctx, "Event published", "subject", event.Subject())
			}
			cancel()
		}
	}
}

func (f *Forwarder) enqueue(event messaging.Event) {
	select {
	case f.queue <- event:
	default:
		f.logger.Warn("Event buffer full, dropping event", "subject", event.Subject())
	}
}

func (f *Forwarder) cartEvent(snap CartSnapshot) events.CartUpdatedEvent {
	lines := make([]events.CartLine, len(snap.Items))
	for i, li := range snap.Items {
		lines[i] = events.CartLine{
			ProductID: li.Product.ID,
			Title:     li.Product.Title,
			Quantity:  li.Quantity,
			UnitPrice: li.Product.Price,
		}
	}
	return events.CartUpdatedEvent{
		Lines:      lines,
		ItemCount:  snap.ItemCount,
		Subtotal:   snap.Subtotal,
		OccurredAt: f.now().UTC(),
	}
}

func (f *Forwarder) catalogEvent(res LoadResult) events.CatalogLoadedEvent {
	event := events.CatalogLoadedEvent{
		ProductCount: res.ProductCount,
		Categories:   res.Categories,
		OccurredAt:   f.now().UTC(),
	}
	if res.Err != nil {
		event.Error = res.Err.Error()
	}
	return event
}
