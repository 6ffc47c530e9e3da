// Package messaging defines the event contract the storefront publishes through.
package messaging

import (
	"context"
)

// Stream and subjects of the storefront event stream.
const (
	StorefrontStream     = "STOREFRONT"
	StorefrontSubjects   = "storefront.>"
	CartUpdatedSubject   = "storefront.cart.updated"
	CatalogLoadedSubject = "storefront.catalog.loaded"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
