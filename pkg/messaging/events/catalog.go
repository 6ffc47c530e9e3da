package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
)

// CatalogLoadedEvent reports the outcome of a catalog load.
type CatalogLoadedEvent struct {
	ProductCount int       `json:"product_count"`
	Categories   []string  `json:"categories"`
	Error        string    `json:"error,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func (e CatalogLoadedEvent) Subject() string {
	return messaging.CatalogLoadedSubject
}

func (e CatalogLoadedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
