package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/abgdnv/storefront/internal/storefront"
)

const eventBuffer = 16

// CartEvents streams cart snapshots as server-sent events until the client goes away.
// The current cart is sent first. A client too slow to keep up loses intermediate
// snapshots; the next one it receives is complete.
func (h *Handler) CartEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	snapshots := make(chan storefront.CartSnapshot, eventBuffer)
	unsubscribe := h.service.SubscribeCart(func(snap storefront.CartSnapshot) {
		select {
		case snapshots <- snap:
		default:
			h.logger.WarnContext(r.Context(), "Cart event stream lagging, dropping snapshot")
		}
	})
	defer unsubscribe()

	// the stream outlives the server write timeout
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.logger.DebugContext(r.Context(), "Cart event stream opened")
	if err := writeEvent(w, rc, h.service.Cart()); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to write cart event", "error", err)
		return
	}
	for {
		select {
		case <-r.Context().Done():
			h.logger.DebugContext(r.Context(), "Cart event stream closed")
			return
		case snap := <-snapshots:
			if err := writeEvent(w, rc, snap); err != nil {
				h.logger.WarnContext(r.Context(), "Failed to write cart event", "error", err)
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, snap storefront.CartSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}
