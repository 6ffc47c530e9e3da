// Package cart provides the shopping cart ledger: line items keyed by product id,
// their aggregates, and change notification to subscribers.
package cart

import (
	"fmt"
	"log/slog"

	"github.com/abgdnv/storefront/internal/catalog"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/observer"
	"github.com/shopspring/decimal"
)

// Store is the authoritative cart. Line items keep first-add order and there is at most
// one line per product id. Every mutation republishes the full item list to subscribers
// before returning. Store is single-writer: callers serialize access.
type Store struct {
	items        []LineItem
	enforceStock bool
	logger       *slog.Logger
	subject      observer.Subject[[]LineItem]
}

// Option configures a Store.
type Option func(*Store)

// WithoutStockLimit lets quantities exceed product stock, leaving the ceiling to callers.
func WithoutStockLimit() Option {
	return func(s *Store) {
		s.enforceStock = false
	}
}

// WithLogger sets the logger used for mutation traces.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With("component", "cart")
	}
}

// NewStore creates an empty cart that enforces the stock ceiling unless told otherwise.
func NewStore(opts ...Option) *Store {
	s := &Store{
		enforceStock: true,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnforcesStock reports whether quantities are capped at product stock.
func (s *Store) EnforcesStock() bool {
	return s.enforceStock
}

// AddItem adds quantity units of product, merging into an existing line for the same id.
// Returns ErrInvalidQuantity for quantity < 1 and, when the stock ceiling is enforced,
// ErrInsufficientStock if the resulting quantity would exceed product.Stock.
// The cart is unchanged on error.
func (s *Store) AddItem(product *catalog.Product, quantity int) error {
	s.guard()
	if product == nil {
		return sferrors.ErrProductNotFound
	}
	if quantity < 1 {
		return fmt.Errorf("add %d of product %d: %w", quantity, product.ID, sferrors.ErrInvalidQuantity)
	}

	i := s.indexOf(product.ID)
	next := quantity
	if i >= 0 {
		next += s.items[i].Quantity
	}
	if s.enforceStock && next > product.Stock {
		return fmt.Errorf("add %d of product %d (in cart %d, stock %d): %w",
			quantity, product.ID, next-quantity, product.Stock, sferrors.ErrInsufficientStock)
	}

	if i >= 0 {
		s.items[i].Quantity = next
		s.logger.Debug("Updated cart line quantity", "product_id", product.ID, "quantity", next)
	} else {
		s.items = append(s.items, LineItem{Product: product, Quantity: quantity})
		s.logger.Debug("Added cart line", "product_id", product.ID, "quantity", quantity)
	}
	s.publish()
	return nil
}

// RemoveItem deletes the line for productID. Absent ids are a no-op.
func (s *Store) RemoveItem(productID int) {
	s.guard()
	s.remove(productID)
	s.publish()
}

// SetQuantity replaces the quantity of an existing line. A quantity <= 0 removes the line,
// absent ids are a no-op. With the stock ceiling enforced the quantity is capped at stock.
func (s *Store) SetQuantity(productID int, quantity int) {
	s.guard()
	if i := s.indexOf(productID); i >= 0 {
		if s.enforceStock && quantity > s.items[i].Product.Stock {
			quantity = s.items[i].Product.Stock
		}
		if quantity <= 0 {
			s.remove(productID)
		} else {
			s.items[i].Quantity = quantity
			s.logger.Debug("Set cart line quantity", "product_id", productID, "quantity", quantity)
		}
	}
	s.publish()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.guard()
	s.items = nil
	s.logger.Debug("Cleared cart")
	s.publish()
}

// Replace swaps the whole ledger for items. Lines for the same product are merged,
// lines without a product or with a non-positive quantity are dropped, and the stock
// ceiling is applied when enforced.
func (s *Store) Replace(items []LineItem) {
	s.guard()
	s.items = nil
	for _, li := range items {
		if li.Product == nil || li.Quantity <= 0 {
			continue
		}
		if i := s.indexOf(li.Product.ID); i >= 0 {
			s.items[i].Quantity += li.Quantity
		} else {
			s.items = append(s.items, li)
		}
	}
	if s.enforceStock {
		kept := s.items[:0]
		for _, li := range s.items {
			li.Quantity = min(li.Quantity, li.Product.Stock)
			if li.Quantity > 0 {
				kept = append(kept, li)
			}
		}
		s.items = kept
	}
	s.publish()
}

// Items returns a copy of the line items in first-add order.
func (s *Store) Items() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// ItemCount returns the sum of all line quantities.
func (s *Store) ItemCount() int {
	count := 0
	for _, li := range s.items {
		count += li.Quantity
	}
	return count
}

// Subtotal returns Σ price × quantity with no rounding applied.
func (s *Store) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range s.items {
		total = total.Add(li.Total())
	}
	return total
}

// Contains reports whether the cart has a line for productID.
func (s *Store) Contains(productID int) bool {
	return s.indexOf(productID) >= 0
}

// QuantityOf returns the quantity in the cart for productID, or 0.
func (s *Store) QuantityOf(productID int) int {
	if i := s.indexOf(productID); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

// Subscribe registers a listener for the full item list. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(items []LineItem)) func() {
	return s.subject.Subscribe(fn)
}

func (s *Store) indexOf(productID int) int {
	for i, li := range s.items {
		if li.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) remove(productID int) {
	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.logger.Debug("Removed cart line", "product_id", productID)
}

func (s *Store) publish() {
	s.subject.Publish(s.Items())
}

func (s *Store) guard() {
	if s.subject.Emitting() {
		panic(sferrors.ErrReentrantMutation)
	}
}
