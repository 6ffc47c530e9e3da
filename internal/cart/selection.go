package cart

import (
	"fmt"

	"github.com/abgdnv/storefront/internal/catalog"
	sferrors "github.com/abgdnv/storefront/internal/errors"
)

// Selection holds the quantity a shopper has picked per product before committing it.
// It is view-local state, kept apart from the cart ledger.
type Selection struct {
	pending map[int]int
}

// NewSelection creates an empty selection; every product starts at quantity 1.
func NewSelection() *Selection {
	return &Selection{pending: make(map[int]int)}
}

// Get returns the pending quantity for productID.
func (s *Selection) Get(productID int) int {
	if q, ok := s.pending[productID]; ok {
		return q
	}
	return 1
}

// Increase bumps the pending quantity unless it already reached the product stock.
func (s *Selection) Increase(p *catalog.Product) int {
	q := s.Get(p.ID)
	if q < p.Stock {
		q++
		s.pending[p.ID] = q
	}
	return q
}

// Decrease lowers the pending quantity, never below 1.
func (s *Selection) Decrease(productID int) int {
	q := s.Get(productID)
	if q > 1 {
		q--
		s.pending[productID] = q
	}
	return q
}

// Reset drops the pending quantity for productID.
func (s *Selection) Reset(productID int) {
	delete(s.pending, productID)
}

// Commit adds the pending quantity of p to the cart.
// Out-of-stock products are rejected before reaching the cart.
func (s *Selection) Commit(c *Store, p *catalog.Product) error {
	if !p.InStock() {
		return fmt.Errorf("product %d is out of stock: %w", p.ID, sferrors.ErrInsufficientStock)
	}
	return c.AddItem(p, s.Get(p.ID))
}
