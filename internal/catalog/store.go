package catalog

import (
	"context"
	"fmt"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/observer"
)

// Store owns the full catalog and the filter state and derives the visible subset from them.
// It is a single-writer state container: callers serialize access, and every change is
// pushed synchronously to subscribers before the mutating call returns.
type Store struct {
	products   []*Product
	index      map[int]*Product
	categories []string
	filter     Filter
	visible    []*Product
	lastErr    error

	issued  uint64
	applied uint64

	subject observer.Subject[[]*Product]
}

// LoadTicket identifies one load from BeginLoad to CompleteLoad.
type LoadTicket struct {
	seq uint64
}

// NewStore creates an empty catalog store.
func NewStore() *Store {
	return &Store{
		index: make(map[int]*Product),
	}
}

// Load fetches the catalog from src and swaps it in.
// On failure the catalog is emptied and the returned error wraps ErrCatalogLoadFailure.
func (s *Store) Load(ctx context.Context, src Source) ([]*Product, error) {
	ticket := s.BeginLoad()
	products, err := src.Fetch(ctx)
	return s.CompleteLoad(ticket, products, err)
}

// BeginLoad reserves a sequence number for a load whose fetch happens elsewhere.
// Readers keep seeing the current catalog until CompleteLoad.
func (s *Store) BeginLoad() LoadTicket {
	s.issued++
	return LoadTicket{seq: s.issued}
}

// CompleteLoad applies the outcome of the fetch started with ticket.
// A completion older than the last applied one is discarded with ErrStaleCatalogLoad.
func (s *Store) CompleteLoad(ticket LoadTicket, products []Product, fetchErr error) ([]*Product, error) {
	s.guard()
	if ticket.seq <= s.applied {
		return nil, sferrors.ErrStaleCatalogLoad
	}
	s.applied = ticket.seq

	if fetchErr == nil {
		fetchErr = Validate(products)
	}
	if fetchErr != nil {
		s.replace(nil)
		s.lastErr = fmt.Errorf("%w: %w", sferrors.ErrCatalogLoadFailure, fetchErr)
		s.publish()
		return s.Products(), s.lastErr
	}

	records := make([]Product, len(products))
	copy(records, products)
	loaded := make([]*Product, len(records))
	for i := range records {
		loaded[i] = &records[i]
	}
	s.replace(loaded)
	s.lastErr = nil
	s.publish()
	return s.Products(), nil
}

// SetSearchTerm updates the free-text query and recomputes the visible subset.
func (s *Store) SetSearchTerm(term string) {
	s.guard()
	s.filter.SearchTerm = term
	s.recompute()
	s.publish()
}

// SetCategory updates the category selector; an empty category disables it.
func (s *Store) SetCategory(category string) {
	s.guard()
	s.filter.Category = category
	s.recompute()
	s.publish()
}

// SetFilter replaces both filter fields at once.
func (s *Store) SetFilter(f Filter) {
	s.guard()
	s.filter = f
	s.recompute()
	s.publish()
}

// Filter returns the current filter state.
func (s *Store) Filter() Filter {
	return s.filter
}

// VisibleProducts returns the filtered subset in catalog order.
func (s *Store) VisibleProducts() []*Product {
	return cloneSlice(s.visible)
}

// Products returns the full catalog in load order.
func (s *Store) Products() []*Product {
	return cloneSlice(s.products)
}

// Categories returns the distinct categories of the full catalog, sorted ascending.
func (s *Store) Categories() []string {
	return cloneSlice(s.categories)
}

// ProductByID looks a product up in the full catalog, regardless of the filter.
func (s *Store) ProductByID(id int) (*Product, error) {
	p, ok := s.index[id]
	if !ok {
		return nil, sferrors.ErrProductNotFound
	}
	return p, nil
}

// LastError returns the failure of the most recent applied load, or nil.
func (s *Store) LastError() error {
	return s.lastErr
}

// Subscribe registers a listener for the visible subset. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(visible []*Product)) func() {
	return s.subject.Subscribe(fn)
}

func (s *Store) replace(products []*Product) {
	s.products = products
	s.index = make(map[int]*Product, len(products))
	for _, p := range products {
		s.index[p.ID] = p
	}
	s.categories = distinctCategories(products)
	s.recompute()
}

func (s *Store) recompute() {
	s.visible = s.filter.Apply(s.products)
}

func (s *Store) publish() {
	s.subject.Publish(s.VisibleProducts())
}

func (s *Store) guard() {
	if s.subject.Emitting() {
		panic(sferrors.ErrReentrantMutation)
	}
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
