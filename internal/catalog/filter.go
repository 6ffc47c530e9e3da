package catalog

import (
	"slices"
	"strings"
)

// Filter is the search and category selection applied to the full catalog.
type Filter struct {
	SearchTerm string `json:"search"`
	Category   string `json:"category"`
}

// IsZero reports whether the filter lets every product through.
func (f Filter) IsZero() bool {
	return f.SearchTerm == "" && f.Category == ""
}

// Matches reports whether p belongs to the visible subset.
// The search term is a case-insensitive substring of title, description or category;
// the category must match exactly.
func (f Filter) Matches(p *Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.SearchTerm == "" {
		return true
	}
	term := strings.ToLower(f.SearchTerm)
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Description), term) ||
		strings.Contains(strings.ToLower(p.Category), term)
}

// Apply returns the products matching f, in catalog order.
func (f Filter) Apply(products []*Product) []*Product {
	visible := make([]*Product, 0, len(products))
	for _, p := range products {
		if f.Matches(p) {
			visible = append(visible, p)
		}
	}
	return visible
}

// distinctCategories returns the sorted set of categories present in products.
// Uncategorized products contribute nothing: the empty category means "all".
func distinctCategories(products []*Product) []string {
	set := make(map[string]struct{}, len(products))
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		set[p.Category] = struct{}{}
	}
	categories := make([]string, 0, len(set))
	for c := range set {
		categories = append(categories, c)
	}
	slices.Sort(categories)
	return categories
}
