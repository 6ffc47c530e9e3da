package cart

import (
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

// LineItem is one product in the cart with its committed quantity.
// Product is shared with the catalog and never modified by the cart.
type LineItem struct {
	Product  *catalog.Product `json:"product"`
	Quantity int              `json:"quantity"`
}

// Total returns price × quantity without rounding.
func (li LineItem) Total() decimal.Decimal {
	return li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
