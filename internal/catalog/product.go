// Package catalog holds the product catalog and derives the visible, filtered subset from it.
package catalog

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Product is a catalog record. It is immutable once loaded and shared by pointer
// between the catalog and the cart.
type Product struct {
	ID                 int             `json:"id"                 validate:"gt=0"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Category           string          `json:"category"`
	Price              decimal.Decimal `json:"price"              validate:"gte=0"`
	DiscountPercentage float64         `json:"discountPercentage" validate:"gte=0,lte=100"`
	Rating             float64         `json:"rating"             validate:"gte=0,lte=5"`
	Stock              int             `json:"stock"              validate:"gte=0"`

	Brand                string   `json:"brand,omitempty"`
	SKU                  string   `json:"sku,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	Thumbnail            string   `json:"thumbnail,omitempty"`
	Images               []string `json:"images,omitempty"`
	Weight               float64  `json:"weight,omitempty"               validate:"gte=0"`
	WarrantyInformation  string   `json:"warrantyInformation,omitempty"`
	ShippingInformation  string   `json:"shippingInformation,omitempty"`
	AvailabilityStatus   string   `json:"availabilityStatus,omitempty"`
	ReturnPolicy         string   `json:"returnPolicy,omitempty"`
	MinimumOrderQuantity int      `json:"minimumOrderQuantity,omitempty" validate:"gte=0"`
}

// InStock reports whether at least one unit can be sold.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// Payload is the wire shape every catalog source delivers.
type Payload struct {
	Products []Product `json:"products"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// lets numeric rules such as gte=0 apply to decimal prices
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validate checks every product against the data model rules and rejects duplicate ids.
// All violations are reported together.
func Validate(products []Product) error {
	var errs error
	seen := make(map[int]int, len(products))
	for i := range products {
		p := &products[i]
		if err := validate.Struct(p); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("product[%d] id=%d: %w", i, p.ID, err))
		}
		if first, dup := seen[p.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("product[%d] id=%d: duplicate of product[%d]", i, p.ID, first))
			continue
		}
		seen[p.ID] = i
	}
	return errs
}
