package source

import (
	"context"
	"fmt"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var _ catalog.Source = (*PgSource)(nil)

// querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgSource reads the catalog from the products table.
type PgSource struct {
	db querier
}

func NewPgSource(db querier) *PgSource {
	return &PgSource{db: db}
}

const selectProducts = `
SELECT id, title, description, category, price, discount_percentage, rating, stock,
       brand, sku, thumbnail, images, tags
FROM products
ORDER BY id`

type productRow struct {
	ID                 int            `db:"id"`
	Title              string         `db:"title"`
	Description        string         `db:"description"`
	Category           string         `db:"category"`
	Price              pgtype.Numeric `db:"price"`
	DiscountPercentage float64        `db:"discount_percentage"`
	Rating             float64        `db:"rating"`
	Stock              int            `db:"stock"`
	Brand              pgtype.Text    `db:"brand"`
	SKU                pgtype.Text    `db:"sku"`
	Thumbnail          pgtype.Text    `db:"thumbnail"`
	Images             []string       `db:"images"`
	Tags               []string       `db:"tags"`
}

func (s *PgSource) Fetch(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.db.Query(ctx, selectProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}

	products := make([]catalog.Product, 0, len(records))
	for _, r := range records {
		price, err := numericToDecimal(r.Price)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", r.ID, err)
		}
		products = append(products, catalog.Product{
			ID:                 r.ID,
			Title:              r.Title,
			Description:        r.Description,
			Category:           r.Category,
			Price:              price,
			DiscountPercentage: r.DiscountPercentage,
			Rating:             r.Rating,
			Stock:              r.Stock,
			Brand:              r.Brand.String,
			SKU:                r.SKU.String,
			Thumbnail:          r.Thumbnail.String,
			Images:             r.Images,
			Tags:               r.Tags,
		})
	}
	if err := catalog.Validate(products); err != nil {
		return nil, fmt.Errorf("invalid products in database: %w", err)
	}
	return products, nil
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero, fmt.Errorf("price is not a finite number")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
