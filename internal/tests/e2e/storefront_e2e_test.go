// Package e2e runs the storefront HTTP surface end to end against a PostgreSQL
// catalog started with testcontainers-go. Every test seeds the products table,
// reloads the catalog through the API and starts from an empty cart.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "STOREFRONT_SKIP_E2E_TESTS"

const seedProducts = `
INSERT INTO products (id, title, description, category, price, rating, stock)
VALUES (1, 'Essence Mascara', 'Lengthening mascara', 'beauty', 9.99, 4.9, 5),
       (2, 'Eyeshadow Palette', 'Twelve shades', 'beauty', 19.99, 3.3, 0),
       (3, 'Annibale Colombo Bed', 'Walnut bed frame', 'furniture', 1899.99, 4.1, 2),
       (4, 'Apple', 'Fresh red apple', 'groceries', 1.99, 4.6, 100)`

type StorefrontE2ESuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	server      *httptest.Server
	httpClient  *http.Client
	logger      *slog.Logger
	ctx         context.Context
}

func testConfig() *config.Config {
	var cfg config.Config
	cfg.Catalog.Source = config.SourcePostgres
	cfg.Catalog.Timeout = 10 * time.Second
	cfg.Telemetry.Metrics.Path = "/metrics"
	return &cfg
}

func (s *StorefrontE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgx pool")
	for i := range 10 {
		s.logger.Info("Pinging E2E PostgreSQL database", "attempt", i+1)
		if err = s.dbPool.Ping(s.ctx); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	wd, _ := os.Getwd()
	m, err := migrate.New("file://"+filepath.Join(wd, "..", "..", "..", "migrations"), connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}

	deps, err := app.SetupDependencies(testConfig(), app.Externals{DB: s.dbPool}, s.logger)
	require.NoError(s.T(), err, "Failed to set up storefront for E2E")
	s.server = httptest.NewServer(app.SetupHttpHandler(deps, "/metrics"))
	s.httpClient = s.server.Client()
	s.logger.Info("E2E test server started", "url", s.server.URL)
}

func (s *StorefrontE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("Failed to terminate E2E PostgreSQL container", "error", err)
		}
	}
}

func (s *StorefrontE2ESuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE products")
	s.Require().NoError(err, "Failed to truncate products table")
	_, err = s.dbPool.Exec(s.ctx, seedProducts)
	s.Require().NoError(err, "Failed to seed products")

	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/v1/catalog/reload", nil, nil))
	s.Require().Equal(http.StatusOK, s.do(http.MethodDelete, "/api/v1/cart", nil, nil))
	s.Require().Equal(http.StatusOK, s.do(http.MethodPut, "/api/v1/catalog/filter", map[string]string{}, nil))
}

func TestStorefrontE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping E2E tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(StorefrontE2ESuite))
}

type productPayload struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Price    string `json:"price"`
	Stock    int    `json:"stock"`
}

type cartPayload struct {
	Items []struct {
		Product  productPayload `json:"product"`
		Quantity int            `json:"quantity"`
	} `json:"items"`
	ItemCount int    `json:"item_count"`
	Subtotal  string `json:"subtotal"`
}

type summaryPayload struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// do sends body as JSON and decodes the response into out when out is not nil.
func (s *StorefrontE2ESuite) do(method, path string, body, out any) int {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *StorefrontE2ESuite) TestBrowseCatalog() {
	testCases := []struct {
		name      string
		path      string
		expectIDs []int
	}{
		{name: "all products", path: "/api/v1/products", expectIDs: []int{1, 2, 3, 4}},
		{name: "by category", path: "/api/v1/products?category=beauty", expectIDs: []int{1, 2}},
		{name: "by search", path: "/api/v1/products?search=walnut&category=", expectIDs: []int{3}},
		{name: "search and category", path: "/api/v1/products?search=apple&category=beauty", expectIDs: []int{}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			// when
			var products []productPayload
			code := s.do(http.MethodGet, tc.path, nil, &products)
			// then
			s.Require().Equal(http.StatusOK, code)
			ids := make([]int, 0, len(products))
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			s.Equal(tc.expectIDs, ids)
		})
	}

	// when
	var categories []string
	code := s.do(http.MethodGet, "/api/v1/categories", nil, &categories)
	// then
	s.Require().Equal(http.StatusOK, code)
	s.Equal([]string{"beauty", "furniture", "groceries"}, categories)
}

func (s *StorefrontE2ESuite) TestShoppingJourney() {
	// when
	var cart cartPayload
	code := s.do(http.MethodPost, "/api/v1/cart/items", map[string]int{"product_id": 1, "quantity": 2}, &cart)
	// then
	s.Require().Equal(http.StatusOK, code)
	s.Equal(2, cart.ItemCount)
	s.Equal("19.98", cart.Subtotal)

	// when
	code = s.do(http.MethodPost, "/api/v1/cart/items", map[string]int{"product_id": 4, "quantity": 10}, &cart)
	// then
	s.Require().Equal(http.StatusOK, code)
	s.Equal(12, cart.ItemCount)
	s.Equal("39.88", cart.Subtotal)

	// when
	var summary summaryPayload
	code = s.do(http.MethodGet, "/api/v1/cart/summary", nil, &summary)
	// then
	s.Require().Equal(http.StatusOK, code)
	s.Equal(summaryPayload{Subtotal: "39.88", Shipping: "50", Tax: "5.58", Total: "95.46"}, summary)

	// when
	code = s.do(http.MethodPut, "/api/v1/cart/items/4", map[string]int{"quantity": 0}, &cart)
	// then
	s.Require().Equal(http.StatusOK, code)
	s.Require().Len(cart.Items, 1)
	s.Equal(1, cart.Items[0].Product.ID)
}

func (s *StorefrontE2ESuite) TestStockLimits() {
	testCases := []struct {
		name         string
		body         map[string]int
		expectedCode int
	}{
		{name: "out of stock", body: map[string]int{"product_id": 2, "quantity": 1}, expectedCode: http.StatusConflict},
		{name: "above stock", body: map[string]int{"product_id": 3, "quantity": 3}, expectedCode: http.StatusConflict},
		{name: "unknown product", body: map[string]int{"product_id": 99, "quantity": 1}, expectedCode: http.StatusNotFound},
		{name: "at stock", body: map[string]int{"product_id": 3, "quantity": 2}, expectedCode: http.StatusOK},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			// when
			code := s.do(http.MethodPost, "/api/v1/cart/items", tc.body, nil)
			// then
			s.Equal(tc.expectedCode, code)
		})
	}
}

func (s *StorefrontE2ESuite) TestReloadPicksUpChanges() {
	// given
	_, err := s.dbPool.Exec(s.ctx, `UPDATE products SET stock = 0 WHERE id = 1`)
	s.Require().NoError(err)
	// when
	var reload struct {
		Products int `json:"products"`
	}
	code := s.do(http.MethodPost, "/api/v1/catalog/reload", nil, &reload)
	// then
	s.Require().Equal(http.StatusOK, code)
	s.Equal(4, reload.Products)
	s.Equal(http.StatusConflict, s.do(http.MethodPost, "/api/v1/cart/items", map[string]int{"product_id": 1, "quantity": 1}, nil))
}
