// Package rest exposes the storefront session over HTTP.
package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/abgdnv/storefront/internal/catalog"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/pricing"
	"github.com/abgdnv/storefront/internal/storefront"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// StorefrontService is the part of storefront.Service the handlers use.
type StorefrontService interface {
	LoadCatalog(ctx context.Context) (int, error)
	RefreshCatalog(ctx context.Context) (int, error)
	VisibleProducts() []*catalog.Product
	SetFilter(f catalog.Filter) []*catalog.Product
	ProductsMatching(f catalog.Filter) []*catalog.Product
	Filter() catalog.Filter
	Categories() []string
	Product(id int) (*catalog.Product, error)
	Cart() storefront.CartSnapshot
	AddItem(ctx context.Context, productID, quantity int) (storefront.CartSnapshot, error)
	SetQuantity(ctx context.Context, productID, quantity int) storefront.CartSnapshot
	RemoveItem(ctx context.Context, productID int) storefront.CartSnapshot
	ClearCart(ctx context.Context) storefront.CartSnapshot
	Summary() pricing.Quote
	SubscribeCart(fn func(storefront.CartSnapshot)) func()
}

type addItemRequest struct {
	ProductID int  `json:"product_id" validate:"required,gt=0"`
	Quantity  *int `json:"quantity"   validate:"omitempty,gt=0"`
}

// quantity defaults to a single unit.
func (r addItemRequest) quantity() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

type filterRequest struct {
	SearchTerm string `json:"search"   validate:"max=200"`
	Category   string `json:"category" validate:"max=100"`
}

type reloadResponse struct {
	Products int `json:"products"`
}

type Handler struct {
	service  StorefrontService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the storefront REST handler.
func NewHandler(service StorefrontService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),

		logger: logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the storefront routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/categories", h.ListCategories)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/filter", h.GetFilter)
			r.Put("/filter", h.SetFilter)
			r.Post("/reload", h.Reload)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Get("/summary", h.Summary)
			r.Get("/events", h.CartEvents)
			r.Post("/items", h.AddItem)
			r.Route("/items/{id}", func(r chi.Router) {
				r.Put("/", h.SetQuantity)
				r.Delete("/", h.RemoveItem)
			})
		})
	})
	r.Get("/healthz", h.HealthCheck)
}

// ListProducts returns the visible products. The search and category query
// parameters, when present, override the matching part of the session filter
// for this request only; PUT /catalog/filter changes the stored filter.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("search") && !query.Has("category") {
		web.RespondJSON(w, h.logger, http.StatusOK, h.service.VisibleProducts())
		return
	}
	f := h.service.Filter()
	if query.Has("search") {
		f.SearchTerm = query.Get("search")
	}
	if query.Has("category") {
		f.Category = query.Get("category")
	}
	h.logger.DebugContext(r.Context(), "Filtering products from query", "search", f.SearchTerm, "category", f.Category)
	web.RespondJSON(w, h.logger, http.StatusOK, h.service.ProductsMatching(f))
}

// GetProduct returns one product of the full catalog.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	product, err := h.service.Product(id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, h.service.Categories())
}

func (h *Handler) GetFilter(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, h.service.Filter())
}

// SetFilter replaces the catalog filter and returns the visible products.
func (h *Handler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}
	visible := h.service.SetFilter(catalog.Filter{SearchTerm: req.SearchTerm, Category: req.Category})
	web.RespondJSON(w, h.logger, http.StatusOK, visible)
}

// Reload fetches the catalog again. With refresh=true any cached copy is dropped first.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	load := h.service.LoadCatalog
	if refresh {
		load = h.service.RefreshCatalog
	}
	count, err := load(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Catalog reloaded", "products", count, "refresh", refresh)
	web.RespondJSON(w, h.logger, http.StatusOK, reloadResponse{Products: count})
}

func (h *Handler) GetCart(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, h.service.Cart())
}

// Summary returns the price breakdown rounded to cents.
func (h *Handler) Summary(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, h.service.Summary().Rounded(2))
}

// AddItem adds a product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}
	quantity := req.quantity()
	h.logger.DebugContext(r.Context(), "Received request to add cart item", "product_id", req.ProductID, "quantity", quantity)
	snap, err := h.service.AddItem(r.Context(), req.ProductID, quantity)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, snap)
}

// SetQuantity replaces the quantity of a cart line. Zero removes the line.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	var req setQuantityRequest
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, h.service.SetQuantity(r.Context(), id, *req.Quantity))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, h.service.RemoveItem(r.Context(), id))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, h.service.ClearCart(r.Context()))
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sferrors.ErrProductNotFound):
		h.logger.WarnContext(r.Context(), "Product not found", "error", err)
		web.RespondError(w, h.logger, http.StatusNotFound, err.Error())
	case errors.Is(err, sferrors.ErrInvalidQuantity):
		h.logger.WarnContext(r.Context(), "Invalid quantity", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, sferrors.ErrInsufficientStock):
		h.logger.WarnContext(r.Context(), "Insufficient stock", "error", err)
		web.RespondError(w, h.logger, http.StatusConflict, err.Error())
	case errors.Is(err, sferrors.ErrStaleCatalogLoad):
		h.logger.InfoContext(r.Context(), "Catalog load superseded", "error", err)
		web.RespondError(w, h.logger, http.StatusConflict, "Catalog load was superseded by a newer one")
	case errors.Is(err, sferrors.ErrCatalogLoadFailure):
		h.logger.ErrorContext(r.Context(), "Catalog load failed", "error", err)
		web.RespondError(w, h.logger, http.StatusBadGateway, fmt.Sprintf("Failed to load catalog: %v", err))
	default:
		h.logger.ErrorContext(r.Context(), "Unexpected storefront error", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Internal error")
	}
}
