package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
	"github.com/NguyenVanDuc36/AffiliHub/internal/catalog"
)

// ProductCatalog is what the product routes read from.
type ProductCatalog interface {
	catalog.Lookup
	Trending(ctx context.Context) ([]catalog.Product, error)
	FlashSale(ctx context.Context) ([]catalog.Product, error)
	Categories(ctx context.Context) ([]catalog.Category, error)
}

type ProductHandler struct {
	Catalog ProductCatalog
}

func NewProductHandler(c ProductCatalog) *ProductHandler {
	return &ProductHandler{Catalog: c}
}

// List handles GET /api/products?category=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.GetProducts(r.Context(), r.URL.Query().Get("category"))
	h.respond(w, r, products, err)
}

// Trending handles GET /api/products/trending.
func (h *ProductHandler) Trending(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.Trending(r.Context())
	h.respond(w, r, products, err)
}

// FlashSale handles GET /api/products/flash-sale.
func (h *ProductHandler) FlashSale(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.FlashSale(r.Context())
	h.respond(w, r, products, err)
}

// Categories handles GET /api/categories.
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if categories == nil {
		categories = []catalog.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// Get handles GET /api/products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, ok, err := h.Catalog.GetProductByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, fmt.Errorf("%w: product %d", apperr.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) respond(w http.ResponseWriter, r *http.Request, products []catalog.Product, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func productID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid product id %q", apperr.ErrInvalidArgument, raw)
	}
	return id, nil
}
