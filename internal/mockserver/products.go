package mockserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// GET /api/products
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := domain.ProductQuery{
		Sort: domain.SortOrder(params.Get("sort")),
		Q:    params.Get("q"),
		Tag:  params.Get("tag"),
	}
	q.Page, _ = strconv.Atoi(params.Get("page"))
	q.Limit, _ = strconv.Atoi(params.Get("limit"))
	for name, dst := range map[string]**decimal.Decimal{"minPrice": &q.MinPrice, "maxPrice": &q.MaxPrice} {
		if v := params.Get(name); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid_price", name+" must be a number")
				return
			}
			*dst = &d
		}
	}

	s.mu.Lock()
	items := cloneAll(s.products)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, q.Apply(items))
}

// GET /api/products/slug/{slug}
func (s *Server) productBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.Slug == slug {
			respondJSON(w, http.StatusOK, p)
			return
		}
	}
	respondError(w, http.StatusNotFound, "not_found", "Product not found")
}

// POST /api/products
func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Slug) == "" || p.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_product", "name, slug and a non-negative price are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.Slug == p.Slug {
			respondError(w, http.StatusConflict, "slug_taken", "Slug already in use")
			return
		}
	}
	p.ID = s.nextID("")
	p.CreatedAt = s.now().UTC()
	p.InStock = p.TotalStock > 0
	s.products = append(s.products, p.Clone())
	respondJSON(w, http.StatusCreated, p)
}

// PATCH /api/products/{id}
func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProductPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(chi.URLParam(r, "id"))
	if i < 0 {
		respondError(w, http.StatusNotFound, "not_found", "Product not found")
		return
	}
	s.products[i] = s.products[i].Apply(patch)
	respondJSON(w, http.StatusOK, s.products[i])
}

// DELETE /api/products/{id}
func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(chi.URLParam(r, "id"))
	if i < 0 {
		respondError(w, http.StatusNotFound, "not_found", "Product not found")
		return
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func cloneAll(items []domain.Product) []domain.Product {
	out := make([]domain.Product, len(items))
	for i, p := range items {
		out[i] = p.Clone()
	}
	return out
}
