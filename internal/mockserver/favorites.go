package mockserver

import (
	"net/http"
	"slices"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

// GET /api/favorites
func (s *Server) listFavorites(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]domain.Product, 0)
	for _, id := range s.favorites[user.ID] {
		if i := s.productIndex(id); i >= 0 {
			items = append(items, s.products[i])
		}
	}
	respondJSON(w, http.StatusOK, items)
}

// POST /api/favorites
func (s *Server) addFavorite(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var req struct {
		ProductID string `json:"productId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(req.ProductID)
	if i < 0 {
		respondError(w, http.StatusNotFound, "not_found", "Product not found")
		return
	}
	if !slices.Contains(s.favorites[user.ID], req.ProductID) {
		s.favorites[user.ID] = append(s.favorites[user.ID], req.ProductID)
	}
	respondJSON(w, http.StatusCreated, s.products[i])
}

// DELETE /api/favorites/{id}
func (s *Server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites[user.ID] = slices.DeleteFunc(s.favorites[user.ID], func(fav string) bool { return fav == id })
	w.WriteHeader(http.StatusNoContent)
}
