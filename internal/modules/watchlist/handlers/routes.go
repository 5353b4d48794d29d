package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all watchlist routes behind the auth
// middleware.
func (h *WatchlistHandlers) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/watchlist", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.HandleList)
		r.Post("/add/{symbol}/", h.HandleAdd)
		r.Delete("/remove/{symbol}/", h.HandleRemove)
	})
}
