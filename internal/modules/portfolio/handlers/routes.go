package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *PortfolioHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/portfolio/{userID}/", h.HandleGetPortfolio)
	r.Get("/stock-detail/{userID}/{symbol}/", h.HandleGetStockDetail)
	r.Get("/portfolio_history/{userID}/", h.HandleGetPortfolioHistory)
}
