package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all market routes
func (h *MarketHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/stocks/", h.HandleListStocks)
	r.Get("/stock-history/{symbol}/", h.HandleGetStockHistory)
	r.Post("/simulate-price-changes/", h.HandleSimulatePriceChanges)
}
