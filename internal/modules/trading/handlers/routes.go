package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trading routes
func (h *TradingHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/buy/{userID}/{symbol}/{quantity}/", h.HandleBuy)
	r.Post("/sell/{userID}/{symbol}/{quantity}/", h.HandleSell)
	r.Get("/transactions/{userID}/", h.HandleGetTransactions)
}
