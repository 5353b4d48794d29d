// Package handlers provides HTTP handlers for watchlist management.
// All routes require an authenticated user.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/domain"
	"github.com/faketrading/backend/internal/modules/accounts"
	"github.com/faketrading/backend/internal/modules/market"
	"github.com/faketrading/backend/internal/modules/watchlist"
)

// WatchlistHandlers contains HTTP handlers for the watchlist API
type WatchlistHandlers struct {
	repo   *watchlist.Repository
	stocks *market.StockRepository
	log    zerolog.Logger
}

// NewWatchlistHandlers creates a new watchlist handlers instance
func NewWatchlistHandlers(repo *watchlist.Repository, stocks *market.StockRepository, log zerolog.Logger) *WatchlistHandlers {
	return &WatchlistHandlers{
		repo:   repo,
		stocks: stocks,
		log:    log.With().Str("handler", "watchlist").Logger(),
	}
}

// HandleList returns the authenticated user's watchlist with current
// prices.
// GET /api/watchlist/
func (h *WatchlistHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := accounts.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required", "invalid_credentials")
		return
	}

	entries, err := h.repo.List(userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to list watchlist")
		h.writeDomainError(w, err)
		return
	}

	response := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		item := map[string]interface{}{
			"symbol":   entry.Symbol,
			"added_at": entry.AddedAt.Format(time.RFC3339),
		}
		// The stock may have been delisted since it was watched.
		if stock, err := h.stocks.GetBySymbol(entry.Symbol); err == nil {
			item["name"] = stock.Name
			item["price"] = stock.Price
		}
		response = append(response, item)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleAdd watches a stock for the authenticated user.
// POST /api/watchlist/add/{symbol}/
func (h *WatchlistHandlers) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID, ok := accounts.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required", "invalid_credentials")
		return
	}

	symbol := chi.URLParam(r, "symbol")

	// Only known stocks may be watched.
	stock, err := h.stocks.GetBySymbol(symbol)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if err := h.repo.Add(userID, stock.Symbol); err != nil {
		if !errors.Is(err, domain.ErrAlreadyWatched) {
			h.log.Error().Err(err).Int64("user_id", userID).Str("symbol", symbol).Msg("Failed to add to watchlist")
		}
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"symbol": stock.Symbol,
	})
}

// HandleRemove unwatches a stock for the authenticated user.
// DELETE /api/watchlist/remove/{symbol}/
func (h *WatchlistHandlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID, ok := accounts.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required", "invalid_credentials")
		return
	}

	symbol := chi.URLParam(r, "symbol")

	if err := h.repo.Remove(userID, symbol); err != nil {
		if !errors.Is(err, domain.ErrNotWatched) {
			h.log.Error().Err(err).Int64("user_id", userID).Str("symbol", symbol).Msg("Failed to remove from watchlist")
		}
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"symbol": symbol,
	})
}

// writeJSON writes a JSON response
func (h *WatchlistHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *WatchlistHandlers) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// writeDomainError maps a domain error to its HTTP status and stable code
func (h *WatchlistHandlers) writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	message := err.Error()
	if kind == "internal" {
		message = "Internal server error"
	}
	h.writeError(w, domain.HTTPStatus(err), message, kind)
}
