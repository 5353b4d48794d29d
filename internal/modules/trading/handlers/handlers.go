// Package handlers provides HTTP handlers for order settlement.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/domain"
	"github.com/faketrading/backend/internal/modules/trading"
)

// TradingHandlers contains HTTP handlers for the trading API
type TradingHandlers struct {
	settlement *trading.SettlementService
	log        zerolog.Logger
}

// NewTradingHandlers creates a new trading handlers instance
func NewTradingHandlers(settlement *trading.SettlementService, log zerolog.Logger) *TradingHandlers {
	return &TradingHandlers{
		settlement: settlement,
		log:        log.With().Str("handler", "trading").Logger(),
	}
}

// HandleBuy executes a buy order at the current simulated price.
// POST /api/buy/{userID}/{symbol}/{quantity}/
func (h *TradingHandlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.settlement.Buy)
}

// HandleSell executes a sell order at the current simulated price.
// POST /api/sell/{userID}/{symbol}/{quantity}/
func (h *TradingHandlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.settlement.Sell)
}

func (h *TradingHandlers) handleOrder(
	w http.ResponseWriter,
	r *http.Request,
	settle func(userID int64, symbol string, quantity int64) (*trading.Receipt, error),
) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user id", "bad_request")
		return
	}

	symbol := chi.URLParam(r, "symbol")

	quantity, err := strconv.ParseInt(chi.URLParam(r, "quantity"), 10, 64)
	if err != nil {
		h.writeDomainError(w, domain.ErrInvalidQuantity)
		return
	}

	receipt, err := settle(userID, symbol, quantity)
	if err != nil {
		if domain.Kind(err) == "internal" {
			h.log.Error().Err(err).
				Int64("user_id", userID).
				Str("symbol", symbol).
				Msg("Order settlement failed")
		}
		h.writeDomainError(w, err)
		return
	}

	// Ledger rows keep signed quantities (sells negative); the order
	// confirmation reports the amount ordered.
	reported := receipt.Quantity
	if reported < 0 {
		reported = -reported
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "success",
		"transaction_id": receipt.TransactionID,
		"order_id":       receipt.OrderID,
		"symbol":         receipt.Symbol,
		"quantity":       reported,
		"price":          receipt.Price,
		"total":          receipt.Total,
	})
}

// HandleGetTransactions returns a user's transaction log, most recent first.
// GET /api/transactions/{userID}/
func (h *TradingHandlers) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user id", "bad_request")
		return
	}

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil {
			limit = parsed
		}
	}

	txns, err := h.settlement.GetHistory(userID, limit)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to get transaction history")
		h.writeDomainError(w, err)
		return
	}

	response := make([]map[string]interface{}, 0, len(txns))
	for _, t := range txns {
		side := "buy"
		if t.Quantity < 0 {
			side = "sell"
		}
		response = append(response, map[string]interface{}{
			"id":          t.ID,
			"order_id":    t.OrderID,
			"symbol":      t.Symbol,
			"side":        side,
			"quantity":    t.Quantity,
			"price":       t.Price,
			"executed_at": t.ExecutedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *TradingHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *TradingHandlers) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// writeDomainError maps a domain error to its HTTP status and stable code
func (h *TradingHandlers) writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	message := err.Error()
	if kind == "internal" {
		message = "Internal server error"
	}
	h.writeError(w, domain.HTTPStatus(err), message, kind)
}
