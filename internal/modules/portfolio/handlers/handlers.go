// Package handlers provides HTTP handlers for portfolio views.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/domain"
	"github.com/faketrading/backend/internal/modules/portfolio"
)

// PortfolioHandlers contains HTTP handlers for the portfolio API
type PortfolioHandlers struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewPortfolioHandlers creates a new portfolio handlers instance
func NewPortfolioHandlers(service *portfolio.Service, log zerolog.Logger) *PortfolioHandlers {
	return &PortfolioHandlers{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns cash, holdings and total value.
// GET /api/portfolio/{userID}/
func (h *PortfolioHandlers) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	summary, err := h.service.GetSummary(userID)
	if err != nil {
		h.logInternal(err, userID, "Failed to get portfolio summary")
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// HandleGetStockDetail returns one position's valuation and its
// transaction list.
// GET /api/stock-detail/{userID}/{symbol}/
func (h *PortfolioHandlers) HandleGetStockDetail(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	symbol := chi.URLParam(r, "symbol")

	holding, txns, err := h.service.GetStockDetail(userID, symbol)
	if err != nil {
		h.logInternal(err, userID, "Failed to get stock detail")
		h.writeDomainError(w, err)
		return
	}

	transactions := make([]map[string]interface{}, 0, len(txns))
	for _, t := range txns {
		side := "buy"
		if t.Quantity < 0 {
			side = "sell"
		}
		transactions = append(transactions, map[string]interface{}{
			"id":          t.ID,
			"side":        side,
			"quantity":    t.Quantity,
			"price":       t.Price,
			"executed_at": t.ExecutedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":                 holding.Symbol,
		"name":                   holding.Name,
		"quantity":               holding.Quantity,
		"average_purchase_price": holding.AvgBuyPrice,
		"current_price":          holding.CurrentPrice,
		"value":                  holding.Value,
		"gain_loss":              holding.GainLoss,
		"gain_loss_pct":          holding.GainLossPct,
		"transactions":           transactions,
	})
}

// HandleGetPortfolioHistory returns the 3-point value series.
// GET /api/portfolio_history/{userID}/
func (h *PortfolioHandlers) HandleGetPortfolioHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	points, err := h.service.GetPortfolioHistory(userID)
	if err != nil {
		h.logInternal(err, userID, "Failed to get portfolio history")
		h.writeDomainError(w, err)
		return
	}

	response := make([]map[string]interface{}, 0, len(points))
	for _, p := range points {
		response = append(response, map[string]interface{}{
			"date":      p.Date.Format("2006-01-02"),
			"value":     p.Value,
			"synthetic": p.Synthetic,
		})
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *PortfolioHandlers) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid user id",
			"code":  "bad_request",
		})
		return 0, false
	}
	return userID, true
}

func (h *PortfolioHandlers) logInternal(err error, userID int64, msg string) {
	if domain.Kind(err) == "internal" {
		h.log.Error().Err(err).Int64("user_id", userID).Msg(msg)
	}
}

// writeJSON writes a JSON response
func (h *PortfolioHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeDomainError maps a domain error to its HTTP status and stable code
func (h *PortfolioHandlers) writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	message := err.Error()
	if kind == "internal" {
		message = "Internal server error"
	}
	h.writeJSON(w, domain.HTTPStatus(err), map[string]string{"error": message, "code": kind})
}
