// Package handlers provides HTTP handlers for the stock list, price
// history and the on-demand price simulation trigger.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/domain"
	"github.com/faketrading/backend/internal/modules/market"
	"github.com/faketrading/backend/internal/modules/simulation"
)

// MarketHandlers contains HTTP handlers for the market API
type MarketHandlers struct {
	service   *market.Service
	simulator *simulation.Service
	log       zerolog.Logger
}

// NewMarketHandlers creates a new market handlers instance
func NewMarketHandlers(service *market.Service, simulator *simulation.Service, log zerolog.Logger) *MarketHandlers {
	return &MarketHandlers{
		service:   service,
		simulator: simulator,
		log:       log.With().Str("handler", "market").Logger(),
	}
}

// HandleListStocks returns every stock with its current price.
// GET /api/stocks/
func (h *MarketHandlers) HandleListStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.service.ListStocks()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list stocks")
		h.writeDomainError(w, err)
		return
	}

	response := make([]map[string]interface{}, 0, len(stocks))
	for _, s := range stocks {
		response = append(response, map[string]interface{}{
			"symbol": s.Symbol,
			"name":   s.Name,
			"price":  s.Price,
		})
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetStockHistory returns a stock's price history, newest first,
// with synthetic backfill when too few real points exist.
// GET /api/stock-history/{symbol}/
func (h *MarketHandlers) HandleGetStockHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	history, err := h.service.GetPriceHistory(symbol)
	if err != nil {
		if domain.Kind(err) == "internal" {
			h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get price history")
		}
		h.writeDomainError(w, err)
		return
	}

	points := make([]map[string]interface{}, 0, len(history.Points))
	for _, p := range history.Points {
		points = append(points, map[string]interface{}{
			"price":       p.Price,
			"recorded_at": p.RecordedAt.Format(time.RFC3339),
			"synthetic":   p.Synthetic,
		})
	}

	response := map[string]interface{}{
		"symbol": history.Symbol,
		"points": points,
	}
	if history.Stats != nil {
		response["stats"] = map[string]interface{}{
			"mean_daily_return": history.Stats.MeanDailyReturn,
			"volatility":        history.Stats.Volatility,
			"sample_size":       history.Stats.SampleSize,
		}
	}
	if len(history.SMA) > 0 {
		response["sma"] = history.SMA
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleSimulatePriceChanges perturbs every stock price once and
// returns per-stock before/after prices.
// POST /api/simulate-price-changes/
func (h *MarketHandlers) HandleSimulatePriceChanges(w http.ResponseWriter, r *http.Request) {
	changes, err := h.simulator.PerturbAll()
	if err != nil {
		h.log.Error().Err(err).Msg("On-demand price simulation failed")
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"changes": changes,
	})
}

// writeJSON writes a JSON response
func (h *MarketHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeDomainError maps a domain error to its HTTP status and stable code
func (h *MarketHandlers) writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	message := err.Error()
	if kind == "internal" {
		message = "Internal server error"
	}
	h.writeJSON(w, domain.HTTPStatus(err), map[string]string{"error": message, "code": kind})
}
