// Package simulation perturbs stock prices on a schedule to imitate
// market movement.
package simulation

import (
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/events"
	"github.com/faketrading/backend/internal/modules/market"
)

const (
	// baseChange bounds the per-step move for ordinary symbols (±1%).
	baseChange = 0.01
	// priceFloor is the minimum price after any perturbation.
	priceFloor = 0.01
)

// highVolatility symbols get an extra multiplicative factor in
// [0.8, 1.2] on top of the base perturbation. That factor compounds
// into much larger single-step swings for these symbols.
var highVolatility = map[string]bool{
	"TSLA": true,
	"NVDA": true,
	"AMD":  true,
	"NFLX": true,
}

// PriceChange reports a single stock's before/after prices for one
// simulation step.
type PriceChange struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	OldPrice float64 `json:"old_price"`
	NewPrice float64 `json:"new_price"`
}

// Service runs the price simulator.
type Service struct {
	stocks      *market.StockRepository
	broadcaster *events.Broadcaster
	log         zerolog.Logger

	// rnd allows deterministic tests; defaults to the shared source.
	rnd *rand.Rand
}

// NewService creates a new price simulation service
func NewService(stocks *market.StockRepository, broadcaster *events.Broadcaster, log zerolog.Logger) *Service {
	return &Service{
		stocks:      stocks,
		broadcaster: broadcaster,
		log:         log.With().Str("service", "simulation").Logger(),
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// PerturbAll applies one simulation step to every stock and returns the
// per-stock before/after prices. Each new price is written to the stock
// row and appended to its price history.
func (s *Service) PerturbAll() ([]PriceChange, error) {
	stocks, err := s.stocks.All()
	if err != nil {
		return nil, err
	}

	changes := make([]PriceChange, 0, len(stocks))
	for _, stock := range stocks {
		newPrice := s.perturb(stock.Symbol, stock.Price)

		if err := s.stocks.UpdatePrice(stock.Symbol, newPrice); err != nil {
			s.log.Error().Err(err).Str("symbol", stock.Symbol).Msg("Failed to store simulated price")
			continue
		}

		s.broadcaster.Publish(events.PriceUpdate{
			Symbol:    stock.Symbol,
			Price:     newPrice,
			OldPrice:  stock.Price,
			Source:    "simulator",
			Timestamp: time.Now().UTC(),
		})

		changes = append(changes, PriceChange{
			Symbol:   stock.Symbol,
			Name:     stock.Name,
			OldPrice: stock.Price,
			NewPrice: newPrice,
		})
	}

	s.log.Info().Int("stocks", len(changes)).Msg("Price simulation step completed")
	return changes, nil
}

// perturb computes the next price for one symbol: a uniform change in
// [-1%, +1%], an extra [0.8, 1.2] factor for high-volatility symbols,
// clamped to the price floor and rounded to cents.
func (s *Service) perturb(symbol string, price float64) float64 {
	change := (s.rnd.Float64()*2 - 1) * baseChange
	newPrice := price * (1 + change)

	if highVolatility[symbol] {
		newPrice *= 0.8 + s.rnd.Float64()*0.4
	}

	newPrice = math.Max(priceFloor, newPrice)
	return math.Round(newPrice*100) / 100
}
