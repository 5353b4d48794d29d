package market

import (
	"math"
	"math/rand"
	"sort"
	"time"

	talib "github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

const (
	// defaultHistoryLimit caps how many history rows a query returns.
	defaultHistoryLimit = 100
	// minRealPoints is the threshold below which synthetic backfill kicks in.
	minRealPoints = 5
	// backfillDays is how far back the synthetic random walk reaches.
	backfillDays = 30
	// backfillDailyChange bounds the synthetic walk's daily move (±2%).
	backfillDailyChange = 0.02
	// smaPeriod is the moving-average window reported with histories.
	smaPeriod = 20
)

// Service provides read operations over the market, including the
// price history with its synthetic fallback for sparse charts.
type Service struct {
	stocks *StockRepository
	log    zerolog.Logger
}

// NewService creates a new market service
func NewService(stocks *StockRepository, log zerolog.Logger) *Service {
	return &Service{
		stocks: stocks,
		log:    log.With().Str("service", "market").Logger(),
	}
}

// ListStocks returns all stocks
func (s *Service) ListStocks() ([]Stock, error) {
	return s.stocks.All()
}

// GetStock returns one stock by symbol
func (s *Service) GetStock(symbol string) (*Stock, error) {
	return s.stocks.GetBySymbol(symbol)
}

// History is a price history series with derived statistics.
type History struct {
	Symbol string
	Points []PricePoint // newest first
	Stats  *HistoryStats
	SMA    []float64 // aligned with Points, oldest-first window; nil when too few real points
}

// GetPriceHistory returns up to 100 recorded points, newest first.
// When fewer than 5 real entries exist, the series is backfilled with a
// synthetic 30-day random walk from the current price so charts are
// never empty. Synthetic points are flagged, never silently merged.
func (s *Service) GetPriceHistory(symbol string) (*History, error) {
	stock, err := s.stocks.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}

	points, err := s.stocks.GetHistory(stock.Symbol, defaultHistoryLimit)
	if err != nil {
		return nil, err
	}

	history := &History{Symbol: stock.Symbol, Points: points}

	if len(points) < minRealPoints {
		s.log.Debug().
			Str("symbol", stock.Symbol).
			Int("real_points", len(points)).
			Msg("Sparse price history, generating synthetic backfill")
		history.Points = append(history.Points, syntheticBackfill(stock.Price, time.Now())...)
		// Real points can fall anywhere inside the backfill window, so
		// re-establish newest-first order over the combined series.
		sort.SliceStable(history.Points, func(i, j int) bool {
			return history.Points[i].RecordedAt.After(history.Points[j].RecordedAt)
		})
		return history, nil
	}

	history.Stats = computeStats(points)
	history.SMA = computeSMA(points)

	return history, nil
}

// syntheticBackfill generates a 30-day random walk ending at the
// current price, oldest entries last (the series is newest-first).
func syntheticBackfill(currentPrice float64, now time.Time) []PricePoint {
	points := make([]PricePoint, 0, backfillDays)

	price := currentPrice
	for day := 1; day <= backfillDays; day++ {
		// Walk backwards in time, perturbing ±2% per day
		change := (rand.Float64()*2 - 1) * backfillDailyChange
		price = math.Max(0.01, round2(price*(1+change)))

		points = append(points, PricePoint{
			Price:      price,
			RecordedAt: now.AddDate(0, 0, -day),
			Synthetic:  true,
		})
	}

	return points
}

// computeStats derives daily-return statistics from real points.
func computeStats(points []PricePoint) *HistoryStats {
	if len(points) < 2 {
		return nil
	}

	// Points are newest first; returns are computed oldest to newest
	returns := make([]float64, 0, len(points)-1)
	for i := len(points) - 1; i > 0; i-- {
		prev := points[i].Price
		next := points[i-1].Price
		if prev > 0 {
			returns = append(returns, next/prev-1)
		}
	}

	if len(returns) == 0 {
		return nil
	}

	mean := stat.Mean(returns, nil)
	sigma := 0.0
	if len(returns) > 1 {
		sigma = stat.StdDev(returns, nil)
	}

	return &HistoryStats{
		MeanDailyReturn: mean,
		Volatility:      sigma,
		SampleSize:      len(returns),
	}
}

// computeSMA returns the simple moving average over the real series,
// or nil when there are too few points for one full window.
func computeSMA(points []PricePoint) []float64 {
	if len(points) < smaPeriod {
		return nil
	}

	// talib expects oldest-first input
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[len(points)-1-i] = p.Price
	}

	return talib.Sma(prices, smaPeriod)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
