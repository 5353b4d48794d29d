// Package market holds the simulated market state: stocks, current
// prices and the append-only price history.
package market

import "time"

// Stock is a tradable instrument with its current simulated price.
type Stock struct {
	Symbol    string
	Name      string
	Price     float64
	UpdatedAt time.Time
}

// PricePoint is one entry of a stock's price history. Synthetic points
// are generated backfill for sparse charts and are always flagged.
type PricePoint struct {
	Price      float64
	RecordedAt time.Time
	Synthetic  bool
}

// HistoryStats summarizes the real (non-synthetic) portion of a price
// history series.
type HistoryStats struct {
	MeanDailyReturn float64
	Volatility      float64 // standard deviation of daily returns
	SampleSize      int
}
