package portfolio

import "time"

// Holding is one stock position derived from the transaction ledger.
// Quantity is the net signed sum; positions with net quantity <= 0 are
// never reported.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Quantity     int64   `json:"quantity"`
	AvgBuyPrice  float64 `json:"avg_buy_price"`
	CurrentPrice float64 `json:"current_price"`
	Value        float64 `json:"value"`
	GainLoss     float64 `json:"gain_loss"`
	GainLossPct  float64 `json:"gain_loss_pct"`
}

// Summary is the full portfolio view: cash plus valued holdings.
type Summary struct {
	CashBalance float64   `json:"cash_balance"`
	Holdings    []Holding `json:"holdings"`
	TotalValue  float64   `json:"total_value"`
}

// HistoryPoint is one point on the portfolio value timeline. Points
// interpolated rather than observed carry Synthetic = true.
type HistoryPoint struct {
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	Synthetic bool      `json:"synthetic"`
}

// positionAggregate is the raw per-symbol ledger rollup.
type positionAggregate struct {
	Symbol      string
	NetQuantity int64
	BuyQuantity int64
	BuyCost     float64
}
