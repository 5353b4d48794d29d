// Package trading implements order settlement and the immutable
// transaction ledger.
package trading

import (
	"fmt"
	"time"
)

// Transaction is one settled order. Positive quantity is a buy,
// negative is a sell. Rows are immutable once written; the ledger is
// the sole source of truth for holdings.
type Transaction struct {
	ID         int64
	OrderID    string
	UserID     int64
	Symbol     string
	Quantity   int64 // signed
	Price      float64
	ExecutedAt time.Time
}

// Validate checks invariants before database insertion
func (t Transaction) Validate() error {
	if t.Quantity == 0 {
		return fmt.Errorf("quantity must be non-zero")
	}
	if t.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	return nil
}

// Receipt confirms a settled order back to the client.
type Receipt struct {
	TransactionID int64
	OrderID       string
	Symbol        string
	Quantity      int64
	Price         float64
	Total         float64
}
