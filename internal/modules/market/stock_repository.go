package market

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/domain"
)

// StockRepository handles stock and price history database operations.
type StockRepository struct {
	marketDB *sql.DB
	log      zerolog.Logger
}

// NewStockRepository creates a new stock repository
func NewStockRepository(marketDB *sql.DB, log zerolog.Logger) *StockRepository {
	return &StockRepository{
		marketDB: marketDB,
		log:      log.With().Str("repo", "stock").Logger(),
	}
}

// All returns every stock ordered by symbol
func (r *StockRepository) All() ([]Stock, error) {
	rows, err := r.marketDB.Query(`
		SELECT symbol, name, price, updated_at FROM stocks
		ORDER BY symbol ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	defer rows.Close()

	var stocks []Stock
	for rows.Next() {
		stock, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, stock)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}

	return stocks, nil
}

// GetBySymbol returns one stock, or domain.ErrStockNotFound.
func (r *StockRepository) GetBySymbol(symbol string) (*Stock, error) {
	row := r.marketDB.QueryRow(`
		SELECT symbol, name, price, updated_at FROM stocks
		WHERE symbol = ?
	`, normalizeSymbol(symbol))

	var stock Stock
	var updatedAt int64
	err := row.Scan(&stock.Symbol, &stock.Name, &stock.Price, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock %s: %w", symbol, err)
	}

	stock.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &stock, nil
}

// Create inserts a new stock
func (r *StockRepository) Create(stock Stock) error {
	_, err := r.marketDB.Exec(`
		INSERT INTO stocks (symbol, name, price, updated_at)
		VALUES (?, ?, ?, ?)
	`, normalizeSymbol(stock.Symbol), stock.Name, stock.Price, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to create stock %s: %w", stock.Symbol, err)
	}

	return nil
}

// Count returns the number of stocks
func (r *StockRepository) Count() (int, error) {
	var count int
	if err := r.marketDB.QueryRow("SELECT COUNT(*) FROM stocks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stocks: %w", err)
	}
	return count, nil
}

// UpdatePrice writes a new price for a stock and appends a history
// entry. The two writes share a transaction so history never diverges
// from the current price.
func (r *StockRepository) UpdatePrice(symbol string, price float64) error {
	symbol = normalizeSymbol(symbol)
	now := time.Now().Unix()

	tx, err := r.marketDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin price update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
		UPDATE stocks SET price = ?, updated_at = ? WHERE symbol = ?
	`, price, now, symbol)
	if err != nil {
		return fmt.Errorf("failed to update price for %s: %w", symbol, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check price update for %s: %w", symbol, err)
	}
	if affected == 0 {
		return domain.ErrStockNotFound
	}

	_, err = tx.Exec(`
		INSERT INTO price_history (stock_symbol, price, recorded_at)
		VALUES (?, ?, ?)
	`, symbol, price, now)
	if err != nil {
		return fmt.Errorf("failed to append price history for %s: %w", symbol, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price update for %s: %w", symbol, err)
	}

	return nil
}

// GetHistory returns up to limit price history entries, newest first.
func (r *StockRepository) GetHistory(symbol string, limit int) ([]PricePoint, error) {
	rows, err := r.marketDB.Query(`
		SELECT price, recorded_at FROM price_history
		WHERE stock_symbol = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, normalizeSymbol(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history for %s: %w", symbol, err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var point PricePoint
		var recordedAt int64
		if err := rows.Scan(&point.Price, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		point.RecordedAt = time.Unix(recordedAt, 0).UTC()
		points = append(points, point)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history: %w", err)
	}

	return points, nil
}

func scanStock(rows *sql.Rows) (Stock, error) {
	var stock Stock
	var updatedAt int64
	if err := rows.Scan(&stock.Symbol, &stock.Name, &stock.Price, &updatedAt); err != nil {
		return stock, err
	}
	stock.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return stock, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
