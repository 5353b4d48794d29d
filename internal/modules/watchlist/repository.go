// Package watchlist tracks the stocks a user wants to follow.
package watchlist

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/domain"
)

// Entry is one watched stock for a user.
type Entry struct {
	Symbol  string    `json:"symbol"`
	AddedAt time.Time `json:"added_at"`
}

// Repository handles watchlist database operations.
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a new watchlist repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "watchlist").Logger(),
	}
}

// List returns a user's watched symbols, most recently added first.
func (r *Repository) List(userID int64) ([]Entry, error) {
	rows, err := r.ledgerDB.Query(`
		SELECT stock_symbol, added_at FROM watchlists
		WHERE user_id = ?
		ORDER BY added_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var addedAt int64
		if err := rows.Scan(&entry.Symbol, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		entry.AddedAt = time.Unix(addedAt, 0).UTC()
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}

	return entries, nil
}

// Add puts a symbol on a user's watchlist. Watching the same symbol
// twice fails with ErrAlreadyWatched.
func (r *Repository) Add(userID int64, symbol string) error {
	_, err := r.ledgerDB.Exec(`
		INSERT INTO watchlists (user_id, stock_symbol, added_at)
		VALUES (?, ?, ?)
	`, userID, normalizeSymbol(symbol), time.Now().Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrAlreadyWatched
		}
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}

	r.log.Debug().Int64("user_id", userID).Str("symbol", symbol).Msg("Added to watchlist")
	return nil
}

// Remove takes a symbol off a user's watchlist, failing with
// ErrNotWatched when it was never on it.
func (r *Repository) Remove(userID int64, symbol string) error {
	result, err := r.ledgerDB.Exec(`
		DELETE FROM watchlists WHERE user_id = ? AND stock_symbol = ?
	`, userID, normalizeSymbol(symbol))
	if err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotWatched
	}

	return nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
