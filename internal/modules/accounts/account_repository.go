package accounts

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/domain"
)

// AccountRepository handles cash balance database operations.
type AccountRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(ledgerDB *sql.DB, log zerolog.Logger) *AccountRepository {
	return &AccountRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "account").Logger(),
	}
}

// CreateTx inserts an account inside an existing transaction.
func (r *AccountRepository) CreateTx(tx *sql.Tx, userID int64, cash float64) error {
	_, err := tx.Exec(`
		INSERT INTO accounts (user_id, cash) VALUES (?, ?)
	`, userID, cash)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetCash retrieves a user's cash balance
func (r *AccountRepository) GetCash(userID int64) (float64, error) {
	var cash float64
	err := r.ledgerDB.QueryRow(`
		SELECT cash FROM accounts WHERE user_id = ?
	`, userID).Scan(&cash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get cash balance: %w", err)
	}
	return cash, nil
}

// GetCashTx retrieves a user's cash balance inside an existing
// transaction, so settlement reads and writes the same snapshot.
func (r *AccountRepository) GetCashTx(tx *sql.Tx, userID int64) (float64, error) {
	var cash float64
	err := tx.QueryRow(`
		SELECT cash FROM accounts WHERE user_id = ?
	`, userID).Scan(&cash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get cash balance: %w", err)
	}
	return cash, nil
}

// AdjustCashTx applies a signed delta to a user's cash balance inside
// an existing transaction. The CHECK (cash >= 0) constraint is the
// final guard against overdraw.
func (r *AccountRepository) AdjustCashTx(tx *sql.Tx, userID int64, delta float64) error {
	result, err := tx.Exec(`
		UPDATE accounts SET cash = cash + ? WHERE user_id = ?
	`, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust cash balance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to adjust cash balance: %w", err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}
