package trading

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// transactionsColumns is the list of columns for the transactions table.
// Used to avoid SELECT * which can break when schema changes.
const transactionsColumns = `id, order_id, user_id, stock_symbol, quantity, price, executed_at`

// TransactionRepository handles transaction ledger database operations.
type TransactionRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(ledgerDB *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "transaction").Logger(),
	}
}

// CreateTx inserts a new transaction inside an existing settlement
// transaction and returns its row id.
func (r *TransactionRepository) CreateTx(tx *sql.Tx, txn Transaction) (int64, error) {
	if err := txn.Validate(); err != nil {
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}

	result, err := tx.Exec(`
		INSERT INTO transactions
		(order_id, user_id, stock_symbol, quantity, price, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		txn.OrderID,
		txn.UserID,
		strings.ToUpper(strings.TrimSpace(txn.Symbol)),
		txn.Quantity,
		txn.Price,
		txn.ExecutedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction id: %w", err)
	}

	r.log.Info().
		Int64("user_id", txn.UserID).
		Str("symbol", txn.Symbol).
		Int64("quantity", txn.Quantity).
		Float64("price", txn.Price).
		Msg("Transaction recorded")

	return id, nil
}

// NetQuantityTx returns the signed sum of quantities for a user/stock
// pair inside an existing settlement transaction. This is the net
// holding used by every holdings computation.
func (r *TransactionRepository) NetQuantityTx(tx *sql.Tx, userID int64, symbol string) (int64, error) {
	var net sql.NullInt64
	err := tx.QueryRow(`
		SELECT SUM(quantity) FROM transactions
		WHERE user_id = ? AND stock_symbol = ?
	`, userID, strings.ToUpper(strings.TrimSpace(symbol))).Scan(&net)
	if err != nil {
		return 0, fmt.Errorf("failed to sum holdings: %w", err)
	}

	if !net.Valid {
		return 0, nil
	}
	return net.Int64, nil
}

// NetQuantity is NetQuantityTx outside a settlement transaction.
func (r *TransactionRepository) NetQuantity(userID int64, symbol string) (int64, error) {
	var net sql.NullInt64
	err := r.ledgerDB.QueryRow(`
		SELECT SUM(quantity) FROM transactions
		WHERE user_id = ? AND stock_symbol = ?
	`, userID, strings.ToUpper(strings.TrimSpace(symbol))).Scan(&net)
	if err != nil {
		return 0, fmt.Errorf("failed to sum holdings: %w", err)
	}

	if !net.Valid {
		return 0, nil
	}
	return net.Int64, nil
}

// GetHistory retrieves a user's transactions, most recent first.
func (r *TransactionRepository) GetHistory(userID int64, limit int) ([]Transaction, error) {
	rows, err := r.ledgerDB.Query(`
		SELECT `+transactionsColumns+` FROM transactions
		WHERE user_id = ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// GetAllByUser retrieves every transaction for a user, oldest first.
// The portfolio valuator replays this to derive holdings.
func (r *TransactionRepository) GetAllByUser(userID int64) ([]Transaction, error) {
	rows, err := r.ledgerDB.Query(`
		SELECT `+transactionsColumns+` FROM transactions
		WHERE user_id = ?
		ORDER BY executed_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user transactions: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// GetByUserAndSymbol retrieves a user's transactions for one stock,
// oldest first.
func (r *TransactionRepository) GetByUserAndSymbol(userID int64, symbol string) ([]Transaction, error) {
	rows, err := r.ledgerDB.Query(`
		SELECT `+transactionsColumns+` FROM transactions
		WHERE user_id = ? AND stock_symbol = ?
		ORDER BY executed_at ASC, id ASC
	`, userID, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions by symbol: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *TransactionRepository) collect(rows *sql.Rows) ([]Transaction, error) {
	var txns []Transaction
	for rows.Next() {
		var txn Transaction
		var executedAt int64
		err := rows.Scan(
			&txn.ID,
			&txn.OrderID,
			&txn.UserID,
			&txn.Symbol,
			&txn.Quantity,
			&txn.Price,
			&executedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.ExecutedAt = time.Unix(executedAt, 0).UTC()
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}
