package trading

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faketrading/backend/internal/domain"
	"github.com/faketrading/backend/internal/modules/accounts"
	"github.com/faketrading/backend/internal/modules/market"
)

func setupSettlement(t *testing.T) (*SettlementService, *accounts.AccountRepository, *sql.DB) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	marketDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { marketDB.Close() })

	_, err = marketDB.Exec(`
		CREATE TABLE stocks (
			symbol TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			price REAL NOT NULL CHECK(price >= 0.01),
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE price_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			stock_symbol TEXT NOT NULL,
			price REAL NOT NULL,
			recorded_at INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	ledgerDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ledgerDB.Close() })

	_, err = ledgerDB.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE accounts (
			user_id INTEGER PRIMARY KEY REFERENCES users(id),
			cash REAL NOT NULL CHECK(cash >= 0)
		);
		CREATE TABLE transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			stock_symbol TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK(quantity != 0),
			price REAL NOT NULL CHECK(price > 0),
			executed_at INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	stocks := market.NewStockRepository(marketDB, log)
	require.NoError(t, stocks.Create(market.Stock{Symbol: "AAPL", Name: "Apple Inc.", Price: 150.00}))
	require.NoError(t, stocks.Create(market.Stock{Symbol: "GOOG", Name: "Alphabet Inc.", Price: 2842.50}))

	_, err = ledgerDB.Exec(`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (1, 'alice', 'alice@example.com', 'x', 0)`)
	require.NoError(t, err)
	_, err = ledgerDB.Exec(`INSERT INTO accounts (user_id, cash) VALUES (1, 100000.00)`)
	require.NoError(t, err)

	accountRepo := accounts.NewAccountRepository(ledgerDB, log)
	txRepo := NewTransactionRepository(ledgerDB, log)
	svc := NewSettlementService(ledgerDB, stocks, accountRepo, txRepo, log)

	return svc, accountRepo, ledgerDB
}

func TestBuy_DebitsCashAndRecordsTransaction(t *testing.T) {
	svc, accountRepo, _ := setupSettlement(t)

	receipt, err := svc.Buy(1, "AAPL", 10)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", receipt.Symbol)
	assert.Equal(t, int64(10), receipt.Quantity)
	assert.Equal(t, 150.00, receipt.Price)
	assert.Equal(t, 1500.00, receipt.Total)
	assert.NotEmpty(t, receipt.OrderID)

	cash, err := accountRepo.GetCash(1)
	require.NoError(t, err)
	assert.Equal(t, 98500.00, cash)

	txns, err := svc.GetHistory(1, 10)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, int64(10), txns[0].Quantity)
	assert.Equal(t, receipt.OrderID, txns[0].OrderID)
}

func TestBuy_InsufficientFundsLeavesStateUnchanged(t *testing.T) {
	svc, accountRepo, ledgerDB := setupSettlement(t)

	// 36 shares of GOOG at 2842.50 is 102330.00, above the starting cash
	_, err := svc.Buy(1, "GOOG", 36)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	cash, err := accountRepo.GetCash(1)
	require.NoError(t, err)
	assert.Equal(t, 100000.00, cash)

	var count int
	require.NoError(t, ledgerDB.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestSell_InsufficientSharesLeavesStateUnchanged(t *testing.T) {
	svc, accountRepo, ledgerDB := setupSettlement(t)

	_, err := svc.Buy(1, "AAPL", 5)
	require.NoError(t, err)

	_, err = svc.Sell(1, "AAPL", 6)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)

	cash, err := accountRepo.GetCash(1)
	require.NoError(t, err)
	assert.Equal(t, 99250.00, cash)

	var count int
	require.NoError(t, ledgerDB.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestBuySellRoundTripRestoresBalance(t *testing.T) {
	svc, accountRepo, _ := setupSettlement(t)

	_, err := svc.Buy(1, "AAPL", 10)
	require.NoError(t, err)

	receipt, err := svc.Sell(1, "AAPL", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(-10), receipt.Quantity)

	cash, err := accountRepo.GetCash(1)
	require.NoError(t, err)
	assert.Equal(t, 100000.00, cash)

	net, err := svc.transactions.NetQuantity(1, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(0), net)
}

func TestBuy_InvalidQuantity(t *testing.T) {
	svc, _, _ := setupSettlement(t)

	_, err := svc.Buy(1, "AAPL", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.Buy(1, "AAPL", -3)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.Sell(1, "AAPL", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestBuy_UnknownStock(t *testing.T) {
	svc, _, _ := setupSettlement(t)

	_, err := svc.Buy(1, "ZZZZ", 1)
	assert.ErrorIs(t, err, domain.ErrStockNotFound)
}

func TestBuy_UnknownUser(t *testing.T) {
	svc, _, _ := setupSettlement(t)

	_, err := svc.Buy(99, "AAPL", 1)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSell_UnknownUser(t *testing.T) {
	svc, _, _ := setupSettlement(t)

	_, err := svc.Sell(99, "AAPL", 1)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestGetHistory_NewestFirst(t *testing.T) {
	svc, _, _ := setupSettlement(t)

	_, err := svc.Buy(1, "AAPL", 1)
	require.NoError(t, err)
	_, err = svc.Buy(1, "GOOG", 2)
	require.NoError(t, err)
	_, err = svc.Sell(1, "AAPL", 1)
	require.NoError(t, err)

	txns, err := svc.GetHistory(1, 10)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, "AAPL", txns[0].Symbol)
	assert.Equal(t, int64(-1), txns[0].Quantity)
	assert.Equal(t, "GOOG", txns[1].Symbol)
	assert.Equal(t, "AAPL", txns[2].Symbol)
	assert.Equal(t, int64(1), txns[2].Quantity)
}
