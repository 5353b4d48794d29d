package portfolio

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
	"github.com/faketrading/backend/internal/modules/trading"
)

type fixture struct {
	service    *Service
	settlement *trading.SettlementService
	stocks     *market.StockRepository
	ledgerDB   *sql.DB
}

func setupPortfolio(t *testing.T) *fixture {
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
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES (1, 'alice', 'alice@example.com', 'x', 0);
		INSERT INTO accounts (user_id, cash) VALUES (1, 100000.00);
	`)
	require.NoError(t, err)

	stocks := market.NewStockRepository(marketDB, log)
	require.NoError(t, stocks.Create(market.Stock{Symbol: "AAPL", Name: "Apple Inc.", Price: 100.00}))
	require.NoError(t, stocks.Create(market.Stock{Symbol: "MSFT", Name: "Microsoft Corporation", Price: 305.25}))

	accountRepo := accounts.NewAccountRepository(ledgerDB, log)
	txRepo := trading.NewTransactionRepository(ledgerDB, log)
	settlement := trading.NewSettlementService(ledgerDB, stocks, accountRepo, txRepo, log)
	positions := NewPositionRepository(ledgerDB, log)
	service := NewService(positions, txRepo, accountRepo, stocks, log)

	return &fixture{service: service, settlement: settlement, stocks: stocks, ledgerDB: ledgerDB}
}

func TestGetHoldings_EmptyLedger(t *testing.T) {
	f := setupPortfolio(t)

	holdings, err := f.service.GetHoldings(1)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestGetHoldings_ExcludesClosedPositions(t *testing.T) {
	f := setupPortfolio(t)

	_, err := f.settlement.Buy(1, "AAPL", 10)
	require.NoError(t, err)
	_, err = f.settlement.Buy(1, "MSFT", 2)
	require.NoError(t, err)
	_, err = f.settlement.Sell(1, "AAPL", 10)
	require.NoError(t, err)

	holdings, err := f.service.GetHoldings(1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "MSFT", holdings[0].Symbol)
	assert.Equal(t, int64(2), holdings[0].Quantity)
}

func TestGetHoldings_Valuation(t *testing.T) {
	f := setupPortfolio(t)

	// Buy 10 at 100, then price moves to 120
	_, err := f.settlement.Buy(1, "AAPL", 10)
	require.NoError(t, err)
	require.NoError(t, f.stocks.UpdatePrice("AAPL", 120.00))

	holdings, err := f.service.GetHoldings(1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)

	h := holdings[0]
	assert.Equal(t, 100.00, h.AvgBuyPrice)
	assert.Equal(t, 120.00, h.CurrentPrice)
	assert.Equal(t, 1200.00, h.Value)
	assert.Equal(t, 200.00, h.GainLoss)
	assert.Equal(t, 20.00, h.GainLossPct)
}

func TestAvgBuyPrice_InvariantUnderSells(t *testing.T) {
	f := setupPortfolio(t)

	_, err := f.settlement.Buy(1, "AAPL", 10)
	require.NoError(t, err)
	_, err = f.settlement.Sell(1, "AAPL", 5)
	require.NoError(t, err)

	holding, _, err := f.service.GetStockDetail(1, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 100.00, holding.AvgBuyPrice)
	assert.Equal(t, int64(5), holding.Quantity)
}

func TestAvgBuyPrice_WeightedAcrossBuys(t *testing.T) {
	f := setupPortfolio(t)

	_, err := f.settlement.Buy(1, "AAPL", 10)
	require.NoError(t, err)
	require.NoError(t, f.stocks.UpdatePrice("AAPL", 200.00))
	_, err = f.settlement.Buy(1, "AAPL", 10)
	require.NoError(t, err)

	holding, txns, err := f.service.GetStockDetail(1, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 150.00, holding.AvgBuyPrice)
	assert.Len(t, txns, 2)
}

func TestGetStockDetail_NoPosition(t *testing.T) {
	f := setupPortfolio(t)

	_, _, err := f.service.GetStockDetail(1, "AAPL")
	assert.ErrorIs(t, err, domain.ErrNoPosition)
}

func TestGetStockDetail_ClosedPositionStillVisible(t *testing.T) {
	f := setupPortfolio(t)

	_, err := f.settlement.Buy(1, "AAPL", 3)
	require.NoError(t, err)
	_, err = f.settlement.Sell(1, "AAPL", 3)
	require.NoError(t, err)

	holding, txns, err := f.service.GetStockDetail(1, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(0), holding.Quantity)
	assert.Len(t, txns, 2)
}

func TestGetSummary_TotalValue(t *testing.T) {
	f := setupPortfolio(t)

	_, err := f.settlement.Buy(1, "AAPL", 10)
	require.NoError(t, err)

	summary, err := f.service.GetSummary(1)
	require.NoError(t, err)
	assert.Equal(t, 99000.00, summary.CashBalance)
	assert.Equal(t, 100000.00, summary.TotalValue)
}

func TestGetSummary_UnknownUser(t *testing.T) {
	f := setupPortfolio(t)

	_, err := f.service.GetSummary(42)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestGetPortfolioHistory_ThreePointSeries(t *testing.T) {
	f := setupPortfolio(t)

	_, err := f.settlement.Buy(1, "AAPL", 10)
	require.NoError(t, err)
	require.NoError(t, f.stocks.UpdatePrice("AAPL", 120.00))

	points, err := f.service.GetPortfolioHistory(1)
	require.NoError(t, err)
	require.Len(t, points, 3)

	// 99000 cash + 10 * 120 = 100200 current value
	assert.Equal(t, 100000.00, points[0].Value)
	assert.True(t, points[0].Synthetic)
	assert.Equal(t, 100100.00, points[1].Value)
	assert.True(t, points[1].Synthetic)
	assert.Equal(t, 100200.00, points[2].Value)
	assert.False(t, points[2].Synthetic)

	assert.True(t, points[0].Date.Before(points[1].Date))
	assert.True(t, points[1].Date.Before(points[2].Date))
}
