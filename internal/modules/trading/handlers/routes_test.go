package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faketrading/backend/internal/modules/accounts"
	"github.com/faketrading/backend/internal/modules/market"
	"github.com/faketrading/backend/internal/modules/trading"
)

func setupRouter(t *testing.T) (chi.Router, *sql.DB) {
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
	txRepo := trading.NewTransactionRepository(ledgerDB, log)
	svc := trading.NewSettlementService(ledgerDB, stocks, accountRepo, txRepo, log)

	r := chi.NewRouter()
	NewTradingHandlers(svc, log).RegisterRoutes(r)
	return r, ledgerDB
}

func doRequest(t *testing.T, router chi.Router, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHandleBuy_Success(t *testing.T) {
	router, ledgerDB := setupRouter(t)

	rec, body := doRequest(t, router, http.MethodPost, "/buy/1/AAPL/10/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, float64(10), body["quantity"])
	assert.Equal(t, 150.00, body["price"])
	assert.Equal(t, 1500.00, body["total"])
	assert.NotEmpty(t, body["order_id"])

	var cash float64
	require.NoError(t, ledgerDB.QueryRow(`SELECT cash FROM accounts WHERE user_id = 1`).Scan(&cash))
	assert.Equal(t, 98500.00, cash)
}

func TestHandleBuy_InsufficientFunds(t *testing.T) {
	router, _ := setupRouter(t)

	// 36 * 2842.50 = 102330 > 100000
	rec, body := doRequest(t, router, http.MethodPost, "/buy/1/GOOG/36/")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_funds", body["code"])
	assert.NotEmpty(t, body["error"])
}

func TestHandleBuy_UnknownStock(t *testing.T) {
	router, _ := setupRouter(t)

	rec, body := doRequest(t, router, http.MethodPost, "/buy/1/ZZZZ/1/")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "stock_not_found", body["code"])
}

func TestHandleBuy_UnknownUser(t *testing.T) {
	router, _ := setupRouter(t)

	rec, body := doRequest(t, router, http.MethodPost, "/buy/42/AAPL/1/")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user_not_found", body["code"])
}

func TestHandleBuy_InvalidQuantity(t *testing.T) {
	router, _ := setupRouter(t)

	rec, body := doRequest(t, router, http.MethodPost, "/buy/1/AAPL/abc/")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_quantity", body["code"])
}

func TestHandleSell_Success(t *testing.T) {
	router, ledgerDB := setupRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/buy/1/AAPL/10/")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doRequest(t, router, http.MethodPost, "/sell/1/AAPL/4/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	// Confirmation reports the quantity sold as positive.
	assert.Equal(t, float64(4), body["quantity"])
	assert.Equal(t, 600.00, body["total"])

	var cash float64
	require.NoError(t, ledgerDB.QueryRow(`SELECT cash FROM accounts WHERE user_id = 1`).Scan(&cash))
	assert.Equal(t, 99100.00, cash)

	// The ledger row itself stays negative.
	var stored int64
	require.NoError(t, ledgerDB.QueryRow(`SELECT quantity FROM transactions ORDER BY id DESC LIMIT 1`).Scan(&stored))
	assert.Equal(t, int64(-4), stored)
}

func TestHandleSell_InsufficientShares(t *testing.T) {
	router, _ := setupRouter(t)

	rec, body := doRequest(t, router, http.MethodPost, "/sell/1/AAPL/1/")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_shares", body["code"])
}

func TestHandleGetTransactions(t *testing.T) {
	router, _ := setupRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/buy/1/AAPL/10/")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = doRequest(t, router, http.MethodPost, "/sell/1/AAPL/3/")
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/transactions/1/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var txns []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txns))
	require.Len(t, txns, 2)

	// Newest first: the sell precedes the buy.
	assert.Equal(t, "sell", txns[0]["side"])
	assert.Equal(t, float64(-3), txns[0]["quantity"])
	assert.Equal(t, "buy", txns[1]["side"])
	assert.Equal(t, float64(10), txns[1]["quantity"])
	assert.NotEmpty(t, txns[0]["executed_at"])
}

func TestHandleGetTransactions_Empty(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/transactions/1/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestHandleBuy_BadUserIDParam(t *testing.T) {
	router, _ := setupRouter(t)

	rec, body := doRequest(t, router, http.MethodPost, "/buy/abc/AAPL/1/")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", body["code"])
}
