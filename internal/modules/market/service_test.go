package market

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faketrading/backend/internal/domain"
)

func setupMarket(t *testing.T) (*Service, *StockRepository, *sql.DB) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
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

	repo := NewStockRepository(db, log)
	return NewService(repo, log), repo, db
}

func insertHistory(t *testing.T, db *sql.DB, symbol string, prices []float64) {
	t.Helper()
	base := time.Now().AddDate(0, 0, -len(prices)).Unix()
	for i, price := range prices {
		_, err := db.Exec(`
			INSERT INTO price_history (stock_symbol, price, recorded_at)
			VALUES (?, ?, ?)
		`, symbol, price, base+int64(i)*86400)
		require.NoError(t, err)
	}
}

func TestGetStock_NormalizesSymbol(t *testing.T) {
	svc, repo, _ := setupMarket(t)

	require.NoError(t, repo.Create(Stock{Symbol: "AAPL", Name: "Apple Inc.", Price: 150.00}))

	stock, err := svc.GetStock("  aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", stock.Symbol)
}

func TestGetStock_NotFound(t *testing.T) {
	svc, _, _ := setupMarket(t)

	_, err := svc.GetStock("ZZZZ")
	assert.ErrorIs(t, err, domain.ErrStockNotFound)
}

func TestGetPriceHistory_SyntheticBackfillWhenSparse(t *testing.T) {
	svc, repo, db := setupMarket(t)

	require.NoError(t, repo.Create(Stock{Symbol: "AAPL", Name: "Apple Inc.", Price: 150.00}))
	insertHistory(t, db, "AAPL", []float64{149.00, 151.00})

	history, err := svc.GetPriceHistory("AAPL")
	require.NoError(t, err)

	// 2 real points plus 30 synthetic ones
	require.Len(t, history.Points, 32)
	assert.Nil(t, history.Stats)
	assert.Nil(t, history.SMA)

	real, synthetic := 0, 0
	for _, p := range history.Points {
		if p.Synthetic {
			synthetic++
			assert.GreaterOrEqual(t, p.Price, 0.01)
		} else {
			real++
		}
	}
	assert.Equal(t, 2, real)
	assert.Equal(t, 30, synthetic)
}

func TestGetPriceHistory_BackfillKeepsNewestFirstOrder(t *testing.T) {
	svc, repo, db := setupMarket(t)

	require.NoError(t, repo.Create(Stock{Symbol: "AAPL", Name: "Apple Inc.", Price: 150.00}))

	// A single real point in the middle of the backfill window.
	recordedAt := time.Now().AddDate(0, 0, -10).Add(3 * time.Hour)
	_, err := db.Exec(`
		INSERT INTO price_history (stock_symbol, price, recorded_at)
		VALUES (?, ?, ?)
	`, "AAPL", 140.00, recordedAt.Unix())
	require.NoError(t, err)

	history, err := svc.GetPriceHistory("AAPL")
	require.NoError(t, err)
	require.Len(t, history.Points, 31)

	for i := 1; i < len(history.Points); i++ {
		assert.False(t, history.Points[i].RecordedAt.After(history.Points[i-1].RecordedAt),
			"points out of order at index %d", i)
	}

	// Nine synthetic days are newer than the real point, so it lands
	// tenth in the combined series.
	assert.False(t, history.Points[9].Synthetic)
	assert.Equal(t, 140.00, history.Points[9].Price)
}

func TestGetPriceHistory_RealSeriesGetsStats(t *testing.T) {
	svc, repo, db := setupMarket(t)

	require.NoError(t, repo.Create(Stock{Symbol: "AAPL", Name: "Apple Inc.", Price: 150.00}))
	insertHistory(t, db, "AAPL", []float64{100, 102, 101, 103, 105, 104, 106})

	history, err := svc.GetPriceHistory("AAPL")
	require.NoError(t, err)

	require.Len(t, history.Points, 7)
	for _, p := range history.Points {
		assert.False(t, p.Synthetic)
	}

	// Newest first
	assert.Equal(t, 106.00, history.Points[0].Price)
	assert.Equal(t, 100.00, history.Points[6].Price)

	require.NotNil(t, history.Stats)
	assert.Equal(t, 6, history.Stats.SampleSize)
	assert.Greater(t, history.Stats.MeanDailyReturn, 0.0)
	assert.Greater(t, history.Stats.Volatility, 0.0)

	// Not enough points for a 20-period moving average
	assert.Nil(t, history.SMA)
}

func TestGetPriceHistory_SMAWithEnoughPoints(t *testing.T) {
	svc, repo, db := setupMarket(t)

	require.NoError(t, repo.Create(Stock{Symbol: "AAPL", Name: "Apple Inc.", Price: 150.00}))

	prices := make([]float64, 25)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	insertHistory(t, db, "AAPL", prices)

	history, err := svc.GetPriceHistory("AAPL")
	require.NoError(t, err)
	require.NotNil(t, history.SMA)
	assert.Len(t, history.SMA, 25)
}

func TestGetPriceHistory_UnknownStock(t *testing.T) {
	svc, _, _ := setupMarket(t)

	_, err := svc.GetPriceHistory("ZZZZ")
	assert.ErrorIs(t, err, domain.ErrStockNotFound)
}

func TestUpdatePrice_AppendsHistory(t *testing.T) {
	_, repo, _ := setupMarket(t)

	require.NoError(t, repo.Create(Stock{Symbol: "AAPL", Name: "Apple Inc.", Price: 150.00}))
	require.NoError(t, repo.UpdatePrice("AAPL", 155.00))
	require.NoError(t, repo.UpdatePrice("AAPL", 152.50))

	stock, err := repo.GetBySymbol("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 152.50, stock.Price)

	points, err := repo.GetHistory("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 152.50, points[0].Price)
	assert.Equal(t, 155.00, points[1].Price)
}

func TestUpdatePrice_UnknownStock(t *testing.T) {
	_, repo, _ := setupMarket(t)

	err := repo.UpdatePrice("ZZZZ", 100.00)
	assert.ErrorIs(t, err, domain.ErrStockNotFound)
}

func TestSeedIfEmpty(t *testing.T) {
	_, repo, _ := setupMarket(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)

	require.NoError(t, SeedIfEmpty(repo, log))

	stocks, err := repo.All()
	require.NoError(t, err)
	require.Len(t, stocks, len(seedStocks))

	for _, stock := range stocks {
		assert.GreaterOrEqual(t, stock.Price, 0.01)
	}

	// Seeding again must be a no-op
	require.NoError(t, SeedIfEmpty(repo, log))
	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, len(seedStocks), count)
}
