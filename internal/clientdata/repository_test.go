package clientdata

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedQuote struct {
	Symbol string  `msgpack:"symbol"`
	Price  float64 `msgpack:"price"`
}

func setupRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE quote_cache (
			source     TEXT NOT NULL,
			cache_key  TEXT NOT NULL,
			data       BLOB NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (source, cache_key)
		);
	`)
	require.NoError(t, err)

	return NewRepository(db)
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := setupRepository(t)

	stored := cachedQuote{Symbol: "AAPL", Price: 187.32}
	require.NoError(t, repo.Store(SourceAlphaVantage, "AAPL", stored, time.Minute))

	var got cachedQuote
	found, err := repo.GetIfFresh(SourceAlphaVantage, "AAPL", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, stored, got)
}

func TestGetIfFresh_Missing(t *testing.T) {
	repo := setupRepository(t)

	var got cachedQuote
	found, err := repo.GetIfFresh(SourceAlphaVantage, "AAPL", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetIfFresh_Expired(t *testing.T) {
	repo := setupRepository(t)

	require.NoError(t, repo.Store(SourceAlphaVantage, "AAPL", cachedQuote{Symbol: "AAPL", Price: 187.32}, -time.Second))

	var got cachedQuote
	found, err := repo.GetIfFresh(SourceAlphaVantage, "AAPL", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetStale_ReturnsExpiredEntry(t *testing.T) {
	repo := setupRepository(t)

	stored := cachedQuote{Symbol: "AAPL", Price: 187.32}
	require.NoError(t, repo.Store(SourceAlphaVantage, "AAPL", stored, -time.Second))

	var got cachedQuote
	found, err := repo.GetStale(SourceAlphaVantage, "AAPL", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, stored, got)
}

func TestStore_UpsertsOnSameKey(t *testing.T) {
	repo := setupRepository(t)

	require.NoError(t, repo.Store(SourceAlphaVantage, "AAPL", cachedQuote{Symbol: "AAPL", Price: 180.00}, time.Minute))
	require.NoError(t, repo.Store(SourceAlphaVantage, "AAPL", cachedQuote{Symbol: "AAPL", Price: 191.50}, time.Minute))

	var got cachedQuote
	found, err := repo.GetIfFresh(SourceAlphaVantage, "AAPL", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 191.50, got.Price)
}

func TestSourcesPartitionKeyspace(t *testing.T) {
	repo := setupRepository(t)

	require.NoError(t, repo.Store(SourceAlphaVantage, "AAPL", cachedQuote{Symbol: "AAPL", Price: 187.32}, time.Minute))

	var got cachedQuote
	found, err := repo.GetIfFresh("other_source", "AAPL", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteExpired(t *testing.T) {
	repo := setupRepository(t)

	require.NoError(t, repo.Store(SourceAlphaVantage, "AAPL", cachedQuote{Symbol: "AAPL", Price: 187.32}, time.Minute))
	require.NoError(t, repo.Store(SourceAlphaVantage, "GOOG", cachedQuote{Symbol: "GOOG", Price: 2842.50}, -time.Second))
	require.NoError(t, repo.Store(SourceAlphaVantage, "MSFT", cachedQuote{Symbol: "MSFT", Price: 305.25}, -time.Hour))

	deleted, err := repo.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var got cachedQuote
	found, err := repo.GetStale(SourceAlphaVantage, "AAPL", &got)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.GetStale(SourceAlphaVantage, "GOOG", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
