package market

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faketrading/backend/internal/clientdata"
	"github.com/faketrading/backend/internal/clients/alphavantage"
	"github.com/faketrading/backend/internal/events"
)

// cachedClient builds a feed client whose quotes come from a seeded
// persistent cache, so Run never touches the network.
func cachedClient(t *testing.T, quotes []alphavantage.GlobalQuote) *alphavantage.Client {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	cacheDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cacheDB.Close() })

	_, err = cacheDB.Exec(`
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

	cacheRepo := clientdata.NewRepository(cacheDB)
	for _, q := range quotes {
		require.NoError(t, cacheRepo.Store(clientdata.SourceAlphaVantage, q.Symbol, q, time.Minute))
	}

	client := alphavantage.NewClient("test-key", log)
	client.SetCacheRepository(cacheRepo)
	return client
}

func TestFeedSyncJob_RoundsQuotesToCents(t *testing.T) {
	_, repo, _ := setupMarket(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)

	require.NoError(t, repo.Create(Stock{Symbol: "AAPL", Name: "Apple Inc.", Price: 150.00}))

	client := cachedClient(t, []alphavantage.GlobalQuote{
		{Symbol: "AAPL", Price: 123.456789},
	})

	broadcaster := events.NewBroadcaster(log)
	updates, unsubscribe := broadcaster.Subscribe()
	defer unsubscribe()

	job := NewFeedSyncJob(repo, client, broadcaster, log)
	require.NoError(t, job.Run())

	stock, err := repo.GetBySymbol("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 123.46, stock.Price)

	select {
	case update := <-updates:
		assert.Equal(t, "AAPL", update.Symbol)
		assert.Equal(t, 123.46, update.Price)
		assert.Equal(t, 150.00, update.OldPrice)
		assert.Equal(t, "feed", update.Source)
	default:
		t.Fatal("expected a price update broadcast")
	}
}

func TestFeedSyncJob_SkipsQuotesBelowFloor(t *testing.T) {
	_, repo, _ := setupMarket(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)

	require.NoError(t, repo.Create(Stock{Symbol: "AAPL", Name: "Apple Inc.", Price: 150.00}))

	// Rounds to 0.00, below the floor; the stale price must survive.
	client := cachedClient(t, []alphavantage.GlobalQuote{
		{Symbol: "AAPL", Price: 0.004},
	})

	job := NewFeedSyncJob(repo, client, events.NewBroadcaster(log), log)
	require.NoError(t, job.Run())

	stock, err := repo.GetBySymbol("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 150.00, stock.Price)
}
