package market

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/clients/alphavantage"
	"github.com/faketrading/backend/internal/events"
)

// FeedSyncJob overwrites simulated prices with real quotes from the
// external price feed. Feed failures are soft: log, keep the stale
// price, move to the next stock. Never surfaces a user-facing error.
type FeedSyncJob struct {
	stocks      *StockRepository
	client      *alphavantage.Client
	broadcaster *events.Broadcaster
	log         zerolog.Logger
}

// NewFeedSyncJob creates a new price feed sync job
func NewFeedSyncJob(
	stocks *StockRepository,
	client *alphavantage.Client,
	broadcaster *events.Broadcaster,
	log zerolog.Logger,
) *FeedSyncJob {
	return &FeedSyncJob{
		stocks:      stocks,
		client:      client,
		broadcaster: broadcaster,
		log:         log.With().Str("job", "feed_sync").Logger(),
	}
}

// Run fetches a quote for every stock and overwrites its price.
// Both this job and the simulator write the same price field; the last
// writer wins.
func (j *FeedSyncJob) Run() error {
	stocks, err := j.stocks.All()
	if err != nil {
		return err
	}

	updated := 0
	for _, stock := range stocks {
		quote, err := j.client.GetGlobalQuote(stock.Symbol)
		if err != nil {
			if errors.As(err, &alphavantage.ErrRateLimitExceeded{}) {
				j.log.Warn().Msg("Feed rate limit reached, stopping sync early")
				break
			}
			j.log.Warn().Err(err).Str("symbol", stock.Symbol).Msg("Quote fetch failed, keeping stale price")
			continue
		}

		// Stored prices are always rounded to cents, same as the simulator.
		price := round2(quote.Price)
		if price < 0.01 {
			j.log.Warn().
				Str("symbol", stock.Symbol).
				Float64("price", quote.Price).
				Msg("Quote below price floor, skipping")
			continue
		}

		if err := j.stocks.UpdatePrice(stock.Symbol, price); err != nil {
			j.log.Error().Err(err).Str("symbol", stock.Symbol).Msg("Failed to store feed price")
			continue
		}

		j.broadcaster.Publish(events.PriceUpdate{
			Symbol:    stock.Symbol,
			Price:     price,
			OldPrice:  stock.Price,
			Source:    "feed",
			Timestamp: time.Now().UTC(),
		})
		updated++
	}

	j.log.Info().Int("updated", updated).Int("total", len(stocks)).Msg("Price feed sync finished")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *FeedSyncJob) Name() string {
	return "feed_sync"
}
