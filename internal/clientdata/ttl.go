package clientdata

import "time"

// TTL constants for cached client data. These are added to time.Now()
// when storing to calculate expires_at.
const (
	// TTLQuote - current price quotes are time-sensitive but the feed
	// only refreshes on a fixed schedule, so anything newer than the
	// sync interval is good enough.
	TTLQuote = 10 * time.Minute
)
