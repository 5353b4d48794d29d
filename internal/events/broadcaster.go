// Package events provides in-process fan-out of price updates to
// connected stream subscribers.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PriceUpdate is published whenever a stock price changes, either by
// the simulator or by the external price feed.
type PriceUpdate struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	OldPrice  float64   `json:"old_price"`
	Source    string    `json:"source"` // "simulator" or "feed"
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster fans out price updates to subscribers. Slow subscribers
// are skipped rather than blocking the publisher.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan PriceUpdate]struct{}
	log  zerolog.Logger
}

// NewBroadcaster creates a new price update broadcaster
func NewBroadcaster(log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		subs: make(map[chan PriceUpdate]struct{}),
		log:  log.With().Str("component", "broadcaster").Logger(),
	}
}

// Subscribe returns a buffered channel of price updates and an
// unsubscribe function. The caller must call unsubscribe when done.
func (b *Broadcaster) Subscribe() (<-chan PriceUpdate, func()) {
	ch := make(chan PriceUpdate, 64)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}

	return ch, unsubscribe
}

// Publish delivers an update to all subscribers without blocking
func (b *Broadcaster) Publish(update PriceUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- update:
		default:
			b.log.Warn().
				Str("symbol", update.Symbol).
				Msg("Subscriber buffer full, dropping price update")
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
