package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/faketrading/backend/internal/events"
)

// streamPingInterval keeps idle websocket connections alive.
const streamPingInterval = 30 * time.Second

// PriceStreamHandler streams live price updates over a websocket.
// Every simulator step and feed sync publishes into the broadcaster;
// each connection gets its own subscription.
type PriceStreamHandler struct {
	broadcaster *events.Broadcaster
	log         zerolog.Logger
}

// NewPriceStreamHandler creates a new price stream handler
func NewPriceStreamHandler(broadcaster *events.Broadcaster, log zerolog.Logger) *PriceStreamHandler {
	return &PriceStreamHandler{
		broadcaster: broadcaster,
		log:         log.With().Str("handler", "price_stream").Logger(),
	}
}

// ServeHTTP upgrades the connection and forwards price updates until
// the client disconnects.
// GET /api/stream/prices
func (h *PriceStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	updates, unsubscribe := h.broadcaster.Subscribe()
	defer unsubscribe()

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("Price stream connected")

	ctx := r.Context()
	pings := time.NewTicker(streamPingInterval)
	defer pings.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case <-pings.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Price stream ping failed, closing")
				return
			}

		case update, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, update)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Price stream write failed, closing")
				return
			}
		}
	}
}
