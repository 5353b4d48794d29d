// Package server provides the HTTP server and routing for the trading
// backend.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/config"
	"github.com/faketrading/backend/internal/di"
	accounthandlers "github.com/faketrading/backend/internal/modules/accounts/handlers"
	markethandlers "github.com/faketrading/backend/internal/modules/market/handlers"
	portfoliohandlers "github.com/faketrading/backend/internal/modules/portfolio/handlers"
	tradinghandlers "github.com/faketrading/backend/internal/modules/trading/handlers"
	watchlisthandlers "github.com/faketrading/backend/internal/modules/watchlist/handlers"
)

// Server is the HTTP front end over the DI container's services.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	container *di.Container
	cfg       *config.Config
	log       zerolog.Logger
}

// New creates a new HTTP server
func New(cfg *config.Config, container *di.Container, log zerolog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		container: container,
		cfg:       cfg,
		log:       log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	c := s.container

	accountHandlers := accounthandlers.NewAccountHandlers(c.AccountsService, s.log)
	marketHandlers := markethandlers.NewMarketHandlers(c.MarketService, c.SimulationService, s.log)
	tradingHandlers := tradinghandlers.NewTradingHandlers(c.SettlementService, s.log)
	portfolioHandlers := portfoliohandlers.NewPortfolioHandlers(c.PortfolioService, s.log)
	watchlistHandlers := watchlisthandlers.NewWatchlistHandlers(c.WatchlistRepo, c.StockRepo, s.log)
	systemHandlers := NewSystemHandlers(c, s.cfg.DataDir, s.log)
	streamHandler := NewPriceStreamHandler(c.Broadcaster, s.log)

	s.router.Route("/api", func(r chi.Router) {
		accountHandlers.RegisterRoutes(r)
		marketHandlers.RegisterRoutes(r)
		tradingHandlers.RegisterRoutes(r)
		portfolioHandlers.RegisterRoutes(r)
		watchlistHandlers.RegisterRoutes(r, c.AccountsService.RequireAuth)
		systemHandlers.RegisterRoutes(r)

		r.Get("/stream/prices", streamHandler.ServeHTTP)
	})
}

// handleHealth reports liveness plus a quick integrity probe of each
// database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	databases := map[string]string{}
	healthy := true
	for _, db := range s.container.Databases() {
		if err := db.HealthCheck(ctx); err != nil {
			databases[db.Name()] = err.Error()
			healthy = false
		} else {
			databases[db.Name()] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    state,
		"databases": databases,
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// Start begins listening for requests
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}
