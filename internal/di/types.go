// Package di wires databases, repositories, services and jobs into a
// single container built at startup.
package di

import (
	"github.com/faketrading/backend/internal/clientdata"
	"github.com/faketrading/backend/internal/clients/alphavantage"
	"github.com/faketrading/backend/internal/database"
	"github.com/faketrading/backend/internal/events"
	"github.com/faketrading/backend/internal/modules/accounts"
	"github.com/faketrading/backend/internal/modules/market"
	"github.com/faketrading/backend/internal/modules/portfolio"
	"github.com/faketrading/backend/internal/modules/simulation"
	"github.com/faketrading/backend/internal/modules/trading"
	"github.com/faketrading/backend/internal/modules/watchlist"
	"github.com/faketrading/backend/internal/reliability"
)

// Container holds every long-lived component of the application.
type Container struct {
	// Databases
	MarketDB *database.DB
	LedgerDB *database.DB
	CacheDB  *database.DB

	// Repositories
	StockRepo       *market.StockRepository
	TransactionRepo *trading.TransactionRepository
	UserRepo        *accounts.UserRepository
	AccountRepo     *accounts.AccountRepository
	PositionRepo    *portfolio.PositionRepository
	WatchlistRepo   *watchlist.Repository
	ClientDataRepo  *clientdata.Repository

	// Services
	Broadcaster       *events.Broadcaster
	MarketService     *market.Service
	SimulationService *simulation.Service
	SettlementService *trading.SettlementService
	PortfolioService  *portfolio.Service
	AccountsService   *accounts.Service
	BackupService     *reliability.BackupService

	// FeedClient is nil when no API key is configured.
	FeedClient *alphavantage.Client
}

// Databases returns all managed databases in a stable order.
func (c *Container) Databases() []*database.DB {
	return []*database.DB{c.MarketDB, c.LedgerDB, c.CacheDB}
}

// Close shuts down every database connection.
func (c *Container) Close() {
	for _, db := range c.Databases() {
		_ = db.Close()
	}
}
