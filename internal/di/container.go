package di

import (
	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/clientdata"
	"github.com/faketrading/backend/internal/clients/alphavantage"
	"github.com/faketrading/backend/internal/config"
	"github.com/faketrading/backend/internal/events"
	"github.com/faketrading/backend/internal/modules/accounts"
	"github.com/faketrading/backend/internal/modules/market"
	"github.com/faketrading/backend/internal/modules/portfolio"
	"github.com/faketrading/backend/internal/modules/simulation"
	"github.com/faketrading/backend/internal/modules/trading"
	"github.com/faketrading/backend/internal/modules/watchlist"
	"github.com/faketrading/backend/internal/reliability"
)

// New builds the full container: databases, repositories, services.
// Jobs are registered separately via RegisterJobs once a scheduler
// exists.
func New(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	c := &Container{}

	if err := c.initDatabases(cfg, log); err != nil {
		return nil, err
	}

	c.initRepositories(log)
	if err := c.initServices(cfg, log); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// initRepositories builds every repository over the open databases.
func (c *Container) initRepositories(log zerolog.Logger) {
	c.StockRepo = market.NewStockRepository(c.MarketDB.Conn(), log)
	c.TransactionRepo = trading.NewTransactionRepository(c.LedgerDB.Conn(), log)
	c.UserRepo = accounts.NewUserRepository(c.LedgerDB.Conn(), log)
	c.AccountRepo = accounts.NewAccountRepository(c.LedgerDB.Conn(), log)
	c.PositionRepo = portfolio.NewPositionRepository(c.LedgerDB.Conn(), log)
	c.WatchlistRepo = watchlist.NewRepository(c.LedgerDB.Conn(), log)
	c.ClientDataRepo = clientdata.NewRepository(c.CacheDB.Conn())
}

// initServices builds the service layer on top of the repositories.
func (c *Container) initServices(cfg *config.Config, log zerolog.Logger) error {
	c.Broadcaster = events.NewBroadcaster(log)

	c.MarketService = market.NewService(c.StockRepo, log)
	c.SimulationService = simulation.NewService(c.StockRepo, c.Broadcaster, log)

	c.SettlementService = trading.NewSettlementService(
		c.LedgerDB.Conn(),
		c.StockRepo,
		c.AccountRepo,
		c.TransactionRepo,
		log,
	)

	c.PortfolioService = portfolio.NewService(
		c.PositionRepo,
		c.TransactionRepo,
		c.AccountRepo,
		c.StockRepo,
		log,
	)

	tokens := accounts.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	c.AccountsService = accounts.NewService(c.LedgerDB.Conn(), c.UserRepo, c.AccountRepo, tokens, log)

	if cfg.AlphaVantageAPIKey != "" {
		c.FeedClient = alphavantage.NewClient(cfg.AlphaVantageAPIKey, log)
		c.FeedClient.SetCacheRepository(c.ClientDataRepo)
		log.Info().Msg("External price feed enabled")
	} else {
		log.Info().Msg("No price feed API key configured, simulator is the only price source")
	}

	var s3Client *reliability.S3Client
	if cfg.Backup != nil && cfg.Backup.Bucket != "" {
		var err error
		s3Client, err = reliability.NewS3Client(
			cfg.Backup.Bucket,
			cfg.Backup.Region,
			cfg.Backup.Endpoint,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			log,
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize S3 client, cloud backups disabled")
			s3Client = nil
		}
	}
	c.BackupService = reliability.NewBackupService(c.Databases(), s3Client, cfg.DataDir, log)

	return nil
}
