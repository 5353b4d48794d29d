package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/clientdata"
	"github.com/faketrading/backend/internal/clients/alphavantage"
	"github.com/faketrading/backend/internal/config"
	"github.com/faketrading/backend/internal/modules/market"
	"github.com/faketrading/backend/internal/modules/simulation"
	"github.com/faketrading/backend/internal/reliability"
	"github.com/faketrading/backend/internal/scheduler"
)

// RegisterJobs wires all background jobs onto the scheduler. Feed jobs
// are skipped without an API key; the backup job is skipped without a
// bucket.
func (c *Container) RegisterJobs(sched *scheduler.Scheduler, cfg *config.Config, log zerolog.Logger) error {
	simulationSchedule := fmt.Sprintf("@every %s", cfg.SimulationInterval)
	if err := sched.AddJob(simulationSchedule, simulation.NewJob(c.SimulationService, log)); err != nil {
		return fmt.Errorf("failed to register simulation job: %w", err)
	}

	if err := sched.AddJob("@hourly", clientdata.NewCleanupJob(c.ClientDataRepo, log)); err != nil {
		return fmt.Errorf("failed to register cache cleanup job: %w", err)
	}

	if c.FeedClient != nil {
		feedSync := market.NewFeedSyncJob(c.StockRepo, c.FeedClient, c.Broadcaster, log)
		if err := sched.AddJob("@hourly", feedSync); err != nil {
			return fmt.Errorf("failed to register feed sync job: %w", err)
		}

		// The upstream request budget resets at midnight
		if err := sched.AddJob("0 0 * * *", alphavantage.NewResetJob(c.FeedClient, log)); err != nil {
			return fmt.Errorf("failed to register feed reset job: %w", err)
		}
	}

	if c.BackupService.Enabled() {
		if err := sched.AddJob("30 2 * * *", reliability.NewBackupJob(c.BackupService, log)); err != nil {
			return fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	maintenance := reliability.NewMaintenanceJob(c.Databases(), cfg.DataDir, log)
	if err := sched.AddJob("0 3 * * *", maintenance); err != nil {
		return fmt.Errorf("failed to register maintenance job: %w", err)
	}

	return nil
}
