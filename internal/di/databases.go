package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/config"
	"github.com/faketrading/backend/internal/database"
)

// initDatabases opens and migrates the three databases. The ledger
// gets the maximum-safety profile; the cache trades durability for
// speed and is safe to lose.
func (c *Container) initDatabases(cfg *config.Config, log zerolog.Logger) error {
	specs := []struct {
		name    string
		profile database.DatabaseProfile
		target  **database.DB
	}{
		{"market", database.ProfileStandard, &c.MarketDB},
		{"ledger", database.ProfileLedger, &c.LedgerDB},
		{"cache", database.ProfileCache, &c.CacheDB},
	}

	for _, spec := range specs {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, spec.name+".db"),
			Profile: spec.profile,
			Name:    spec.name,
		})
		if err != nil {
			return fmt.Errorf("failed to open %s database: %w", spec.name, err)
		}

		if err := db.Migrate(); err != nil {
			db.Close()
			return fmt.Errorf("failed to migrate %s database: %w", spec.name, err)
		}

		*spec.target = db
		log.Debug().Str("database", spec.name).Msg("Database ready")
	}

	return nil
}
