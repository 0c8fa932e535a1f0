package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

// MaybeRunDev brings a dev database up to date at boot when
// CAMPUSPRINT_AUTO_MIGRATE is set. Other environments run cmd/migrate in the
// deploy pipeline instead. The schema is postgres only, so sqlite is skipped.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate || strings.EqualFold(cfg.DB.Driver, db.DriverSQLite) {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrator, err := New(sqlDB)
	if err != nil {
		return err
	}
	applied, err := migrator.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "dev schema migrated")
	return nil
}
