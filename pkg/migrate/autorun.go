package migrate

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/withmetravel/withme-backend/pkg/config"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

// autoRunEnabled is true only for dev boxes that opted in; staging and prod
// migrate through cmd/migrate.
func autoRunEnabled(cfg *config.Config) bool {
	return cfg != nil && cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
}

// MaybeRunDev brings a local schema up to date when a binary boots.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !autoRunEnabled(cfg) {
		return nil
	}
	if err := ValidateDir(DefaultDir); err != nil {
		return fmt.Errorf("refusing to auto-migrate: %w", err)
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("unwrap sql handle: %w", err)
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	before, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return err
	}
	after, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"from": before, "to": after, "dir": DefaultDir})
	if before == after {
		logg.Info(ctx, "schema already current")
		return nil
	}
	logg.Info(ctx, "schema migrated on boot")
	return nil
}
