package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/withmetravel/withme-backend/pkg/config"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/logger"
	"github.com/withmetravel/withme-backend/pkg/migrate"
)

// gooseCommands pass straight through to goose.
var gooseCommands = map[string]bool{
	"up":     true,
	"down":   true,
	"redo":   true,
	"status": true,
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|redo|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	exitOnErr(context.Background(), logg, "load config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	switch *cmd {
	case "create":
		if *name == "" {
			exitOnErr(ctx, logg, "create migration", fmt.Errorf("missing -name"))
		}
		path, err := migrate.CreateSQLMigration(*dir, *name, time.Now())
		exitOnErr(ctx, logg, "create migration", err)
		fmt.Println("created migration:", path)
		return
	case "validate":
		exitOnErr(ctx, logg, "validate migrations", migrate.ValidateDir(*dir))
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOnErr(ctx, logg, "connect database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	exitOnErr(ctx, logg, "open sql handle", err)

	switch {
	case gooseCommands[*cmd]:
		exitOnErr(ctx, logg, "goose "+*cmd, migrate.Run(ctx, sqlDB, *dir, *cmd))
	case *cmd == "version":
		if *version == "" {
			exitOnErr(ctx, logg, "migrate to version", fmt.Errorf("missing -version"))
		}
		exitOnErr(ctx, logg, "migrate to version", migrate.MigrateToVersion(ctx, sqlDB, *dir, *version))
	default:
		exitOnErr(ctx, logg, "dispatch", fmt.Errorf("unknown -cmd value %q", *cmd))
	}
	logg.Info(ctx, "migrate.done")
}

func exitOnErr(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("migrate failed: %s", step), err)
	os.Exit(1)
}
