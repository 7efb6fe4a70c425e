package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/withmetravel/withme-backend/pkg/config"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/logger"
	"github.com/withmetravel/withme-backend/pkg/migrate"
	"github.com/withmetravel/withme-backend/pkg/outbox"
	"github.com/withmetravel/withme-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), "no .env file; using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		bootLog.Error(context.Background(), "trip event publisher exited", err)
		stop()
		os.Exit(1)
	}
}

// run owns every resource so deferred closes fire before main exits.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if cerr := dbClient.Close(); cerr != nil {
			logg.Error(context.Background(), "database close", cerr)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("connect pubsub: %w", err)
	}
	defer func() {
		if cerr := psClient.Close(); cerr != nil {
			logg.Error(context.Background(), "pubsub close", cerr)
		}
	}()

	publisher, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     psClient,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		return fmt.Errorf("build publisher: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"topic":       cfg.PubSub.TripEventsTopic,
	})
	logg.Info(ctx, "draining trip events to pubsub")

	if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "trip event publisher stopped")
	return nil
}
