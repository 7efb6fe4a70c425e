package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/withmetravel/withme-backend/internal/accessrequests"
	"github.com/withmetravel/withme-backend/internal/cron"
	"github.com/withmetravel/withme-backend/internal/integrations"
	"github.com/withmetravel/withme-backend/internal/notifications"
	"github.com/withmetravel/withme-backend/internal/permissions"
	"github.com/withmetravel/withme-backend/pkg/config"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/logger"
	"github.com/withmetravel/withme-backend/pkg/metrics"
	"github.com/withmetravel/withme-backend/pkg/migrate"
	"github.com/withmetravel/withme-backend/pkg/outbox"
	"github.com/withmetravel/withme-backend/pkg/redis"
)

const (
	lockKeyFormat = "withme:cron-worker:lock:%s"
	minLeaseTTL   = time.Minute
)

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	only := flag.String("job", "", "comma-separated job names to run; implies -once")
	flag.Parse()
	if *only != "" {
		*once = true
	}

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	if *only != "" {
		registry, err = registry.Select(strings.Split(*only, ",")...)
		if err != nil {
			logg.Error(context.Background(), "invalid -job flag", err)
			os.Exit(1)
		}
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		lease, err := cron.NewLeaseLock(redisClient, lockKey(cfg.App.Env), leaseTTL(cfg.Cron.Interval))
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lease", err)
			os.Exit(1)
		}
		lock = lease
	} else {
		logg.Warn(context.Background(), "redis not configured; cron cycles only exclude each other within this process")
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        len(registry.Jobs()),
	})

	if *once {
		logg.Info(ctx, "running cron jobs once")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	registry := cron.NewRegistry()
	notificationsRepo := notifications.NewRepository(conn)
	notifier := notifications.NewDispatcher(notificationsRepo, logg)

	if cfg.Splitwise.Enabled() {
		integrationService, err := integrations.NewService(integrations.ServiceParams{
			Repo:      integrations.NewRepository(conn),
			Refresher: integrations.NewOAuthRefresher(cfg.Splitwise),
			Notifier:  notifier,
			Logger:    logg,
		})
		if err != nil {
			return nil, err
		}
		job, err := cron.NewTokenRefreshJob(cron.TokenRefreshJobParams{
			Logger:    logg,
			Refresher: integrationService,
			Window:    cfg.Cron.TokenRefreshWindow,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(job)
	} else {
		logg.Warn(context.Background(), "splitwise credentials missing; token refresh disabled")
	}

	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationsRepo,
		Retention:  cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	registry.Register(cleanup)

	resolver, err := permissions.NewResolver(permissions.NewRepository(conn), logg)
	if err != nil {
		return nil, err
	}
	accessService, err := accessrequests.NewService(accessrequests.ServiceParams{
		Repo:     accessrequests.NewRepository(conn),
		Checker:  resolver,
		Tx:       dbClient,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
		Notifier: notifier,
	})
	if err != nil {
		return nil, err
	}
	expiry, err := cron.NewPermissionExpiryJob(cron.PermissionExpiryJobParams{
		Logger:  logg,
		Expirer: accessService,
		TTL:     cfg.Cron.PermissionRequestTTL,
	})
	if err != nil {
		return nil, err
	}
	registry.Register(expiry)

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		Repository:  outbox.NewRepository(conn),
		MaxAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	registry.Register(retention)

	return registry, nil
}

// leaseTTL outlives one cycle with slack but lapses before the next two are missed.
func leaseTTL(interval time.Duration) time.Duration {
	if interval <= 0 {
		return minLeaseTTL
	}
	return max(2*interval, minLeaseTTL)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
