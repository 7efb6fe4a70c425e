package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/withmetravel/withme-backend/api/routes"
	"github.com/withmetravel/withme-backend/internal/accessrequests"
	"github.com/withmetravel/withme-backend/internal/comments"
	"github.com/withmetravel/withme-backend/internal/friends"
	"github.com/withmetravel/withme-backend/internal/itinerary"
	"github.com/withmetravel/withme-backend/internal/members"
	"github.com/withmetravel/withme-backend/internal/notifications"
	"github.com/withmetravel/withme-backend/internal/permissions"
	"github.com/withmetravel/withme-backend/internal/profiles"
	"github.com/withmetravel/withme-backend/internal/ratelimit"
	"github.com/withmetravel/withme-backend/internal/trips"
	"github.com/withmetravel/withme-backend/internal/votes"
	"github.com/withmetravel/withme-backend/pkg/config"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/env"
	"github.com/withmetravel/withme-backend/pkg/instance"
	"github.com/withmetravel/withme-backend/pkg/logger"
	"github.com/withmetravel/withme-backend/pkg/metrics"
	"github.com/withmetravel/withme-backend/pkg/migrate"
	"github.com/withmetravel/withme-backend/pkg/outbox"
	"github.com/withmetravel/withme-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured; idempotency replay disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)

	limiter, err := ratelimit.New(cfg.RateLimit, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rate limiter", err)
		os.Exit(1)
	}
	if limiter != nil {
		defer func() {
			if err := limiter.Close(); err != nil {
				logg.Error(context.Background(), "error closing rate limiter", err)
			}
		}()
	}

	deps, err := buildDependencies(logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}
	deps.DB = dbClient
	deps.Redis = redisClient
	deps.RateLimiter = limiter
	deps.Metrics = httpMetrics
	deps.Gatherer = registry

	addr := ":" + env.Get("PORT", cfg.App.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}

// buildDependencies wires every domain service over one database connection.
func buildDependencies(logg *logger.Logger, dbClient *db.Client) (routes.Dependencies, error) {
	conn := dbClient.DB()

	resolver, err := permissions.NewResolver(permissions.NewRepository(conn), logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	notifier := notifications.NewDispatcher(notifications.NewRepository(conn), logg)

	profileService, err := profiles.NewService(profiles.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}
	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}
	tripService, err := trips.NewService(trips.ServiceParams{
		Repo:    trips.NewRepository(conn),
		Checker: resolver,
		Tx:      dbClient,
		Outbox:  emitter,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	memberService, err := members.NewService(members.ServiceParams{
		Repo:     members.NewRepository(conn),
		Checker:  resolver,
		Tx:       dbClient,
		Outbox:   emitter,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	accessService, err := accessrequests.NewService(accessrequests.ServiceParams{
		Repo:     accessrequests.NewRepository(conn),
		Checker:  resolver,
		Tx:       dbClient,
		Outbox:   emitter,
		Notifier: notifier,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	friendService, err := friends.NewService(friends.ServiceParams{
		Repo:     friends.NewRepository(conn),
		Tx:       dbClient,
		Outbox:   emitter,
		Notifier: notifier,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	itineraryService, err := itinerary.NewService(itinerary.ServiceParams{
		Repo:    itinerary.NewRepository(conn),
		Checker: resolver,
		Tx:      dbClient,
		Outbox:  emitter,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	voteService, err := votes.NewService(votes.ServiceParams{
		Repo:    votes.NewRepository(conn),
		Checker: resolver,
		Tx:      dbClient,
		Outbox:  emitter,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	commentService, err := comments.NewService(comments.ServiceParams{
		Repo:     comments.NewRepository(conn),
		Checker:  resolver,
		Tx:       dbClient,
		Outbox:   emitter,
		Notifier: notifier,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		Permissions:    resolver,
		Profiles:       profileService,
		Trips:          tripService,
		Members:        memberService,
		AccessRequests: accessService,
		Friends:        friendService,
		Itinerary:      itineraryService,
		Votes:          voteService,
		Comments:       commentService,
		Notifications:  notificationService,
	}, nil
}
