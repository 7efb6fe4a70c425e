package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/withmetravel/withme-backend/pkg/logger"
	"github.com/withmetravel/withme-backend/pkg/metrics"
)

const defaultInterval = 15 * time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service executes registered jobs on a fixed cadence while holding a cluster-wide lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run executes a cycle immediately, then one per interval until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "cron.cycle_failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "cron.cycle_failed", err)
			}
		}
	}
}

// RunOnce executes a single cycle; used by the --once flag.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.runCycle(ctx)
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron.lock_held_elsewhere")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", relErr)
		}
	}()

	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.runJob(ctx, job)
	}
	return nil
}

// runJob never propagates a job error; one failing job must not starve the rest.
func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithJob(ctx, job.Name())
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())

	if s.metrics != nil {
		s.metrics.ObserveDuration(job.Name(), duration)
	}
	if err != nil {
		s.logg.Error(jobCtx, "cron.job_failed", err)
		if s.metrics != nil {
			s.metrics.IncFailure(job.Name())
		}
		return
	}
	s.logg.Info(jobCtx, "cron.job_completed")
	if s.metrics != nil {
		s.metrics.IncSuccess(job.Name())
	}
}
