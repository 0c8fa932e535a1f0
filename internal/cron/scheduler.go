package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/metrics"
)

// Job is a unit of scheduled maintenance.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Locker gives one worker replica the right to run a job for ttl. The
// returned release must be called once the run ends.
type Locker interface {
	TryLock(ctx context.Context, job string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Schedule runs Job every Every. The job lock lives for the same period, so a
// replica that dies mid-run blocks the job for at most one tick.
type Schedule struct {
	Job   Job
	Every time.Duration
}

type SchedulerParams struct {
	Logger    *logger.Logger
	Locker    Locker
	Metrics   *metrics.CronJobMetrics
	Schedules []Schedule
}

// Scheduler drives each schedule on its own ticker.
type Scheduler struct {
	logg      *logger.Logger
	locker    Locker
	metrics   *metrics.CronJobMetrics
	schedules []Schedule
	now       func() time.Time
}

func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if len(params.Schedules) == 0 {
		return nil, fmt.Errorf("at least one schedule required")
	}
	seen := make(map[string]struct{}, len(params.Schedules))
	for i, sch := range params.Schedules {
		if sch.Job == nil {
			return nil, fmt.Errorf("schedule %d has no job", i)
		}
		name := strings.TrimSpace(sch.Job.Name())
		if name == "" {
			return nil, fmt.Errorf("schedule %d job has no name", i)
		}
		if sch.Every <= 0 {
			return nil, fmt.Errorf("job %s: interval must be positive", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("job %s scheduled twice", name)
		}
		seen[name] = struct{}{}
	}
	return &Scheduler{
		logg:      params.Logger,
		locker:    params.Locker,
		metrics:   params.Metrics,
		schedules: append([]Schedule(nil), params.Schedules...),
		now:       time.Now,
	}, nil
}

// Run fires every job once at start and then on its interval until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sch := range s.schedules {
		g.Go(func() error { return s.loop(ctx, sch) })
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, sch Schedule) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"job":   sch.Job.Name(),
		"every": sch.Every.String(),
	})
	s.tick(ctx, sch)

	ticker := time.NewTicker(sch.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, sch)
		}
	}
}

// tick runs the job once if this replica wins the lock.
func (s *Scheduler) tick(ctx context.Context, sch Schedule) {
	name := sch.Job.Name()
	release, ok, err := s.locker.TryLock(ctx, name, sch.Every)
	if err != nil {
		s.logg.Error(ctx, "cron lock unavailable", err)
		s.metrics.ObserveRun(name, metrics.CronOutcomeFailure, 0, s.now())
		return
	}
	if !ok {
		s.logg.Debug(ctx, "job held by another replica")
		s.metrics.ObserveRun(name, metrics.CronOutcomeLocked, 0, s.now())
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cron lock release failed")
		}
	}()

	start := s.now()
	err = sch.Job.Run(ctx)
	took := s.now().Sub(start)
	runCtx := s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(runCtx, "job failed", err)
		s.metrics.ObserveRun(name, metrics.CronOutcomeFailure, took, s.now())
		return
	}
	s.logg.Info(runCtx, "job completed")
	s.metrics.ObserveRun(name, metrics.CronOutcomeSuccess, took, s.now())
}
