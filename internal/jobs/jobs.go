// Package jobs runs the periodic housekeeping of the POS service on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"restaurant-pos/internal/analytics"
	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/order"
	"restaurant-pos/internal/utils"
)

const (
	JobSessionPurge  = "session_purge"
	JobHeldBillPurge = "held_bill_purge"
	JobDailySummary  = "daily_summary"
	JobLimiterSweep  = "limiter_sweep"
)

// jobTimeout bounds a single run.
const jobTimeout = 2 * time.Minute

// Deps are the services the jobs act on. A nil dependency disables its job.
type Deps struct {
	Auth    *auth.Service
	Limiter *auth.RateLimiter
	Orders  *order.Service
	Reports *analytics.Service
}

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]job
	logger *logger.Logger
}

// New registers every job whose dependency is present. Invalid cron specs fail here.
func New(cfg config.JobsConfig, deps Deps, log *logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
		),
		jobs:   map[string]job{},
		logger: log,
	}

	var all []job
	if deps.Auth != nil {
		all = append(all, job{JobSessionPurge, cfg.SessionPurgeSpec, func(ctx context.Context) error {
			_, err := deps.Auth.PurgeSessions(ctx, cfg.SessionRetention)
			return err
		}})
	}
	if deps.Orders != nil {
		all = append(all, job{JobHeldBillPurge, cfg.HeldBillPurgeSpec, func(ctx context.Context) error {
			_, err := deps.Orders.PurgeHeld(ctx, cfg.HeldBillTTL)
			return err
		}})
	}
	if deps.Reports != nil {
		all = append(all, job{JobDailySummary, cfg.DailySummarySpec, func(ctx context.Context) error {
			_, err := deps.Reports.CloseDay(ctx, utils.Now())
			return err
		}})
	}
	if deps.Limiter != nil {
		all = append(all, job{JobLimiterSweep, cfg.LimiterSweepSpec, func(ctx context.Context) error {
			if n := deps.Limiter.Cleanup(time.Hour); n > 0 {
				log.Debug("JOBS", fmt.Sprintf("Dropped %d idle login limiter(s)", n))
			}
			return nil
		}})
	}

	for _, j := range all {
		if j.spec == "" {
			continue
		}
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.Run(context.Background(), j.name) }); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for job %s: %w", j.spec, j.name, err)
		}
		s.jobs[j.name] = j
		log.Info("JOBS", fmt.Sprintf("Scheduled %s (%s)", j.name, j.spec))
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("JOBS", "Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("JOBS", "Scheduler stop timed out with jobs still running")
	}
}

// Names lists the registered jobs.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Run executes one job immediately and records its outcome.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	err := j.run(ctx)
	metrics.RecordJobRun(name, time.Since(start), err == nil)
	if err != nil {
		s.logger.Error("JOBS", fmt.Sprintf("Job %s failed: %v", name, err))
		return err
	}
	s.logger.Debug("JOBS", fmt.Sprintf("Job %s finished in %s", name, time.Since(start)))
	return nil
}

// cronLogger adapts the category logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("JOBS", fmt.Sprint(append([]interface{}{msg, " "}, keysAndValues...)...))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("JOBS", fmt.Sprintf("%s: %v %v", msg, err, keysAndValues))
}
