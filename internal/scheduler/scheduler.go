// Package scheduler runs export jobs on a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler wraps a cron instance. A job that is still running when its next
// tick fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context //nolint:containedctx // handed to every job run
	logger zerolog.Logger
}

// New creates a scheduler for standard five-field cron expressions and the
// @every / @daily descriptors. Jobs receive ctx.
func New(ctx context.Context, logger zerolog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx:    ctx,
		logger: logger,
	}
}

// ValidateSpec reports whether spec is a usable schedule.
func ValidateSpec(spec string) error {
	if spec == "" {
		return fmt.Errorf("schedule is empty")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// AddJob registers job under spec. Errors returned by job are logged.
func (s *Scheduler) AddJob(spec string, name string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.logger.Info().Str("job", name).Msg("scheduled job started")

		if err := job(s.ctx); err != nil {
			s.logger.Error().Err(err).Str("job", name).Dur("duration", time.Since(start)).Msg("scheduled job failed")
			return
		}

		s.logger.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("scheduled job finished")
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Next returns the next activation time of the first job.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Run starts the scheduler and blocks until the context passed to New is
// done. It then waits for a running job to finish.
func (s *Scheduler) Run() {
	s.cron.Start()
	s.logger.Info().Time("next", s.Next()).Msg("scheduler started")

	<-s.ctx.Done()

	s.logger.Info().Msg("stopping scheduler, waiting for running job")
	<-s.cron.Stop().Done()
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
