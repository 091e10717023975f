// Package scheduler runs the periodic health jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultJobTimeout = 2 * time.Minute

// Job is a named unit of periodic work
type Job struct {
	Name    string
	Spec    string // standard 5-field cron expression or descriptor
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler fires jobs on their schedules. A failing or panicking job is
// logged and never affects other jobs or later firings.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger *zap.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job; the schedule is validated immediately
func (s *Scheduler) Add(job Job) error {
	if job.Timeout <= 0 {
		job.Timeout = defaultJobTimeout
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.run(job) }); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Spec, job.Name, err)
	}
	s.logger.Info("⏰ Scheduled job", zap.String("job", job.Name), zap.String("spec", job.Spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new firings and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("⚠️  Scheduler stopped before running jobs finished")
	}
	s.cancel()
}

func (s *Scheduler) run(job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, job.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("❌ Scheduled job panicked", zap.String("job", job.Name), zap.Any("panic", r))
		}
	}()

	if err := job.Run(ctx); err != nil {
		s.logger.Error("❌ Scheduled job failed",
			zap.String("job", job.Name),
			zap.Duration("took", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("✅ Scheduled job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
