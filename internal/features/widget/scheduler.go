package widget

import (
	"context"
	"sync"
	"time"

	"apex-dashboard/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler runs recurring refresh jobs. The returned cancel func removes
// the job; calling it more than once is a no-op.
type Scheduler interface {
	Every(name string, interval time.Duration, job func()) (cancel func())
}

// CronScheduler is the shared refresh timer. Jobs are wrapped so a
// panicking renderer is recovered and a slow one is skipped rather than
// stacked.
type CronScheduler struct {
	log       *zap.Logger
	scheduler *cron.Cron

	mu         sync.Mutex
	jobEntries map[cron.EntryID]string
}

func NewCronScheduler(log *zap.Logger) *CronScheduler {
	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	return &CronScheduler{
		log: log,
		scheduler: cron.New(cron.WithChain(
			cron.Recover(cronLog),
			cron.SkipIfStillRunning(cronLog),
		)),
		jobEntries: make(map[cron.EntryID]string),
	}
}

// NewScheduler ties the cron loop to the fx lifecycle.
func NewScheduler(lc fx.Lifecycle, log *zap.Logger) Scheduler {
	s := NewCronScheduler(log)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
	return s
}

func (s *CronScheduler) Start() {
	s.log.Info("starting widget refresh scheduler")
	s.scheduler.Start()
}

// Stop waits for running jobs or until ctx ends.
func (s *CronScheduler) Stop(ctx context.Context) error {
	done := s.scheduler.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fixedInterval is a cron.Schedule with sub-second precision.
// cron.Every truncates to whole seconds.
type fixedInterval time.Duration

func (d fixedInterval) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

func (s *CronScheduler) Every(name string, interval time.Duration, job func()) func() {
	if interval <= 0 {
		interval = time.Second
	}
	s.mu.Lock()
	id := s.scheduler.Schedule(fixedInterval(interval), cron.FuncJob(job))
	s.jobEntries[id] = name
	s.mu.Unlock()
	metrics.ActiveTimers.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.jobEntries, id)
			s.mu.Unlock()
			s.scheduler.Remove(id)
			metrics.ActiveTimers.Dec()
		})
	}
}

// Jobs returns the names of scheduled jobs.
func (s *CronScheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.jobEntries))
	for _, name := range s.jobEntries {
		out = append(out, name)
	}
	return out
}
