package widget

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCronSchedulerKeepsSubSecondIntervals(t *testing.T) {
	s := NewCronScheduler(zap.NewNop())
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []time.Duration{
		500 * time.Millisecond,
		1500 * time.Millisecond,
		2500 * time.Millisecond,
		6 * time.Second,
	}
	for _, interval := range tests {
		t.Run(interval.String(), func(t *testing.T) {
			cancel := s.Every("weather-1", interval, func() {})
			defer cancel()

			entries := s.scheduler.Entries()
			if len(entries) != 1 {
				t.Fatalf("got %d entries, want 1", len(entries))
			}
			if got := entries[0].Schedule.Next(now).Sub(now); got != interval {
				t.Errorf("next run in %v, want %v", got, interval)
			}
		})
	}
}

func TestCronSchedulerCancelRemovesJobOnce(t *testing.T) {
	s := NewCronScheduler(zap.NewNop())
	cancel := s.Every("calendar-1", time.Minute, func() {})
	if jobs := s.Jobs(); len(jobs) != 1 || jobs[0] != "calendar-1" {
		t.Fatalf("jobs = %v", jobs)
	}

	cancel()
	cancel()
	if len(s.Jobs()) != 0 || len(s.scheduler.Entries()) != 0 {
		t.Error("cancel did not remove the job")
	}
}

func TestCronSchedulerRunsJobs(t *testing.T) {
	s := NewCronScheduler(zap.NewNop())
	ran := make(chan struct{}, 1)
	cancel := s.Every("serverStatus-1", 20*time.Millisecond, func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	defer cancel()

	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}
