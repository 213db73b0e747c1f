package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bekzodm/videoquota-bot/internal/domain"
)

// Job is a wall-clock task fired once per local day at Hour:Min. A CatchUp
// job must be idempotent: when its slot already passed at startup it fires
// again on the first tick instead of being marked done, so work interrupted
// by a crash is resumed.
type Job struct {
	Name    string
	Hour    int
	Min     int
	CatchUp bool
	Run     func(ctx context.Context)
}

// Scheduler periodically polls the clock and fires jobs whose local time has
// come. Jobs are independent timers; each fires at most once per day.
type Scheduler struct {
	log      *zap.Logger
	location func() *time.Location // group zone can change after startup
	jobs     []Job
	interval time.Duration
	lastRun  map[string]string // job name -> day key last fired
}

// New creates a new Scheduler. Poll interval is fixed (30s).
func New(location func() *time.Location, log *zap.Logger, jobs []Job) *Scheduler {
	return &Scheduler{
		log:      log,
		location: location,
		jobs:     jobs,
		interval: 30 * time.Second,
		lastRun:  make(map[string]string),
	}
}

// Run starts the loop until ctx is canceled. Jobs whose fire time already
// passed today are marked done first, so a mid-day restart does not replay
// the morning's broadcasts. CatchUp jobs are exempt and re-fire instead.
func (s *Scheduler) Run(ctx context.Context) {
	s.markElapsed(time.Now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx, time.Now())
		}
	}
}

// tick fires every due job that has not yet run today. A job that panics or
// blocks would stall the loop, so jobs are expected to be bounded; failures
// inside a job are its own responsibility to log.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	local := now.In(s.location())
	day := domain.DayKey(local)

	for _, j := range s.jobs {
		if local.Before(fireAt(local, j)) || s.lastRun[j.Name] == day {
			continue
		}
		s.lastRun[j.Name] = day
		s.log.Info("job fired", zap.String("job", j.Name), zap.String("day", day))
		j.Run(ctx)
	}
}

func (s *Scheduler) markElapsed(now time.Time) {
	local := now.In(s.location())
	day := domain.DayKey(local)
	for _, j := range s.jobs {
		if j.CatchUp {
			continue
		}
		if !local.Before(fireAt(local, j)) {
			s.lastRun[j.Name] = day
		}
	}
}

func fireAt(local time.Time, j Job) time.Time {
	return time.Date(local.Year(), local.Month(), local.Day(), j.Hour, j.Min, 0, 0, local.Location())
}
