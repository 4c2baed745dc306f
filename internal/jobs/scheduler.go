package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"realtyhub/internal/queue"
)

const cleanupSpec = "0 0 3 * * *"

// Sweeper drops expired rate-limit windows held in memory.
type Sweeper interface {
	Sweep(now time.Time) int
}

type Enqueuer interface {
	Enqueue(ctx context.Context, task queue.Task) (string, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	sweep   time.Duration
	queue   Enqueuer
	now     func() time.Time
	log     zerolog.Logger
}

type Option func(*Scheduler)

// WithSweep sweeps the store every interval.
func WithSweep(s Sweeper, every time.Duration) Option {
	return func(sc *Scheduler) {
		sc.sweeper = s
		sc.sweep = every
	}
}

// WithCleanup enqueues the daily upload cleanup.
func WithCleanup(q Enqueuer) Option {
	return func(sc *Scheduler) { sc.queue = q }
}

func NewScheduler(log zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		now:  time.Now,
		log:  log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Start() error {
	if s.sweeper != nil && s.sweep > 0 {
		if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.sweep), s.sweepRateLimits); err != nil {
			return fmt.Errorf("schedule sweep: %w", err)
		}
	}
	if s.queue != nil {
		if _, err := s.cron.AddFunc(cleanupSpec, s.enqueueCleanup); err != nil {
			return fmt.Errorf("schedule cleanup: %w", err)
		}
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) sweepRateLimits() {
	if n := s.sweeper.Sweep(s.now()); n > 0 {
		s.log.Debug().Int("removed", n).Msg("rate limit windows swept")
	}
}

func (s *Scheduler) enqueueCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.queue.Enqueue(ctx, queue.Task{Type: queue.TaskUploadsCleanup}); err != nil {
		s.log.Error().Err(err).Msg("enqueue cleanup failed")
	}
}
