package retention

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"retitle/internal/middleware"
)

// Sweeper is satisfied by *Janitor.
type Sweeper interface {
	Sweep(ctx context.Context) (Summary, error)
}

// Scheduler fires a Sweeper on a standard 5-field cron expression.
type Scheduler struct {
	schedule string
	sweeper  Sweeper
	cron     *cron.Cron
}

func NewScheduler(schedule string, sweeper Sweeper) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	return &Scheduler{
		schedule: schedule,
		sweeper:  sweeper,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}, nil
}

// Run blocks until ctx is cancelled, then waits for a running sweep to
// finish.
func (s *Scheduler) Run(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	s.cron.Start()
	slog.InfoContext(ctx, "retention scheduler started", "schedule", s.schedule)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	slog.Info("retention scheduler stopped")
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	ctx = middleware.WithCorrelationID(ctx, uuid.NewString())
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		slog.ErrorContext(ctx, "retention sweep failed", "error", err)
	}
}
