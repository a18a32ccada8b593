// Package retention ages out job records on a schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"retitle/features/job"
	"retitle/internal/bus"
	"retitle/internal/config"
	"retitle/internal/event"
)

// JobStore is the part of the job repository the janitor needs.
type JobStore interface {
	List(ctx context.Context) ([]job.Job, error)
	Delete(ctx context.Context, id string) error
}

// Summary reports one sweep.
type Summary struct {
	Scanned int
	Deleted int
	Errored int
}

type Janitor struct {
	jobs          JobStore
	pub           bus.Publisher
	retention     time.Duration
	retentionDays int
	now           func() time.Time
}

// NewJanitor builds a janitor deleting records older than retentionDays.
// now may be nil.
func NewJanitor(jobs JobStore, pub bus.Publisher, retentionDays int, now func() time.Time) *Janitor {
	if now == nil {
		now = time.Now
	}
	return &Janitor{
		jobs:          jobs,
		pub:           pub,
		retention:     time.Duration(retentionDays) * 24 * time.Hour,
		retentionDays: retentionDays,
		now:           now,
	}
}

// Sweep deletes every record whose createdAt is older than the retention
// window, whatever its status, then publishes one cleanup.completed. A failed
// delete is counted and the sweep carries on. Only a failed listing aborts.
func (j *Janitor) Sweep(ctx context.Context) (Summary, error) {
	now := j.now().UTC()
	cutoff := now.Add(-j.retention)

	slog.InfoContext(ctx, "retention sweep started", "retention_days", j.retentionDays, "cutoff", cutoff)

	jobs, err := j.jobs.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list jobs: %w", err)
	}

	sum := Summary{Scanned: len(jobs)}
	for _, rec := range jobs {
		if rec.CreatedAt.IsZero() {
			slog.WarnContext(ctx, "job without createdAt, skipping", "job_id", rec.ID)
			continue
		}
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}
		if err := j.jobs.Delete(ctx, rec.ID); err != nil {
			sum.Errored++
			slog.ErrorContext(ctx, "failed to delete job", "job_id", rec.ID, "error", err)
			continue
		}
		sum.Deleted++
		slog.InfoContext(ctx, "deleted expired job",
			"job_id", rec.ID,
			"status", rec.Status,
			"age_days", int(now.Sub(rec.CreatedAt).Hours()/24),
		)
	}

	slog.InfoContext(ctx, "retention sweep completed",
		"scanned", sum.Scanned,
		"deleted", sum.Deleted,
		"errored", sum.Errored,
	)

	err = j.pub.Publish(ctx, config.TopicCleanupCompleted, event.CleanupCompleted{
		Timestamp:     now,
		RetentionDays: j.retentionDays,
		ScannedCount:  sum.Scanned,
		DeletedCount:  sum.Deleted,
		ErrorCount:    sum.Errored,
	})
	if err != nil {
		return sum, fmt.Errorf("publish %s: %w", config.TopicCleanupCompleted, err)
	}
	return sum, nil
}
