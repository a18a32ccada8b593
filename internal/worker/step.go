package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"retitle/features/job"
	"retitle/internal/event"
	"retitle/internal/middleware"
)

// errSkip marks an event that must not touch the job: the job is already
// terminal or further along than this stage.
var errSkip = errors.New("job not eligible for this stage")

type ref struct {
	JobID       string
	Email       string
	ChannelName string
}

// step carries the parts of the stage contract every handler shares: the
// read-merge-write against the job record and the failure path.
type step struct {
	name       string
	errorTopic string
	inProgress job.Status
	configErr  error
	configMsg  string
	deps       Deps
}

// accept performs the routing checks. It returns false when the event cannot
// be addressed to a job and must be dropped.
func (s *step) accept(ctx context.Context, r ref) (context.Context, bool) {
	if r.JobID == "" || r.Email == "" {
		slog.ErrorContext(ctx, "event missing routing fields, dropping", "stage", s.name, "job_id", r.JobID)
		return ctx, false
	}
	return middleware.WithJobID(ctx, r.JobID), true
}

// checkConfig fails the job when the stage was built without its
// collaborator credentials.
func (s *step) checkConfig(ctx context.Context, r ref) bool {
	if s.configErr == nil {
		return true
	}
	slog.ErrorContext(ctx, "stage not configured", "stage", s.name, "error", s.configErr)
	s.fail(ctx, nil, r, s.configErr, s.configMsg)
	return false
}

// load reads the current record. A missing record is rebuilt from the event
// so the failure and the retention sweep still have something to act on.
func (s *step) load(ctx context.Context, r ref) (*job.Job, error) {
	j, err := s.deps.Jobs.Get(ctx, r.JobID)
	if errors.Is(err, job.ErrNotFound) {
		slog.WarnContext(ctx, "job record missing, rebuilding", "stage", s.name)
		now := s.deps.now()
		return &job.Job{
			ID:          r.JobID,
			Email:       r.Email,
			ChannelName: r.ChannelName,
			Status:      job.StatusQueued,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	return j, nil
}

// begin moves the job to the stage's in-progress status and persists it.
func (s *step) begin(ctx context.Context, r ref) (*job.Job, error) {
	j, err := s.load(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := j.Transition(s.inProgress, s.deps.now()); err != nil {
		slog.WarnContext(ctx, "ignoring event for job in later state", "stage", s.name, "status", j.Status)
		return nil, errSkip
	}
	if err := s.deps.Jobs.Save(ctx, j); err != nil {
		return j, fmt.Errorf("save job: %w", err)
	}
	return j, nil
}

// advance persists the merged job under status `to` and publishes the stage's
// success event.
func (s *step) advance(ctx context.Context, j *job.Job, r ref, to job.Status, topic string, payload any, failMsg string) {
	if err := j.Transition(to, s.deps.now()); err != nil {
		slog.WarnContext(ctx, "cannot advance job", "stage", s.name, "error", err)
		return
	}
	if err := s.deps.Jobs.Save(ctx, j); err != nil {
		s.fail(ctx, j, r, fmt.Errorf("save job: %w", err), failMsg)
		return
	}
	if err := s.deps.Bus.Publish(ctx, topic, payload); err != nil {
		s.fail(ctx, j, r, fmt.Errorf("publish %s: %w", topic, err), failMsg)
		return
	}
	slog.InfoContext(ctx, "stage completed", "stage", s.name, "status", to)
}

// fail records the diagnostic on the job, marks it FAILED and emits the
// stage's error topic with the user-facing message. Jobs already terminal
// are left alone and nothing is emitted.
func (s *step) fail(ctx context.Context, j *job.Job, r ref, diag error, userMsg string) {
	slog.ErrorContext(ctx, "stage failed", "stage", s.name, "error", diag)

	if j == nil {
		loaded, err := s.load(ctx, r)
		if err != nil {
			slog.ErrorContext(ctx, "failed to load job for failure", "stage", s.name, "error", err)
		}
		j = loaded
	}

	channelName := r.ChannelName
	if j != nil {
		if j.Status.Terminal() {
			slog.WarnContext(ctx, "job already terminal, not failing again", "stage", s.name, "status", j.Status)
			return
		}
		j.Error = storedError(diag, userMsg)
		if err := j.Transition(job.StatusFailed, s.deps.now()); err == nil {
			if err := s.deps.Jobs.Save(ctx, j); err != nil {
				slog.ErrorContext(ctx, "failed to persist job failure", "stage", s.name, "error", err)
			}
		}
		if channelName == "" {
			channelName = j.ChannelName
		}
	}

	err := s.deps.Bus.Publish(ctx, s.errorTopic, event.Failure{
		JobID:       r.JobID,
		Email:       r.Email,
		Error:       userMsg,
		ChannelName: channelName,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish failure event", "stage", s.name, "topic", s.errorTopic, "error", err)
	}
}

// storedError is what lands on the job record. Business outcomes store their
// fixed message; everything else keeps the full diagnostic.
func storedError(diag error, userMsg string) string {
	if errors.Is(diag, ErrChannelNotFound) || errors.Is(diag, ErrNoVideos) {
		return userMsg
	}
	return diag.Error()
}

// call bounds a collaborator call by the configured per-call timeout.
func (s *step) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.deps.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.deps.Timeout)
}

func payloadOf[T any](ctx context.Context, stage string, msg event.Message) (T, bool) {
	p, ok := msg.Payload.(T)
	if !ok {
		slog.ErrorContext(ctx, "unexpected payload type, dropping", "stage", stage, "topic", msg.Topic, "type", fmt.Sprintf("%T", msg.Payload))
	}
	return p, ok
}
