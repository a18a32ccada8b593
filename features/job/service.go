package job

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"retitle/internal/bus"
	"retitle/internal/config"
	"retitle/internal/event"
	"retitle/internal/middleware"
)

const AckMessage = "Submission received and is being processed. you will get email soon with improved suggestions for your youtube videos."

type Service struct {
	repo  Repository
	pub   bus.Publisher
	now   func() time.Time
	newID func() string
}

func NewService(repo Repository, pub bus.Publisher) *Service {
	return &Service{
		repo:  repo,
		pub:   pub,
		now:   time.Now,
		newID: func() string { return "job_" + uuid.New().String() },
	}
}

// Submit creates a QUEUED job and publishes exactly one submit event for it.
// If the event cannot be published the job is marked FAILED and the error
// returned, so no job sits in QUEUED with nothing driving it.
func (s *Service) Submit(ctx context.Context, channel, email string) (*Job, error) {
	now := s.now().UTC()
	j := &Job{
		ID:        s.newID(),
		Channel:   strings.TrimSpace(channel),
		Email:     strings.TrimSpace(email),
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ctx = middleware.WithJobID(ctx, j.ID)

	if err := s.repo.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	err := s.pub.Publish(ctx, config.TopicSubmit, event.Submit{
		JobID:   j.ID,
		Channel: j.Channel,
		Email:   j.Email,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish submit", "error", err)
		j.Error = fmt.Sprintf("publish submit: %v", err)
		if terr := j.Transition(StatusFailed, s.now().UTC()); terr == nil {
			if serr := s.repo.Save(ctx, j); serr != nil {
				slog.ErrorContext(ctx, "failed to mark job failed", "error", serr)
			}
		}
		return nil, fmt.Errorf("publish submit: %w", err)
	}

	slog.InfoContext(ctx, "job submitted", "channel", j.Channel)
	return j, nil
}
