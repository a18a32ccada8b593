package job

import (
	"errors"
	"fmt"
	"time"

	"retitle/internal/event"
)

// Namespace is the state store namespace job records live under.
const Namespace = "job"

type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusResolving  Status = "RESOLVING"
	StatusFetching   Status = "FETCHING"
	StatusGenerating Status = "GENERATING"
	StatusDelivering Status = "DELIVERING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

var ErrInvalidTransition = errors.New("invalid status transition")

var rank = map[Status]int{
	StatusQueued:     0,
	StatusResolving:  1,
	StatusFetching:   2,
	StatusGenerating: 3,
	StatusDelivering: 4,
	StatusCompleted:  5,
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition allows staying put or moving forward along the happy path,
// and FAILED from any non-terminal status. Terminal statuses accept nothing.
func (s Status) CanTransition(to Status) bool {
	if s.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	from, ok := rank[s]
	if !ok {
		return false
	}
	next, ok := rank[to]
	if !ok {
		return false
	}
	return next >= from
}

type Job struct {
	ID             string                `json:"jobId"`
	Channel        string                `json:"channel"`
	Email          string                `json:"email"`
	Status         Status                `json:"status"`
	ChannelID      string                `json:"channelId,omitempty"`
	ChannelName    string                `json:"channelName,omitempty"`
	Videos         []event.Video         `json:"videos,omitempty"`
	ImprovedTitles []event.ImprovedTitle `json:"improvedTitles,omitempty"`
	EmailID        string                `json:"emailId,omitempty"`
	Error          string                `json:"error,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
	CompletedAt    *time.Time            `json:"completedAt,omitempty"`
}

// Transition moves the job to status `to`, stamping UpdatedAt and, for
// terminal statuses, CompletedAt.
func (j *Job) Transition(to Status, now time.Time) error {
	if !j.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = now
	if to.Terminal() {
		t := now
		j.CompletedAt = &t
	}
	return nil
}
