package worker

import (
	"context"
	"errors"
	"time"

	"retitle/features/job"
	"retitle/internal/adapter/youtube"
	"retitle/internal/bus"
	"retitle/internal/event"
)

// User-facing failure messages. These are the only strings a failure event
// ever carries; diagnostics stay on the job record and in the logs.
const (
	MsgChannelNotFound    = "channel not found"
	MsgResolveFailed      = "failed to resolve channel please try again"
	MsgNoVideos           = "no videos found for this channel"
	MsgFetchFailed        = "failed to fetch videos please try again later"
	MsgGenerateFailed     = "failed to generate titles please try again later"
	MsgDeliverFailed      = "failed to send your results please try again later"
)

var (
	ErrChannelNotFound     = errors.New("channel not found")
	ErrNoVideos            = errors.New("no videos found for this channel")
	ErrUnparsableTitles    = errors.New("generated content is not a usable titles array")
	errMissingCollaborator = errors.New("collaborator not configured")
)

type ChannelSearcher interface {
	SearchChannel(ctx context.Context, q string) (*youtube.Channel, error)
}

type VideoLister interface {
	ListRecentVideos(ctx context.Context, channelID string, n int64) ([]event.Video, error)
}

type TitleGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
}

// Deps is shared by every stage.
type Deps struct {
	Jobs    job.Repository
	Bus     bus.Publisher
	Timeout time.Duration
	Now     func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}
