package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"retitle/features/job"
	"retitle/internal/config"
	"retitle/internal/event"
)

// Fetcher loads the most recent uploads of the resolved channel.
type Fetcher struct {
	step
	lister   VideoLister
	pageSize int64
}

func NewFetcher(deps Deps, lister VideoLister, pageSize int64, configErr error) *Fetcher {
	if configErr == nil && lister == nil {
		configErr = errMissingCollaborator
	}
	if pageSize <= 0 {
		pageSize = 5
	}
	return &Fetcher{
		step: step{
			name:       "fetch",
			errorTopic: config.TopicVideosError,
			inProgress: job.StatusFetching,
			configErr:  configErr,
			configMsg:  MsgFetchFailed,
			deps:       deps,
		},
		lister:   lister,
		pageSize: pageSize,
	}
}

func (h *Fetcher) Handle(ctx context.Context, msg event.Message) error {
	p, ok := payloadOf[event.ChannelResolved](ctx, h.name, msg)
	if !ok {
		return nil
	}
	r := ref{JobID: p.JobID, Email: p.Email, ChannelName: p.ChannelName}
	ctx, ok = h.accept(ctx, r)
	if !ok || !h.checkConfig(ctx, r) {
		return nil
	}

	j, err := h.begin(ctx, r)
	if errors.Is(err, errSkip) {
		return nil
	}
	if err != nil {
		h.fail(ctx, j, r, err, MsgFetchFailed)
		return nil
	}

	callCtx, cancel := h.call(ctx)
	videos, err := h.lister.ListRecentVideos(callCtx, p.ChannelID, h.pageSize)
	cancel()
	if err != nil {
		h.fail(ctx, j, r, fmt.Errorf("list videos: %w", err), MsgFetchFailed)
		return nil
	}
	if len(videos) == 0 {
		h.fail(ctx, j, r, fmt.Errorf("%w: %s", ErrNoVideos, p.ChannelID), MsgNoVideos)
		return nil
	}

	slog.InfoContext(ctx, "videos fetched", "channel_id", p.ChannelID, "video_count", len(videos))

	if j.ChannelID == "" {
		j.ChannelID = p.ChannelID
	}
	if j.ChannelName == "" {
		j.ChannelName = p.ChannelName
	}
	j.Videos = videos

	h.advance(ctx, j, r, job.StatusGenerating, config.TopicVideosFetched, event.VideosFetched{
		JobID:       p.JobID,
		ChannelName: p.ChannelName,
		Videos:      videos,
		Email:       p.Email,
	}, MsgFetchFailed)
	return nil
}
