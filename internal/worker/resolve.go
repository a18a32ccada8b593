package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"retitle/features/job"
	"retitle/internal/adapter/youtube"
	"retitle/internal/config"
	"retitle/internal/event"
)

// Resolver turns the submitted channel query into a channel id and name.
type Resolver struct {
	step
	searcher ChannelSearcher
}

// NewResolver builds the resolve stage. configErr is the result of the
// credential check; when non-nil every job reaching this stage fails.
func NewResolver(deps Deps, searcher ChannelSearcher, configErr error) *Resolver {
	if configErr == nil && searcher == nil {
		configErr = errMissingCollaborator
	}
	return &Resolver{
		step: step{
			name:       "resolve",
			errorTopic: config.TopicChannelError,
			inProgress: job.StatusResolving,
			configErr:  configErr,
			configMsg:  MsgResolveFailed,
			deps:       deps,
		},
		searcher: searcher,
	}
}

func (h *Resolver) Handle(ctx context.Context, msg event.Message) error {
	p, ok := payloadOf[event.Submit](ctx, h.name, msg)
	if !ok {
		return nil
	}
	r := ref{JobID: p.JobID, Email: p.Email}
	ctx, ok = h.accept(ctx, r)
	if !ok || !h.checkConfig(ctx, r) {
		return nil
	}

	j, err := h.begin(ctx, r)
	if errors.Is(err, errSkip) {
		return nil
	}
	if err != nil {
		h.fail(ctx, j, r, err, MsgResolveFailed)
		return nil
	}

	ch, err := h.resolve(ctx, p.Channel)
	if err != nil {
		userMsg := MsgResolveFailed
		if errors.Is(err, ErrChannelNotFound) {
			userMsg = MsgChannelNotFound
		}
		h.fail(ctx, j, r, err, userMsg)
		return nil
	}

	j.ChannelID = ch.ID
	j.ChannelName = ch.Name
	r.ChannelName = ch.Name

	h.advance(ctx, j, r, job.StatusFetching, config.TopicChannelResolved, event.ChannelResolved{
		JobID:       p.JobID,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		Email:       p.Email,
	}, MsgResolveFailed)
	return nil
}

// resolve tries each candidate in order and stops at the first match. A
// candidate whose lookup fails is logged and skipped. When every lookup
// failed the result is an upstream fault rather than "not found".
func (h *Resolver) resolve(ctx context.Context, raw string) (*youtube.Channel, error) {
	candidates := Candidates(raw)
	if len(candidates) == 0 {
		return nil, ErrChannelNotFound
	}

	var lastErr error
	failures := 0
	for _, c := range candidates {
		callCtx, cancel := h.call(ctx)
		ch, err := h.searcher.SearchChannel(callCtx, c)
		cancel()

		if err != nil {
			slog.WarnContext(ctx, "channel lookup failed", "candidate", c, "error", err)
			lastErr = err
			failures++
			continue
		}
		if ch != nil && ch.ID != "" {
			if ch.Name == "" {
				ch.Name = c
			}
			slog.InfoContext(ctx, "channel resolved", "candidate", c, "channel_id", ch.ID)
			return ch, nil
		}
		slog.InfoContext(ctx, "no channel for candidate", "candidate", c)
	}

	if failures == len(candidates) {
		return nil, fmt.Errorf("all channel lookups failed: %w", lastErr)
	}
	return nil, ErrChannelNotFound
}
