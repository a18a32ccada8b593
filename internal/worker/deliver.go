package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"retitle/features/job"
	"retitle/internal/adapter/mailer"
	"retitle/internal/config"
	"retitle/internal/event"
)

var separator = strings.Repeat("=", 50)

// Deliverer emails the finished titles to the requester.
type Deliverer struct {
	step
	sender mailer.Sender
}

func NewDeliverer(deps Deps, sender mailer.Sender, configErr error) *Deliverer {
	if configErr == nil && sender == nil {
		configErr = errMissingCollaborator
	}
	return &Deliverer{
		step: step{
			name:       "deliver",
			errorTopic: config.TopicEmailError,
			inProgress: job.StatusDelivering,
			configErr:  configErr,
			configMsg:  MsgDeliverFailed,
			deps:       deps,
		},
		sender: sender,
	}
}

func (h *Deliverer) Handle(ctx context.Context, msg event.Message) error {
	p, ok := payloadOf[event.TitlesReady](ctx, h.name, msg)
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
		h.fail(ctx, j, r, err, MsgDeliverFailed)
		return nil
	}

	callCtx, cancel := h.call(ctx)
	id, err := h.sender.Send(callCtx, mailer.Message{
		To:      p.Email,
		Subject: fmt.Sprintf("Improved Video Titles for Your Channel \"%s\"", p.ChannelName),
		Text:    RenderSummary(p.ChannelName, p.ImprovedTitles),
	})
	cancel()
	if err != nil {
		h.fail(ctx, j, r, fmt.Errorf("send results: %w", err), MsgDeliverFailed)
		return nil
	}
	if id == "" {
		h.fail(ctx, j, r, errors.New("send results: empty receipt id"), MsgDeliverFailed)
		return nil
	}

	j.EmailID = id
	j.Error = ""

	h.advance(ctx, j, r, job.StatusCompleted, config.TopicEmailSent, event.EmailSent{
		JobID:   p.JobID,
		Email:   p.Email,
		EmailID: id,
	}, MsgDeliverFailed)
	return nil
}

// RenderSummary produces the plain-text result email. Field order per item
// is fixed: original, improved, rationale, link.
func RenderSummary(channelName string, titles []event.ImprovedTitle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here are the improved video titles for your channel \"%s\":\n\n", channelName)
	b.WriteString(separator + "\n\n")

	for i, t := range titles {
		fmt.Fprintf(&b, "Video %d:\n", i+1)
		fmt.Fprintf(&b, "Original Title: %s\n", t.Original)
		fmt.Fprintf(&b, "Improved Title: %s\n", t.Improved)
		fmt.Fprintf(&b, "Rationale: %s\n", t.Rationale)
		fmt.Fprintf(&b, "URL: %s\n", t.URL)
		if i < len(titles)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n" + separator + "\n\n")
	b.WriteString("Thanks for using retitle.\n")
	return b.String()
}
