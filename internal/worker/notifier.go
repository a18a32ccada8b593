package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"retitle/internal/adapter/mailer"
	"retitle/internal/bus"
	"retitle/internal/config"
	"retitle/internal/event"
	"retitle/internal/middleware"
)

// Notifier emails the requester when any stage fails. It is best effort:
// every problem is logged and swallowed, and it never publishes to an error
// topic, so a failing notice cannot start another round of failures.
type Notifier struct {
	sender    mailer.Sender
	pub       bus.Publisher
	timeout   time.Duration
	configErr error
}

// NewNotifier bounds each send by timeout; zero or less falls back to
// config.DefaultCollaboratorTimeout.
func NewNotifier(sender mailer.Sender, pub bus.Publisher, timeout time.Duration, configErr error) *Notifier {
	if configErr == nil && sender == nil {
		configErr = errMissingCollaborator
	}
	if timeout <= 0 {
		timeout = config.DefaultCollaboratorTimeout
	}
	return &Notifier{sender: sender, pub: pub, timeout: timeout, configErr: configErr}
}

func (n *Notifier) Handle(ctx context.Context, msg event.Message) error {
	p, ok := msg.Payload.(event.Failure)
	if !ok {
		slog.ErrorContext(ctx, "unexpected payload type on error topic", "topic", msg.Topic, "type", fmt.Sprintf("%T", msg.Payload))
		return nil
	}
	if p.JobID != "" {
		ctx = middleware.WithJobID(ctx, p.JobID)
	}
	if p.Email == "" {
		slog.WarnContext(ctx, "failure event without contact address, not notifying", "topic", msg.Topic)
		return nil
	}
	if n.configErr != nil {
		slog.ErrorContext(ctx, "cannot send failure notice", "topic", msg.Topic, "error", n.configErr)
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	id, err := n.sender.Send(sendCtx, FailureNotice(p))
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "failed to send failure notice", "topic", msg.Topic, "error", err)
		return nil
	}
	if id == "" {
		slog.ErrorContext(ctx, "failure notice accepted without receipt id", "topic", msg.Topic)
		return nil
	}

	err = n.pub.Publish(ctx, config.TopicErrorNotified, event.ErrorNotified{
		JobID:   p.JobID,
		Email:   p.Email,
		EmailID: id,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish error.notified", "error", err)
		return nil
	}

	slog.InfoContext(ctx, "failure notice sent", "topic", msg.Topic, "email_id", id)
	return nil
}

func FailureNotice(p event.Failure) mailer.Message {
	name := p.ChannelName
	if name == "" {
		name = "unknown"
	}
	reason := p.Error
	if reason == "" {
		reason = "no details provided"
	}

	return mailer.Message{
		To:      p.Email,
		Subject: strings.TrimSpace("Issue with your YouTube Title Generation Job " + p.ChannelName),
		Text: fmt.Sprintf("We ran into an issue generating titles for your channel: %s.\nError details: %s\n",
			name, reason),
	}
}
