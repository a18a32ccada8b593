package worker

import (
	"context"
	"fmt"
	"log/slog"

	"retitle/internal/event"
	"retitle/internal/middleware"
)

// Audit consumes the terminal topics nothing else reads, so their NSQ
// channels drain, and leaves one log line per event.
func Audit(ctx context.Context, msg event.Message) error {
	switch p := msg.Payload.(type) {
	case event.EmailSent:
		ctx = middleware.WithJobID(ctx, p.JobID)
		slog.InfoContext(ctx, "job delivered", "topic", msg.Topic, "email_id", p.EmailID)
	case event.ErrorNotified:
		ctx = middleware.WithJobID(ctx, p.JobID)
		slog.InfoContext(ctx, "requester notified of failure", "topic", msg.Topic, "email_id", p.EmailID)
	case event.CleanupCompleted:
		slog.InfoContext(ctx, "retention sweep recorded", "topic", msg.Topic,
			"scanned", p.ScannedCount, "deleted", p.DeletedCount, "retention_days", p.RetentionDays)
	default:
		slog.WarnContext(ctx, "unexpected payload on sink topic", "topic", msg.Topic, "type", fmt.Sprintf("%T", msg.Payload))
	}
	return nil
}
