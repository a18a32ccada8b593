// Package bus dispatches typed events between pipeline stages.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"

	"retitle/internal/event"
	"retitle/internal/middleware"
)

var (
	ErrUnknownTopic = event.ErrUnknownTopic
	ErrBusStarted   = errors.New("bus already started")
)

// Handler processes one delivery. A returned error is logged by the bus and
// never redelivered.
type Handler func(ctx context.Context, msg event.Message) error

type Bus interface {
	// Publish validates payload against topic and returns once the event is
	// accepted for dispatch, not once handlers finish.
	Publish(ctx context.Context, topic string, payload any) error
	// Subscribe registers h under a subscriber name. Only legal before Start.
	Subscribe(topic, name string, h Handler) error
	Start(ctx context.Context) error
	Close() error
}

// Publisher is the narrow view most components depend on.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type subscription struct {
	topic   string
	name    string
	handler Handler
}

func correlationFrom(ctx context.Context) string {
	if id, ok := ctx.Value(middleware.CorrelationKey).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// deliver runs h with the envelope's correlation id restored and contains
// errors and panics so one bad handler cannot take the dispatcher down.
func deliver(base context.Context, sub subscription, msg event.Message) {
	ctx := middleware.WithCorrelationID(base, msg.CorrelationID)
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "handler panicked",
				"topic", sub.topic, "subscriber", sub.name,
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	if err := sub.handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "handler failed", "topic", sub.topic, "subscriber", sub.name, "error", err)
	}
}
