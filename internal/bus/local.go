package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"retitle/internal/event"
)

// LocalBus dispatches in process. Every delivery runs on its own goroutine so
// a slow handler never blocks the publisher or other jobs.
type LocalBus struct {
	mu      sync.RWMutex
	subs    map[string][]subscription
	started bool
	closed  bool
	base    context.Context
	wg      sync.WaitGroup
	now     func() time.Time
}

func NewLocalBus() *LocalBus {
	return &LocalBus{
		subs: make(map[string][]subscription),
		base: context.Background(),
		now:  time.Now,
	}
}

func (b *LocalBus) Subscribe(topic, name string, h Handler) error {
	if !event.Known(topic) {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrBusStarted
	}
	b.subs[topic] = append(b.subs[topic], subscription{topic: topic, name: name, handler: h})
	return nil
}

func (b *LocalBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrBusStarted
	}
	b.started = true
	b.base = context.WithoutCancel(ctx)
	return nil
}

// Publish encodes the payload once and hands every subscriber its own decoded
// copy, so handlers never share slices.
func (b *LocalBus) Publish(ctx context.Context, topic string, payload any) error {
	body, err := event.Encode(topic, correlationFrom(ctx), payload, b.now())
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.WarnContext(ctx, "publish after close dropped", "topic", topic)
		return nil
	}

	for _, sub := range b.subs[topic] {
		msg, err := event.Decode(body)
		if err != nil {
			return err
		}
		b.wg.Add(1)
		go func(sub subscription, msg event.Message) {
			defer b.wg.Done()
			deliver(b.base, sub, msg)
		}(sub, msg)
	}
	return nil
}

// Close stops accepting publishes and waits for in-flight deliveries.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// Wait blocks until every delivery scheduled so far has finished, including
// deliveries scheduled by handlers while waiting.
func (b *LocalBus) Wait() {
	b.wg.Wait()
}
