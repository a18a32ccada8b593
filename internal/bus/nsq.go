package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"

	"retitle/internal/event"
)

type NSQConfig struct {
	// Lookupd addresses consumers discover producers through. When empty,
	// consumers connect to NSQDAddr directly.
	Lookupd       []string
	NSQDAddr      string
	ChannelPrefix string
	Concurrency   int
}

// MessagePublisher is satisfied by *nsq.Producer.
type MessagePublisher interface {
	Publish(topic string, body []byte) error
}

type NSQBus struct {
	producer MessagePublisher
	cfg      NSQConfig
	now      func() time.Time

	mu        sync.Mutex
	subs      []subscription
	consumers []*nsq.Consumer
	started   bool
}

func NewNSQBus(producer MessagePublisher, cfg NSQConfig) *NSQBus {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &NSQBus{producer: producer, cfg: cfg, now: time.Now}
}

// Publish returns after nsqd acknowledged the message.
func (b *NSQBus) Publish(ctx context.Context, topic string, payload any) error {
	body, err := event.Encode(topic, correlationFrom(ctx), payload, b.now())
	if err != nil {
		return err
	}
	if err := b.producer.Publish(topic, body); err != nil {
		return fmt.Errorf("nsq publish %s: %w", topic, err)
	}
	return nil
}

func (b *NSQBus) Subscribe(topic, name string, h Handler) error {
	if !event.Known(topic) {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrBusStarted
	}
	b.subs = append(b.subs, subscription{topic: topic, name: name, handler: h})
	return nil
}

// ChannelName is the NSQ channel a named subscriber consumes from. Each
// subscriber gets its own channel so every one of them sees every message.
func (b *NSQBus) ChannelName(name string) string {
	if b.cfg.ChannelPrefix == "" {
		return name
	}
	return b.cfg.ChannelPrefix + "." + name
}

func (b *NSQBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrBusStarted
	}
	b.started = true

	base := context.WithoutCancel(ctx)
	for _, sub := range b.subs {
		consumer, err := nsq.NewConsumer(sub.topic, b.ChannelName(sub.name), nsq.NewConfig())
		if err != nil {
			b.stopConsumers()
			return fmt.Errorf("nsq consumer %s/%s: %w", sub.topic, sub.name, err)
		}
		consumer.AddConcurrentHandlers(&messageHandler{base: base, sub: sub}, b.cfg.Concurrency)

		if len(b.cfg.Lookupd) > 0 {
			err = consumer.ConnectToNSQLookupds(b.cfg.Lookupd)
		} else {
			err = consumer.ConnectToNSQD(b.cfg.NSQDAddr)
		}
		if err != nil {
			consumer.Stop()
			b.stopConsumers()
			return fmt.Errorf("nsq connect %s/%s: %w", sub.topic, sub.name, err)
		}

		b.consumers = append(b.consumers, consumer)
		slog.Info("nsq consumer connected", "topic", sub.topic, "channel", b.ChannelName(sub.name))
	}
	return nil
}

// Close stops every consumer and waits for in-flight handlers to return.
func (b *NSQBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopConsumers()
	return nil
}

func (b *NSQBus) stopConsumers() {
	for _, c := range b.consumers {
		c.Stop()
	}
	for _, c := range b.consumers {
		<-c.StopChan
	}
	b.consumers = nil
}

type messageHandler struct {
	base context.Context
	sub  subscription
}

// HandleMessage always acknowledges. Undecodable messages are poison pills
// and stage failures are already routed through error topics.
func (h *messageHandler) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	msg, err := event.Decode(m.Body)
	if err != nil {
		slog.ErrorContext(h.base, "invalid message format, dropping", "topic", h.sub.topic, "subscriber", h.sub.name, "error", err)
		return nil
	}
	if msg.Topic != h.sub.topic {
		slog.ErrorContext(h.base, "envelope topic mismatch, dropping", "topic", h.sub.topic, "envelope_topic", msg.Topic)
		return nil
	}

	deliver(h.base, h.sub, msg)
	return nil
}
