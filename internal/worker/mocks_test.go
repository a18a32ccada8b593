package worker_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"retitle/internal/adapter/mailer"
	"retitle/internal/adapter/youtube"
	"retitle/internal/event"
)

type MockSearcher struct{ mock.Mock }

func (m *MockSearcher) SearchChannel(ctx context.Context, q string) (*youtube.Channel, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*youtube.Channel), args.Error(1)
}

type MockLister struct{ mock.Mock }

func (m *MockLister) ListRecentVideos(ctx context.Context, channelID string, n int64) ([]event.Video, error) {
	args := m.Called(ctx, channelID, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]event.Video), args.Error(1)
}

type MockGenerator struct{ mock.Mock }

func (m *MockGenerator) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	args := m.Called(ctx, system, prompt)
	return args.String(0), args.Error(1)
}

type MockSender struct{ mock.Mock }

func (m *MockSender) Send(ctx context.Context, msg mailer.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type published struct {
	Topic   string
	Payload any
}

// recorder is a bus.Publisher that keeps every event it is given.
type recorder struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (r *recorder) Publish(ctx context.Context, topic string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, published{Topic: topic, Payload: payload})
	return nil
}

func (r *recorder) on(topic string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.Topic == topic {
			out = append(out, e.Payload)
		}
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
