// Package event defines the typed payload for every bus topic and the
// envelope they travel in.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"

	"retitle/internal/config"
)

var (
	ErrUnknownTopic   = errors.New("unknown topic")
	ErrInvalidPayload = errors.New("invalid payload")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var registry = map[string]reflect.Type{
	config.TopicSubmit:           reflect.TypeOf(Submit{}),
	config.TopicChannelResolved:  reflect.TypeOf(ChannelResolved{}),
	config.TopicChannelError:     reflect.TypeOf(Failure{}),
	config.TopicVideosFetched:    reflect.TypeOf(VideosFetched{}),
	config.TopicVideosError:      reflect.TypeOf(Failure{}),
	config.TopicTitlesReady:      reflect.TypeOf(TitlesReady{}),
	config.TopicTitlesError:      reflect.TypeOf(Failure{}),
	config.TopicEmailSent:        reflect.TypeOf(EmailSent{}),
	config.TopicEmailError:       reflect.TypeOf(Failure{}),
	config.TopicErrorNotified:    reflect.TypeOf(ErrorNotified{}),
	config.TopicCleanupCompleted: reflect.TypeOf(CleanupCompleted{}),
}

// Envelope is the wire form shared by every transport.
type Envelope struct {
	Topic         string          `json:"topic"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	PublishedAt   time.Time       `json:"published_at"`
	Payload       json.RawMessage `json:"payload"`
}

// Message is a decoded envelope. Payload holds the topic's struct by value.
type Message struct {
	Topic         string
	CorrelationID string
	PublishedAt   time.Time
	Payload       any
}

func Known(topic string) bool {
	_, ok := registry[topic]
	return ok
}

// New returns a pointer to a zero payload of the type registered for topic.
func New(topic string) (any, error) {
	t, ok := registry[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	return reflect.New(t).Interface(), nil
}

// Validate checks that payload is the registered type for topic, passed by
// value, and that its fields satisfy their constraints.
func Validate(topic string, payload any) error {
	t, ok := registry[topic]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	if payload == nil || reflect.TypeOf(payload) != t {
		return fmt.Errorf("%w: topic %q expects %s, got %T", ErrInvalidPayload, topic, t.Name(), payload)
	}
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, topic, err)
	}
	return nil
}

// Encode validates payload and wraps it in an envelope.
func Encode(topic, correlationID string, payload any, now time.Time) ([]byte, error) {
	if err := Validate(topic, payload); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(Envelope{
		Topic:         topic,
		CorrelationID: correlationID,
		PublishedAt:   now.UTC(),
		Payload:       raw,
	})
}

func Decode(body []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Message{}, fmt.Errorf("%w: envelope: %v", ErrInvalidPayload, err)
	}

	ptr, err := New(env.Topic)
	if err != nil {
		return Message{}, err
	}
	if err := json.Unmarshal(env.Payload, ptr); err != nil {
		return Message{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Topic, err)
	}

	payload := reflect.ValueOf(ptr).Elem().Interface()
	if err := Validate(env.Topic, payload); err != nil {
		return Message{}, err
	}

	return Message{
		Topic:         env.Topic,
		CorrelationID: env.CorrelationID,
		PublishedAt:   env.PublishedAt,
		Payload:       payload,
	}, nil
}
