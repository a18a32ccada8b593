package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"

	"retitle/internal/adapter/breaker"
)

var (
	// ErrMalformedEnvelope means the response carried no usable candidate.
	ErrMalformedEnvelope = errors.New("gemini: malformed response envelope")
	// ErrMissingContent means the candidate carried no text part.
	ErrMissingContent = errors.New("gemini: response has no text content")
)

type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
	cb          *gobreaker.CircuitBreaker
}

func NewGenerator(ctx context.Context, apiKey, model string, temperature float32, opts ...option.ClientOption) (*Generator, error) {
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Generator{
		client:      client,
		model:       model,
		temperature: temperature,
		cb:          breaker.New("gemini"),
	}, nil
}

func (g *Generator) Close() error {
	return g.client.Close()
}

// GenerateJSON sends one prompt with a JSON response type and returns the raw
// text of the first candidate. Parsing the text is left to the caller.
func (g *Generator) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	slog.DebugContext(ctx, "generating content", "model", g.model, "prompt_length", len(prompt))

	return breaker.Do(g.cb, func() (string, error) {
		m := g.client.GenerativeModel(g.model)
		m.SetTemperature(g.temperature)
		m.ResponseMIMEType = "application/json"
		if system != "" {
			m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
		}

		resp, err := m.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			slog.ErrorContext(ctx, "generation failed", "model", g.model, "error", err)
			return "", fmt.Errorf("generate content: %w", err)
		}
		return ExtractText(resp)
	})
}

// ExtractText concatenates the text parts of the first candidate.
func ExtractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", ErrMalformedEnvelope
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return "", ErrMissingContent
	}

	var sb strings.Builder
	for _, p := range content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrMissingContent
	}
	return sb.String(), nil
}
