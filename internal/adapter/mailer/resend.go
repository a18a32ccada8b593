package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"retitle/internal/adapter/breaker"
)

const resendURL = "https://api.resend.com/emails"

type ResendSender struct {
	apiKey  string
	from    string
	client  *http.Client
	baseURL string
	cb      *gobreaker.CircuitBreaker
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
		cb:     breaker.New("resend"),
	}
}

func (s *ResendSender) SetBaseURL(url string) {
	s.baseURL = url
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	return breaker.Do(s.cb, func() (string, error) {
		return s.send(ctx, msg)
	})
}

func (s *ResendSender) send(ctx context.Context, msg Message) (string, error) {
	url := resendURL
	if s.baseURL != "" {
		url = s.baseURL
	}

	reqBody := map[string]interface{}{
		"from":    s.from,
		"to":      []string{msg.To},
		"subject": msg.Subject,
		"text":    msg.Text,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.ErrorContext(ctx, "resend rejected message", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("%w: resend status %d", ErrDeliveryRejected, resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode resend response: %w", err)
	}
	if result.ID == "" {
		return "", missingReceipt("resend")
	}
	return result.ID, nil
}
