package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sony/gobreaker"

	"retitle/internal/adapter/breaker"
)

const sendGridHost = "https://api.sendgrid.com"

type SendGridSender struct {
	apiKey string
	from   string
	host   string
	cb     *gobreaker.CircuitBreaker
}

func NewSendGridSender(apiKey, from string) *SendGridSender {
	return &SendGridSender{
		apiKey: apiKey,
		from:   from,
		host:   sendGridHost,
		cb:     breaker.New("sendgrid"),
	}
}

func (s *SendGridSender) SetHost(host string) {
	s.host = host
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) (string, error) {
	return breaker.Do(s.cb, func() (string, error) {
		return s.send(ctx, msg)
	})
}

func (s *SendGridSender) send(ctx context.Context, msg Message) (string, error) {
	message := mail.NewSingleEmail(
		mail.NewEmail("", s.from),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Text,
		"",
	)

	request := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	request.Method = http.MethodPost
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return "", err
	}

	if response.StatusCode != http.StatusAccepted {
		slog.ErrorContext(ctx, "sendgrid rejected message", "status", response.StatusCode, "body", response.Body)
		return "", fmt.Errorf("%w: sendgrid status %d", ErrDeliveryRejected, response.StatusCode)
	}

	ids := response.Headers["X-Message-Id"]
	if len(ids) == 0 || ids[0] == "" {
		return "", missingReceipt("sendgrid")
	}
	return ids[0], nil
}
