package mailer

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sony/gobreaker"

	"retitle/internal/adapter/breaker"
)

type MailgunSender struct {
	mg   *mailgun.MailgunImpl
	from string
	cb   *gobreaker.CircuitBreaker
}

func NewMailgunSender(domain, apiKey, from string) *MailgunSender {
	return &MailgunSender{
		mg:   mailgun.NewMailgun(domain, apiKey),
		from: from,
		cb:   breaker.New("mailgun"),
	}
}

// SetAPIBase points the client at a different region or a test server.
func (s *MailgunSender) SetAPIBase(url string) {
	s.mg.SetAPIBase(url)
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) (string, error) {
	return breaker.Do(s.cb, func() (string, error) {
		message := s.mg.NewMessage(s.from, msg.Subject, msg.Text, msg.To)

		_, id, err := s.mg.Send(ctx, message)
		if err != nil {
			return "", fmt.Errorf("%w: mailgun: %v", ErrDeliveryRejected, err)
		}
		if id == "" {
			return "", missingReceipt("mailgun")
		}
		return id, nil
	})
}
