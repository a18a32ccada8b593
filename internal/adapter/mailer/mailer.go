// Package mailer delivers plain-text notifications through the configured
// email provider.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"retitle/internal/config"
)

var ErrDeliveryRejected = errors.New("delivery rejected")

type Message struct {
	To      string
	Subject string
	Text    string
}

// Sender returns the provider's receipt id for an accepted message. An
// accepted message without a receipt is reported as an error.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// New builds the sender selected by MAIL_PROVIDER. The credential check
// error is returned as-is so callers can keep running other stages.
func New(cfg *config.Config) (Sender, error) {
	if err := cfg.MailCredentials(); err != nil {
		return nil, err
	}
	switch cfg.MailProvider {
	case config.MailProviderResend:
		return NewResendSender(cfg.ResendAPIKey, cfg.MailFrom), nil
	case config.MailProviderSendGrid:
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFrom), nil
	case config.MailProviderMailgun:
		return NewMailgunSender(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailFrom), nil
	}
	return nil, fmt.Errorf("unknown MAIL_PROVIDER %q", cfg.MailProvider)
}

func missingReceipt(provider string) error {
	return fmt.Errorf("%w: %s returned no message id", ErrDeliveryRejected, provider)
}
