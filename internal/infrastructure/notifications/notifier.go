// Package notifications delivers one-time codes over email and SMS.
package notifications

import (
	"context"
	"fmt"

	"github.com/you/backoffice/domain"
	"go.uber.org/zap"
)

// SMS providers selectable in configuration.
const (
	ProviderTwilio = "twilio"
	ProviderSNS    = "sns"
)

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// EmailSender delivers an HTML email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// Notifier implements domain.NotificationService over one email channel and
// one SMS channel.
type Notifier struct {
	email EmailSender
	sms   SMSSender
}

func NewNotifier(email EmailSender, sms SMSSender) *Notifier {
	return &Notifier{email: email, sms: sms}
}

// SendSMS implements domain.NotificationService
func (n *Notifier) SendSMS(ctx context.Context, to, message string) error {
	if n.sms == nil {
		return fmt.Errorf("no sms channel configured")
	}
	return n.sms.SendSMS(ctx, to, message)
}

// SendEmail implements domain.NotificationService
func (n *Notifier) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	return n.email.SendEmail(ctx, to, subject, htmlBody)
}

// SMSOptions selects and configures the SMS provider.
type SMSOptions struct {
	Provider    string
	TwilioSID   string
	TwilioToken string
	TwilioFrom  string
	SNSRegion   string
}

// NewSMSSender builds the sender for opts.Provider.
func NewSMSSender(ctx context.Context, opts SMSOptions, logger *zap.Logger) (SMSSender, error) {
	switch opts.Provider {
	case ProviderTwilio, "":
		return NewTwilioSender(opts.TwilioSID, opts.TwilioToken, opts.TwilioFrom, logger), nil
	case ProviderSNS:
		sender, err := NewSNSSender(ctx, opts.SNSRegion)
		if err != nil {
			return nil, err
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", opts.Provider)
	}
}

var _ domain.NotificationService = (*Notifier)(nil)
