// Package email delivers lead notifications and auto-responders over
// the configured transport.
package email

import (
	"context"

	"lead_router_backend/platform/config"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte
	FileName string
	MIMEType string
}

// LeadNotificationData is the template payload for the admin
// notification sent when a lead arrives.
type LeadNotificationData struct {
	LeadName   string
	Email      string
	Phone      string
	Message    string
	FormType   string
	Source     string
	SourceURL  string
	ListingID  string
	Interests  []string
	ReceivedAt string
}

// AutoResponderData is the template payload for the confirmation sent
// back to the lead.
type AutoResponderData struct {
	FirstName     string
	FromName      string
	SchedulingURL string
}

type Sender interface {
	SendLeadNotification(ctx context.Context, toEmail string, data LeadNotificationData) error
	SendAutoResponder(ctx context.Context, toEmail string, data AutoResponderData) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

type NoopSender struct{}

func (NoopSender) SendLeadNotification(ctx context.Context, toEmail string, data LeadNotificationData) error {
	return nil
}

func (NoopSender) SendAutoResponder(ctx context.Context, toEmail string, data AutoResponderData) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

// NewSender builds the sender for the configured provider. Email
// disabled yields a NoopSender so callers never branch on config.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	switch cfg.GetEmailProvider() {
	case "smtp":
		return NewSMTPSender(
			cfg.GetSMTPHost(), cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
		), nil
	default:
		return NewBrevoSender(cfg), nil
	}
}
