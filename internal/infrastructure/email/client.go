// Package email provides the email client for sending transactional emails.
package email

import (
	"errors"
	"fmt"

	"github.com/resendlabs/resend-go"

	"github.com/mayanov/tarotsite-go/internal/infrastructure/email/templates"
)

// ErrNotConfigured is returned by NewService when no API key is set.
var ErrNotConfigured = errors.New("email delivery is not configured")

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendAdminWelcomeEmail(toEmail, addedBy string) error
}

// Config holds the Resend credentials and sender identity.
type Config struct {
	APIKey       string
	FromEmail    string
	FromName     string
	DashboardURL string
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client       *resend.Client
	fromEmail    string
	fromName     string
	dashboardURL string
}

// NewService creates a new email service client, returning the Service interface.
func NewService(cfg Config) (Service, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	fromEmail := cfg.FromEmail
	if fromEmail == "" {
		fromEmail = "noreply@tarotreadingbymayanov.com"
	}
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "Mayanov Tarot"
	}

	return &ResendClient{
		client:       resend.NewClient(cfg.APIKey),
		fromEmail:    fromEmail,
		fromName:     fromName,
		dashboardURL: cfg.DashboardURL,
	}, nil
}

// SendAdminWelcomeEmail tells a newly added admin they can sign in.
func (c *ResendClient) SendAdminWelcomeEmail(toEmail, addedBy string) error {
	content, err := templates.GetAdminWelcomeContent(templates.AdminWelcomeProps{
		Email:        toEmail,
		AddedBy:      addedBy,
		DashboardURL: c.dashboardURL,
	})
	if err != nil {
		return fmt.Errorf("failed to render welcome email: %w", err)
	}

	htmlContent, err := templates.GetEmailLayout(templates.EmailLayoutProps{
		Preheader: "You now have access to the Mayanov Tarot dashboard",
		Content:   content,
	})
	if err != nil {
		return fmt.Errorf("failed to render email layout: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: "Your Mayanov Tarot admin access",
		Html:    htmlContent,
	}

	if _, err := c.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send welcome email via Resend: %w", err)
	}
	return nil
}
