package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"membership-api/internal/config"
)

// BrevoService provides Brevo email service
type BrevoService struct {
	APIKey     string
	FromEmail  string
	FromName   string
	httpClient *http.Client
}

// NewBrevoService creates a new Brevo service instance
func NewBrevoService() *BrevoService {
	return &BrevoService{
		APIKey:    config.AppConfig.BrevoAPIKey,
		FromEmail: config.AppConfig.BrevoFromEmail,
		FromName:  config.AppConfig.BrevoFromName,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// EmailRequest represents Brevo email request structure
type EmailRequest struct {
	Sender      EmailSender `json:"sender"`
	To          []EmailTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
	TextContent string      `json:"textContent"`
}

type EmailSender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type EmailTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SendInviteEmail sends the set-up-your-account invitation to a
// subscriber whose account was created during checkout.
func (s *BrevoService) SendInviteEmail(to, name string) error {
	serviceName := config.AppConfig.ServiceName

	subject := fmt.Sprintf("You're invited - %s", serviceName)
	htmlContent := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>Invitation</title>
		</head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px;">
				<h1 style="color: #333; margin-bottom: 20px;">Welcome to %s</h1>
				<p style="color: #666; font-size: 16px;">Hi %s,</p>
				<p style="color: #666; font-size: 16px;">An account has been created for you. Once your payment completes you can sign in with this email address to manage your membership.</p>
				<p style="color: #999; font-size: 12px; margin-top: 30px;">If you did not start this signup, please ignore this email.</p>
			</div>
		</body>
		</html>
	`, serviceName, name)

	textContent := fmt.Sprintf(`Welcome to %s

Hi %s,

An account has been created for you. Once your payment completes you can sign in with this email address to manage your membership.

If you did not start this signup, please ignore this email.
`, serviceName, name)

	emailReq := EmailRequest{
		Sender: EmailSender{
			Name:  s.FromName,
			Email: s.FromEmail,
		},
		To: []EmailTo{
			{Email: to, Name: name},
		},
		Subject:     subject,
		HTMLContent: htmlContent,
		TextContent: textContent,
	}

	return s.sendEmail(emailReq)
}

// SendMembershipEmail sends the membership confirmation with a link to
// the invoice document.
func (s *BrevoService) SendMembershipEmail(to string, invoiceURL string, expiresAt time.Time) error {
	serviceName := config.AppConfig.ServiceName

	subject := fmt.Sprintf("Your membership is active - %s", serviceName)
	htmlContent := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>Membership Confirmation</title>
		</head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px;">
				<h1 style="color: #333; margin-bottom: 20px;">Membership Confirmed</h1>
				<p style="color: #666; font-size: 16px;">Thanks for your payment. Your membership is active through <strong>%s</strong>.</p>
				<p style="color: #666; font-size: 16px;"><a href="%s">View your invoice</a></p>
			</div>
		</body>
		</html>
	`, expiresAt.Format("January 2, 2006"), invoiceURL)

	textContent := fmt.Sprintf(`Membership Confirmed

Thanks for your payment. Your membership is active through %s.

Invoice: %s
`, expiresAt.Format("January 2, 2006"), invoiceURL)

	emailReq := EmailRequest{
		Sender: EmailSender{
			Name:  s.FromName,
			Email: s.FromEmail,
		},
		To: []EmailTo{
			{Email: to},
		},
		Subject:     subject,
		HTMLContent: htmlContent,
		TextContent: textContent,
	}

	return s.sendEmail(emailReq)
}

// sendEmail sends email via Brevo API
func (s *BrevoService) sendEmail(req EmailRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	httpReq, err := http.NewRequest("POST", "https://api.brevo.com/v3/smtp/email", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", s.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}

	return nil
}
