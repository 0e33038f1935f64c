package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Sender delivers transactional email. The notification service depends on
// this interface so tests can swap in a recorder.
type Sender interface {
	SendNotificationEmail(ctx context.Context, toEmail, subject, message string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, resetToken string) error
}

// EmailService handles sending emails via AWS SES
type EmailService struct {
	client    *ses.Client
	fromEmail string
	fromName  string
	baseURL   string
}

// NewEmailService creates a new email service using AWS SES
func NewEmailService(region, fromEmail, fromName, baseURL string) (*EmailService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := ses.NewFromConfig(cfg)

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   baseURL,
	}, nil
}

// SendNotificationEmail delivers a notification to a user's inbox
func (e *EmailService) SendNotificationEmail(ctx context.Context, toEmail, subject, message string) error {
	htmlBody := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<style>
				body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
				.container { max-width: 600px; margin: 0 auto; padding: 20px; }
				.button { display: inline-block; padding: 12px 24px; background-color: #7c3aed; color: white; text-decoration: none; border-radius: 6px; margin: 20px 0; }
			</style>
		</head>
		<body>
			<div class="container">
				<h1>%s</h1>
				<p>%s</p>
				<a href="%s/notifications" class="button">View on Campus Confessions</a>
				<hr>
				<p style="color: #999; font-size: 12px;">You receive these emails because notifications are enabled in your preferences.</p>
			</div>
		</body>
		</html>
	`, subject, message, e.baseURL)

	textBody := fmt.Sprintf("%s\n\n%s\n\nView on Campus Confessions: %s/notifications\n", subject, message, e.baseURL)

	return e.send(ctx, toEmail, subject, htmlBody, textBody)
}

// SendPasswordResetEmail sends a password reset email with the reset token
func (e *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, resetToken string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", e.baseURL, resetToken)

	subject := "Reset Your Campus Confessions Password"
	htmlBody := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<style>
				body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
				.container { max-width: 600px; margin: 0 auto; padding: 20px; }
				.button { display: inline-block; padding: 12px 24px; background-color: #7c3aed; color: white; text-decoration: none; border-radius: 6px; margin: 20px 0; }
			</style>
		</head>
		<body>
			<div class="container">
				<h1>Reset Your Password</h1>
				<p>You requested to reset your password for your Campus Confessions account.</p>
				<p>Click the button below to reset your password. This link will expire in 1 hour.</p>
				<a href="%s" class="button">Reset Password</a>
				<p>Or copy and paste this link into your browser:</p>
				<p style="word-break: break-all; color: #666;">%s</p>
				<p>If you didn't request this password reset, you can safely ignore this email.</p>
			</div>
		</body>
		</html>
	`, resetURL, resetURL)

	textBody := fmt.Sprintf(`
Reset Your Campus Confessions Password

Click the link below to reset your password. This link will expire in 1 hour.

%s

If you didn't request this password reset, you can safely ignore this email.
	`, resetURL)

	return e.send(ctx, toEmail, subject, htmlBody, textBody)
}

func (e *EmailService) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	from := e.fromEmail
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := e.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
