// Package mail sends account emails over SMTP. When no credentials are
// configured the mailer is a no-op and account flows skip verification,
// since some hosts block outbound SMTP entirely.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/ct-rrya/study-buddy/internal/metrics"
)

// Mailer sends account emails. Implementations must be safe for concurrent use.
type Mailer interface {
	SendVerification(ctx context.Context, to, username, verifyURL string) error
	SendPasswordReset(ctx context.Context, to, username, resetURL string) error
	Enabled() bool
}

// SMTPMailer sends via an authenticated SMTP relay (Gmail app passwords in
// the common case).
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(host string, port int, username, password string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     username,
	}
}

func (m *SMTPMailer) Enabled() bool { return true }

func (m *SMTPMailer) SendVerification(ctx context.Context, to, username, verifyURL string) error {
	body := accountEmail(
		"Welcome to Study Buddy! 📚",
		username,
		"Thanks for signing up! Please verify your email by clicking the button below:",
		"Verify Email",
		verifyURL,
		"If you didn't create this account, you can ignore this email.",
	)
	err := m.send(ctx, to, "Verify your Study Buddy account", body)
	metrics.RecordMailSent("verification", err)
	return err
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, username, resetURL string) error {
	body := accountEmail(
		"Password Reset 🔐",
		username,
		"We received a request to reset your password. Click the button below to set a new one:",
		"Reset Password",
		resetURL,
		"This link expires in 1 hour. If you didn't request this, you can ignore this email.",
	)
	err := m.send(ctx, to, "Reset your Study Buddy password", body)
	metrics.RecordMailSent("password_reset", err)
	return err
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

func accountEmail(heading, username, intro, buttonLabel, link, footer string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #8b5cf6;">%s</h2>
    <p>Hey %s!</p>
    <p>%s</p>
    <p style="text-align: center; margin: 30px 0;">
        <a href="%s" style="background: linear-gradient(135deg, #8b5cf6, #6366f1); color: white; padding: 12px 30px; text-decoration: none; border-radius: 8px; font-weight: bold;">
            %s
        </a>
    </p>
    <p style="color: #666; font-size: 14px;">Or copy this link: %s</p>
    <p style="color: #666; font-size: 12px; margin-top: 30px;">%s</p>
</div>`, heading, username, intro, link, buttonLabel, link, footer)
}

// NoopMailer is used when SMTP credentials are absent. Sends succeed without
// doing anything; callers check Enabled to decide whether verification flows
// apply.
type NoopMailer struct{}

func (NoopMailer) Enabled() bool { return false }

func (NoopMailer) SendVerification(_ context.Context, to, _, _ string) error {
	slog.Debug("mail disabled, skipping verification email", "to", to)
	return nil
}

func (NoopMailer) SendPasswordReset(_ context.Context, to, _, _ string) error {
	slog.Debug("mail disabled, skipping password reset email", "to", to)
	return nil
}
