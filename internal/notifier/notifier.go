// Package notifier delivers affordability alerts and weekly tax digests to users.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"sfms/internal/amqp"
	"sfms/internal/core"
)

// Message is a plain-text notification for one recipient.
type Message struct {
	To      string
	Subject string
	Text    string
}

// Notifier delivers messages.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// EmailSender sends messages over SMTP.
type EmailSender struct {
	cfg  Config
	send func(e *email.Email, addr string, a smtp.Auth) error
}

func NewEmailSender(cfg Config) *EmailSender {
	return &EmailSender{
		cfg: cfg,
		send: func(e *email.Email, addr string, a smtp.Auth) error {
			return e.Send(addr, a)
		},
	}
}

func (s *EmailSender) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("%w: recipient address is empty", core.ErrValidation)
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Text)

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(e, addr, auth); err != nil {
		slog.ErrorContext(ctx, "Failed to send email", "component", "notifier", "to", msg.To, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.InfoContext(ctx, "Email sent", "component", "notifier", "to", msg.To, "subject", msg.Subject)
	return nil
}

// LogNotifier writes messages to the log. Used when SMTP is not configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "Notification (email disabled)",
		"component", "notifier",
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}

// FormatAffordabilityAlert builds the email sent when a user's
// debt-to-income ratio is borderline or risky.
func FormatAffordabilityAlert(user core.UserProfile, alert *amqp.AffordabilityAlert) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", displayName(user))
	fmt.Fprintf(&b, "Your latest debt affordability check came back %s.\n\n", alert.Label)
	fmt.Fprintf(&b, "Monthly income: RM %s\n", core.FormatRM(alert.MonthlyIncome))
	fmt.Fprintf(&b, "Monthly debt payments: RM %s\n", core.FormatRM(alert.TotalMonthlyDebtPayments))
	fmt.Fprintf(&b, "Debt-to-income ratio: %s%%\n\n", alert.DTIRatio.Shift(2).StringFixed(1))
	b.WriteString(alert.Recommendation)
	b.WriteString("\n\nBest regards,\nSFMS")

	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Debt affordability alert: %s", alert.Label),
		Text:    b.String(),
	}
}

// FormatWeeklyDigest builds the weekly tax relief summary.
func FormatWeeklyDigest(user core.UserProfile, report core.TaxTipsReport) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", displayName(user))
	if len(report.Suggestions) == 0 {
		fmt.Fprintf(&b, "You have used all of your tax relief for assessment year %d.\n", report.AssessmentYear)
	} else {
		fmt.Fprintf(&b, "Your top tax relief opportunities for assessment year %d:\n\n", report.AssessmentYear)
		for i, s := range report.Suggestions {
			fmt.Fprintf(&b, "%d. %s (%s): %s\n", i+1, s.CategoryLabel, s.CategoryCode, s.Suggestion)
		}
	}
	fmt.Fprintf(&b, "\nTotal unused relief: RM %s\n", core.FormatRM(report.TotalRemainingQuota))
	fmt.Fprintf(&b, "Estimated tax savings: RM %s\n", core.FormatRM(report.TotalEstimatedSavings))
	b.WriteString("\nBest regards,\nSFMS")

	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your weekly tax relief digest (%d)", report.AssessmentYear),
		Text:    b.String(),
	}
}

func displayName(u core.UserProfile) string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return "SFMS user"
}
