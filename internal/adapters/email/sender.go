package email

import (
	"fmt"
	"mime/quotedprintable"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
)

const mimeBoundary = "equitybot-alt-boundary"

// Sender delivers reports and error notifications over SMTP with
// STARTTLS. When credentials or recipients are missing the sender is
// disabled and every call becomes a no-op.
type Sender struct {
	server     string
	port       int
	username   string
	password   string
	recipients []string

	// send is swappable for tests
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewSender creates new email sender
func NewSender(cfg *config.EmailConfig) *Sender {
	recipients := make([]string, 0, len(cfg.Recipients))
	for _, r := range cfg.Recipients {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}

	s := &Sender{
		server:     cfg.SMTPServer,
		port:       cfg.SMTPPort,
		username:   cfg.Username,
		password:   cfg.Password,
		recipients: recipients,
		send:       smtp.SendMail,
	}

	if !s.Enabled() {
		logger.Warn("email configuration incomplete, email notifications disabled")
	} else {
		logger.Info("email sender initialized", zap.Int("recipients", len(recipients)))
	}

	return s
}

// Enabled reports whether the sender is fully configured
func (s *Sender) Enabled() bool {
	return s.username != "" && s.password != "" && len(s.recipients) > 0
}

// Send delivers a multipart text+HTML message to all recipients.
// Pass an empty htmlBody for plain-text only.
func (s *Sender) Send(subject, textBody, htmlBody string) error {
	if !s.Enabled() {
		logger.Debug("email not configured, skipping send")
		return nil
	}

	msg, err := buildMessage(s.username, s.recipients, subject, textBody, htmlBody)
	if err != nil {
		return fmt.Errorf("failed to build email: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.server, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.server)

	if err := s.send(addr, auth, s.username, s.recipients, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.Info("email sent", zap.String("subject", subject), zap.Int("recipients", len(s.recipients)))
	return nil
}

// NotifyTrade implements the engine notifier, trades are not emailed
func (s *Sender) NotifyTrade(record models.TradeRecord) {}

// NotifySelection implements the engine notifier, selection changes are
// not emailed
func (s *Sender) NotifySelection(symbols []string, strategy string) {}

// NotifyError emails an error alert
func (s *Sender) NotifyError(message string) {
	subject := fmt.Sprintf("Trading Bot Error Alert - %s", time.Now().Format("2006-01-02"))
	body := fmt.Sprintf("Trading Bot Error Alert\n\nTime: %s\n\n%s\n", time.Now().Format(time.RFC1123), message)

	if err := s.Send(subject, body, ""); err != nil {
		logger.Error("failed to send error email", zap.Error(err))
	}
}

// buildMessage assembles an RFC 2045 multipart/alternative message
func buildMessage(from string, to []string, subject, textBody, htmlBody string) ([]byte, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	if htmlBody == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(textBody)
		return []byte(b.String()), nil
	}

	b.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mimeBoundary))

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain", textBody},
		{"text/html", htmlBody},
	} {
		b.WriteString(fmt.Sprintf("--%s\r\n", mimeBoundary))
		b.WriteString(fmt.Sprintf("Content-Type: %s; charset=utf-8\r\n", part.contentType))
		b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

		var encoded strings.Builder
		w := quotedprintable.NewWriter(&encoded)
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		b.WriteString(encoded.String())
		b.WriteString("\r\n")
	}

	b.WriteString(fmt.Sprintf("--%s--\r\n", mimeBoundary))
	return []byte(b.String()), nil
}
