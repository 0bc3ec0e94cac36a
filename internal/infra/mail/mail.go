package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/fk00750/authguard/internal/core/port"
	"github.com/fk00750/authguard/internal/infra/config"
	"github.com/fk00750/authguard/internal/infra/logger"
)

// SMTPSender delivers mail over plain SMTP with optional auth.
type SMTPSender struct {
	cfg    config.SMTPSettings
	logger *zap.Logger
}

// NewSMTPSender constructs an SMTP-backed mail sender.
func NewSMTPSender(cfg config.SMTPSettings, log *zap.Logger) *SMTPSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &SMTPSender{cfg: cfg, logger: log}
}

// Send delivers the mail. Delivery failures are reported to the caller and
// never unwind whatever state change preceded the send.
func (s *SMTPSender) Send(ctx context.Context, mail port.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(mail.To) == "" {
		return fmt.Errorf("recipient is required")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{mail.To}, buildMessage(s.cfg.From, mail)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	s.logger.Info("mail sent",
		zap.String("to", logger.MaskEmail(mail.To)),
		zap.String("subject", mail.Subject),
	)

	return nil
}

func buildMessage(from string, mail port.Mail) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", mail.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mail.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	if mail.Heading != "" {
		b.WriteString(mail.Heading)
		b.WriteString("\r\n\r\n")
	}
	b.WriteString(mail.Body)
	if mail.Link != "" {
		b.WriteString("\r\n\r\n")
		b.WriteString(mail.Link)
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogSender writes mail to the log instead of delivering it. Used when no
// SMTP host is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a development-friendly mail sender.
func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{logger: log}
}

func (s *LogSender) Send(_ context.Context, mail port.Mail) error {
	s.logger.Info("mail suppressed, no smtp host configured",
		zap.String("to", logger.MaskEmail(mail.To)),
		zap.String("subject", mail.Subject),
		zap.String("link", mail.Link),
	)
	return nil
}

var (
	_ port.MailSender = (*SMTPSender)(nil)
	_ port.MailSender = (*LogSender)(nil)
)
