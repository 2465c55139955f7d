package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"meetbook/core/config"
	"meetbook/core/logger"
)

// Mailer delivers one plain-text email. Implementations must be safe for
// concurrent use by the workqueue.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smtpMailer struct {
	addr string
	auth smtp.Auth
	from string
}

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, to, subject, body string) error {
	logger.Info("Mailer:Noop:Send", "to", to, "subject", subject)
	return nil
}

// New builds an SMTP mailer from config, or a log-only no-op when no host is
// configured.
func New(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		logger.Info("Mailer:Init:Disabled")
		return noopMailer{}
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	logger.Info("Mailer:Init:Success", "host", cfg.Host, "port", cfg.Port)
	return &smtpMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: from,
	}
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
