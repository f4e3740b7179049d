package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/ehevelone/vitalink-app/internal/core/port"
	"github.com/ehevelone/vitalink-app/internal/infra/config"
	"github.com/ehevelone/vitalink-app/internal/infra/logger"
)

// SMTPMailer sends transactional mail through the configured SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewSMTPMailer constructs a mailer from SMTP settings.
func NewSMTPMailer(cfg config.SMTPSettings, log *zap.Logger) *SMTPMailer {
	if log == nil {
		log = zap.NewNop()
	}

	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}

	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   from,
		logger: log,
	}
}

// Send delivers a plain-text message. The context deadline is not honored by
// the underlying dialer; SMTP timeouts come from the relay configuration.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	m.logger.Debug("email sent",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
	)
	return nil
}

var _ port.Mailer = (*SMTPMailer)(nil)
