package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"account_service/internal/config"
	"account_service/internal/logger"

	"go.uber.org/zap"
)

// Mailer delivers account notifications to users
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string, expires time.Time) error
}

// New returns an SMTP mailer when a relay is configured and a logging mailer otherwise.
// Reset secrets only reach the log in development.
func New(cfg config.SMTPConfig, environment string, log *zap.Logger) Mailer {
	if !cfg.Enabled() {
		log.Warn("SMTP_HOST not set, password reset emails will only be logged")
		return NewLogMailer(log, environment == config.EnvDevelopment)
	}
	return NewSMTPMailer(cfg)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends plain-text mail through an SMTP relay
type SMTPMailer struct {
	cfg  config.SMTPConfig
	send sendFunc
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string, expires time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	msg := passwordResetMessage(m.cfg.From, to, token, expires)
	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

func passwordResetMessage(from, to, token string, expires time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Password Reset\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString("Reset your password using this token: " + token + "\r\n")
	b.WriteString("The token expires at " + expires.UTC().Format(time.RFC1123) + ".\r\n")
	return []byte(b.String())
}

// LogMailer records notifications in the log instead of delivering them.
// The reset secret itself is logged only when showToken is set.
type LogMailer struct {
	log       *zap.Logger
	showToken bool
}

func NewLogMailer(log *zap.Logger, showToken bool) *LogMailer {
	return &LogMailer{log: log, showToken: showToken}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, token string, expires time.Time) error {
	fields := []zap.Field{
		zap.String("to", logger.MaskEmail(to)),
		zap.Time("expires", expires),
	}
	if m.showToken {
		fields = append(fields, zap.String("token", token))
	}
	m.log.Info("Password reset email (not delivered)", fields...)
	return nil
}
