package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"stylemateapi/config"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var emailTemplates embed.FS

var parsedEmailTemplates = template.Must(template.ParseFS(emailTemplates, "templates/*.html"))

const (
	TemplateVerifyEmail   = "verify_email.html"
	TemplateResetPassword = "reset_password.html"
)

type Email struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

func RenderEmail(email Email) (string, error) {
	var buf bytes.Buffer
	if err := parsedEmailTemplates.ExecuteTemplate(&buf, email.Template, email.Data); err != nil {
		return "", fmt.Errorf("render %s: %w", email.Template, err)
	}
	return buf.String(), nil
}

// SMTPMailer delivers mail through a plain SMTP relay with PLAIN auth.
type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	body, err := RenderEmail(email)
	if err != nil {
		return err
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", email.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", email.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(body)

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, senderAddress(m.cfg.From), []string{email.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", email.To, err)
	}
	return nil
}

// LogMailer writes rendered mail to the log instead of sending it. Used in
// local development and when no SMTP host is configured.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) Send(ctx context.Context, email Email) error {
	body, err := RenderEmail(email)
	if err != nil {
		return err
	}
	m.Logger.Info("email (not sent)",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.Any("data", email.Data),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}

func NewMailer(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if cfg.Host == "" {
		return LogMailer{Logger: logger}
	}
	return NewSMTPMailer(cfg)
}

// senderAddress extracts the bare address from "Name <addr>".
func senderAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		return strings.TrimSuffix(from[i+1:], ">")
	}
	return from
}
