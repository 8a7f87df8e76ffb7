package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// MailConfig holds SMTP settings.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether enough is set to send mail.
func (c MailConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends plain-text mail through an SMTP relay.
type Mailer struct {
	cfg  MailConfig
	send sendFunc
}

var _ Sender = (*Mailer)(nil)

func NewMailer(cfg MailConfig) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("invalid header value")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp %s: %w", addr, err)
	}
	return nil
}
