// Package smtp delivers alert notifications by e-mail.
package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/go-patient-monitor/internal/config"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends each published message as an e-mail to a fixed recipient list.
type Mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	to       []string
	send     sendFunc
}

func NewMailer(cfg *config.Config) *Mailer {
	var to []string
	for _, addr := range strings.Split(cfg.NotifyEmailTo, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		to:       to,
		send:     smtp.SendMail,
	}
}

// Publish mails message with attrs rendered as a trailing key/value block.
// net/smtp has no context support, so ctx is only checked before sending.
func (m *Mailer) Publish(ctx context.Context, subject, message string, attrs map[string]string) error {
	if len(m.to) == 0 {
		return fmt.Errorf("smtp: no recipients configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	if err := m.send(addr, auth, m.from, m.to, m.compose(subject, message, attrs)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *Mailer) compose(subject, message string, attrs map[string]string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.from, strings.Join(m.to, ", "), subject, message)
	if len(attrs) > 0 {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\r\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\r\n", k, attrs[k])
		}
	}
	return []byte(b.String())
}
