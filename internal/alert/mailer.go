package alert

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"vinz/internal/config"
)

// Sender delivers an alert message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPSender delivers alerts through an SMTP relay. Authentication is
// optional; with no username configured the message is handed over
// unauthenticated.
type SMTPSender struct {
	host string
	port int
	auth smtp.Auth
	from string
	to   []string
}

func NewSMTPSender(cfg config.AlertConfig) (*SMTPSender, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp_host is required")
	}
	if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
		return nil, fmt.Errorf("smtp_port %d is out of range", cfg.SMTPPort)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("alert from address is required")
	}
	if len(cfg.To) == 0 {
		return nil, fmt.Errorf("at least one alert recipient is required")
	}

	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}

	return &SMTPSender{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		auth: auth,
		from: cfg.From,
		to:   cfg.To,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, subject, body string) error {
	// smtp.SendMail cannot be interrupted midway, so honor cancellation
	// before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	if err := smtp.SendMail(addr, s.auth, s.from, s.to, s.buildMessage(subject, body)); err != nil {
		return fmt.Errorf("failed to send alert mail: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
