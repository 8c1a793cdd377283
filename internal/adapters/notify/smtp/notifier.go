// Package smtp delivers operator notifications by plain-text email over
// SMTP with STARTTLS.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/ports"
)

const subjectPrefix = "Vulture: "

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

func (c Config) Enabled() bool {
	return c.Host != "" && c.From != "" && c.To != ""
}

type Notifier struct {
	cfg Config
}

var _ ports.Notifier = (*Notifier)(nil)

func NewNotifier(cfg Config) *Notifier {
	return &Notifier{cfg: cfg}
}

func (n *Notifier) Notify(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Hello(domainOf(n.cfg.From)); err != nil {
		return fmt.Errorf("hello: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(n.cfg.To); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}

	message := buildMessage(n.cfg.From, n.cfg.To, subjectPrefix+subject, body)
	if _, err := writer.Write([]byte(message)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	return client.Quit()
}

func buildMessage(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.String()
}

func domainOf(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 && i+1 < len(email) {
		return email[i+1:]
	}
	return "localhost"
}

// NopNotifier swallows notifications when email is not configured.
type NopNotifier struct{}

var _ ports.Notifier = NopNotifier{}

func (NopNotifier) Notify(context.Context, string, string) error { return nil }
