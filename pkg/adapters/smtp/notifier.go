// Package smtp delivers notifications through an SMTP submission server.
package smtp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Config holds the submission server settings.
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Sender   string `mapstructure:"sender"`
	Password string `mapstructure:"password"`
}

// SendFunc matches smtp.SendMail. It is swapped out in tests.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Notifier implements ports.Notifier over SMTP with PLAIN auth.
type Notifier struct {
	cfg  Config
	send SendFunc
	now  func() time.Time
}

// Option configures the Notifier.
type Option func(*Notifier)

// WithSendFunc replaces the transport.
func WithSendFunc(fn SendFunc) Option {
	return func(n *Notifier) { n.send = fn }
}

// WithClock sets the time used for the Date header.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// New validates cfg and creates a Notifier. Port defaults to 587.
func New(cfg Config, opts ...Option) (*Notifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp: host is required")
	}
	if cfg.Sender == "" {
		return nil, errors.New("smtp: sender is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	n := &Notifier{cfg: cfg, send: smtp.SendMail, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Send submits a plain-text message. smtp.SendMail has no context support,
// so cancellation is only honoured before the dial.
func (n *Notifier) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if recipient == "" {
		return errors.New("smtp: recipient is required")
	}

	var auth smtp.Auth
	if n.cfg.Password != "" {
		auth = smtp.PlainAuth("", n.cfg.Sender, n.cfg.Password, n.cfg.Host)
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	msg := n.compose(recipient, subject, body)
	if err := n.send(addr, auth, n.cfg.Sender, []string{recipient}, msg); err != nil {
		return fmt.Errorf("smtp: send to %s: %w", recipient, err)
	}
	return nil
}

func (n *Notifier) compose(recipient, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return b.Bytes()
}
