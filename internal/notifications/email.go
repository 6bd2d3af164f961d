package notifications

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// ErrNoRecipient is returned when a record carries no email address.
var ErrNoRecipient = errors.New("recipient address missing")

// EmailOptions configures the SMTP relay.
type EmailOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Email sends payloads through an SMTP relay.
type Email struct {
	opts EmailOptions
	send sendFunc
	now  func() time.Time
}

// NewEmail returns an SMTP notifier. Auth is used only when a username is set.
func NewEmail(opts EmailOptions) *Email {
	return &Email{opts: opts, send: smtp.SendMail, now: time.Now}
}

func (e *Email) Notify(ctx context.Context, payload Payload) error {
	to := strings.TrimSpace(payload.RecipientAddress)
	if to == "" {
		return ErrNoRecipient
	}
	addr := net.JoinHostPort(e.opts.Host, strconv.Itoa(e.opts.Port))
	var auth smtp.Auth
	if e.opts.Username != "" {
		auth = smtp.PlainAuth("", e.opts.Username, e.opts.Password, e.opts.Host)
	}
	msg := e.message(to, payload)

	// smtp.SendMail has no context; the dial runs on its own goroutine so
	// the caller's deadline still bounds how long Notify blocks.
	done := make(chan error, 1)
	go func() {
		done <- e.send(addr, auth, e.opts.From, []string{to}, msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email notification: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email notification: %w", ctx.Err())
	}
}

func (e *Email) message(to string, payload Payload) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.opts.From)
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(to))
	fmt.Fprintf(&b, "Subject: %s\r\n", payload.Subject())
	fmt.Fprintf(&b, "Date: %s\r\n", e.now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(payload.Body(), "\n", "\r\n"))
	return []byte(b.String())
}
