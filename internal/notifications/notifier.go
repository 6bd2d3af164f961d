package notifications

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"oap/internal/config"
)

const userAgent = "OAP-Notifier/1.0"

// Payload describes one applied stage transition.
type Payload struct {
	RequestID            string
	StageLabel           string
	RecipientAddress     string
	RecipientDisplayName string
	SUT                  string
	NewStatus            string
	ResultLink           string
}

// Notifier delivers a payload over one transport.
type Notifier interface {
	Notify(ctx context.Context, payload Payload) error
}

// New builds the notifier selected by cfg.Notifications.Transport.
func New(cfg *config.Config) (Notifier, error) {
	if cfg == nil {
		return Noop{}, nil
	}
	switch cfg.Notifications.Transport {
	case config.TransportNone, "":
		return Noop{}, nil
	case config.TransportNtfy:
		return NewNtfy(cfg.Notifications.NtfyTopic, cfg.NotificationTimeout()), nil
	case config.TransportEmail:
		return NewEmail(EmailOptions{
			Host:     cfg.Notifications.SMTPHost,
			Port:     cfg.Notifications.SMTPPort,
			Username: cfg.Notifications.SMTPUsername,
			Password: cfg.Notifications.SMTPPassword,
			From:     cfg.Notifications.FromAddress,
		}), nil
	default:
		return nil, fmt.Errorf("notifications: unsupported transport %q", cfg.Notifications.Transport)
	}
}

// Noop discards every payload.
type Noop struct{}

func (Noop) Notify(context.Context, Payload) error { return nil }

var titleCaser = cases.Title(language.English)

// DisplayName title-cases the recipient name, falling back to "there".
func (p Payload) DisplayName() string {
	name := strings.Join(strings.Fields(p.RecipientDisplayName), " ")
	if name == "" {
		return "there"
	}
	return titleCaser.String(strings.ToLower(name))
}

// Subject is the one-line summary used as email subject and ntfy title.
// Control characters are folded to spaces so record fields cannot start a
// new header line.
func (p Payload) Subject() string {
	return headerValue(fmt.Sprintf("OAP - %s %s: %s", p.StageLabel, p.NewStatus, p.RequestID))
}

// headerValue replaces control characters, CR and LF included, with spaces
// and collapses the resulting runs.
func headerValue(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Body is the plain-text message shared by all transports.
func (p Payload) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", p.DisplayName())
	fmt.Fprintf(&b, "%s for request %s", p.StageLabel, p.RequestID)
	if sut := strings.TrimSpace(p.SUT); sut != "" {
		fmt.Fprintf(&b, " on SUT %s", sut)
	}
	fmt.Fprintf(&b, " is now %s.\n", p.NewStatus)
	if link := strings.TrimSpace(p.ResultLink); link != "" {
		fmt.Fprintf(&b, "Result: %s\n", link)
	}
	return b.String()
}

func (p Payload) tags() []string {
	tags := []string{"oap", strings.ToLower(strings.ReplaceAll(p.StageLabel, " ", "-"))}
	switch p.NewStatus {
	case "PASS":
		tags = append(tags, "white_check_mark")
	case "FAIL":
		tags = append(tags, "x")
	}
	return tags
}

func (p Payload) priority() string {
	if p.NewStatus == "FAIL" || p.NewStatus == "Blocked" {
		return "high"
	}
	return ""
}
