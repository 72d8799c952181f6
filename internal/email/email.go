package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/resend/resend-go/v2"
)

var ErrInvalidFrom = errors.New(`sender must be "addr@domain" or "Name <addr@domain>"`)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender logs emails instead of sending them. Used in ENV=local, when
// EMAIL_DISABLED=true, or when no provider key is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "email")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "email delivery disabled", "to", to, "subject", subject, "body", body)
	return nil
}

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

type Options struct {
	Env      string
	Disabled bool
	APIKey   string
	From     string
}

// NewSender picks the delivery backend. A ResendSender is only returned when
// delivery is enabled outside local and the sender address is usable.
func NewSender(opts Options, logger *slog.Logger) (Sender, error) {
	if opts.Env == "local" || opts.Disabled {
		return NewLogSender(logger), nil
	}
	if opts.APIKey == "" {
		logger.Warn("RESEND_API_KEY not set, emails will only be logged")
		return NewLogSender(logger), nil
	}

	from, err := NormalizeFrom(opts.From)
	if err != nil {
		return nil, err
	}
	return &ResendSender{
		client: resend.NewClient(opts.APIKey),
		from:   from,
	}, nil
}

// NormalizeFrom strips surrounding quotes and collapses whitespace, then
// checks the value is a bare address or "Name <address>".
func NormalizeFrom(raw string) (string, error) {
	from := strings.TrimSpace(raw)
	from = strings.Trim(from, `"'`)
	from = strings.Join(strings.Fields(from), " ")
	if from == "" {
		return "", ErrInvalidFrom
	}

	addr, err := mail.ParseAddress(from)
	if err != nil || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrom, raw)
	}
	return from, nil
}
