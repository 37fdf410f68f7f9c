package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/taskhub/taskhub/internal/model"
)

// Message is a composed notification ready for delivery.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer is the delivery sink for notification messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError wraps a mail sink failure. It is always caught and
// logged at the dispatcher boundary, never returned to the caller of a
// task mutation.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivering notification: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// SMTPMailer sends messages through an SMTP relay.
type SMTPMailer struct {
	cfg      model.SMTPConfig
	password string
}

// NewSMTPMailer creates a mailer for the given SMTP settings. The
// password may be empty for relays that accept unauthenticated mail.
func NewSMTPMailer(cfg model.SMTPConfig, password string) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, password: password}
}

// Send composes a MIME message with text and HTML alternatives and
// submits it to the configured relay.
func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	body, err := composeMIME(m.cfg.From, msg)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, msg.To, body); err != nil {
		return fmt.Errorf("sending via %s: %w", addr, err)
	}
	return nil
}

// composeMIME builds the raw RFC 5322 message bytes.
func composeMIME(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(msg.Subject)
	h.SetAddressList("From", []*mail.Address{{Address: from}})

	to := make([]*mail.Address, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("creating inline writer: %w", err)
	}

	var th mail.InlineHeader
	th.Set("Content-Type", "text/plain; charset=utf-8")
	pw, err := iw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("creating text part: %w", err)
	}
	io.WriteString(pw, msg.Text)
	pw.Close()

	if msg.HTML != "" {
		var hh mail.InlineHeader
		hh.Set("Content-Type", "text/html; charset=utf-8")
		pw, err = iw.CreatePart(hh)
		if err != nil {
			return nil, fmt.Errorf("creating html part: %w", err)
		}
		io.WriteString(pw, msg.HTML)
		pw.Close()
	}

	iw.Close()
	mw.Close()

	return buf.Bytes(), nil
}

// LogMailer writes messages to the log instead of delivering them.
// Used when SMTP is not configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mail (not sent, smtp unconfigured)",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
