package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

var (
	// ErrSMTPHostPortRequired is returned when Host/Port are missing.
	ErrSMTPHostPortRequired = errors.New("smtp host and port are required")
	// ErrSMTPNoRecipients is returned when To is empty.
	ErrSMTPNoRecipients = errors.New("no recipients provided")
	// ErrSMTPNoSender is returned when both Message.From and the configured default From are empty.
	ErrSMTPNoSender = errors.New("no sender provided")
)

// SMTP is a Mail implementation backed by gomail. Every Send opens its own
// connection.
type SMTP struct {
	defaultFrom string
	clock       func() time.Time
	dial        func() (gomail.SendCloser, error)
}

// SMTPConfig configures the SMTP implementation.
type SMTPConfig struct {
	// Host is the SMTP server hostname.
	Host string
	// Port is the SMTP server port. Port 465 uses implicit TLS.
	Port int
	// Username is the SMTP authentication username.
	Username string
	// Password is the SMTP authentication password.
	Password string
	// From is the default sender when Message.From is empty.
	From string
	// InsecureSkipVerify disables certificate checks for local relays.
	InsecureSkipVerify bool
}

// NewSMTP constructs an SMTP mail sender.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.InsecureSkipVerify {
		//nolint:gosec // opt-in for local relays
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: cfg.Host}
	}

	return &SMTP{
		defaultFrom: cfg.From,
		clock:       time.Now,
		dial:        d.Dial,
	}, nil
}

// Send delivers a message over SMTP. gomail has no context support, so ctx
// is only checked before dialing.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(msg.To) == 0 {
		return ErrSMTPNoRecipients
	}

	from := msg.From
	if from == "" {
		from = s.defaultFrom
	}
	if from == "" {
		return ErrSMTPNoSender
	}

	m := gomail.NewMessage()
	m.SetHeader("From", headerValue(from))
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", headerValue(msg.Subject))
	m.SetDateHeader("Date", s.clock())
	m.SetBody("text/plain", msg.TextBody)

	conn, err := s.dial()
	if err != nil {
		return err
	}

	if err := gomail.Send(conn, m); err != nil {
		_ = conn.Close()
		return err
	}

	return conn.Close()
}

// Close implements io.Closer for interface compatibility.
func (s *SMTP) Close() error {
	return nil
}

// headerValue drops line breaks so values cannot inject extra headers.
func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(v)
}
