package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
)

const (
	NameTwilio   = "twilio"
	NameSMSLocal = "smslocal"
	NameSendGrid = "sendgrid"
	NameSMTP     = "smtp"
	NameConsole  = "console"
)

var (
	// ErrNotConfigured means the notifier lacks credentials. The chain skips it.
	ErrNotConfigured = errors.New("otp: notifier not configured")
	// ErrUnsupportedContact means the notifier cannot reach this kind of
	// contact. The chain skips it.
	ErrUnsupportedContact = errors.New("otp: notifier does not support contact kind")
	// ErrDeliveryFailed means no notifier in the chain delivered the message.
	ErrDeliveryFailed = errors.New("otp: delivery failed on every notifier")
	// ErrUnknownNotifier is returned by Reload for unregistered names.
	ErrUnknownNotifier = errors.New("otp: unknown notifier")
)

// Message is a rendered passcode notification.
type Message struct {
	Contact   string
	Kind      entity.ContactKind
	Code      string
	Purpose   string
	Subject   string
	Body      string
	ExpiresIn time.Duration
}

// Notifier delivers a message over one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

func isSkip(err error) bool {
	return errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrUnsupportedContact)
}

func requireKind(msg Message, kind entity.ContactKind) error {
	if msg.Kind != kind {
		return ErrUnsupportedContact
	}
	return nil
}
