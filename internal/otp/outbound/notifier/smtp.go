package notifier

import (
	"context"
	"fmt"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/mail"
	"github.com/spf13/cast"
)

// SMTP sends plain-text email through pkg/mail.
type SMTP struct {
	mailer mail.Mail
}

// NewSMTP reads host, port, from and the optional username, password and
// insecure_skip_verify.
func NewSMTP(setting entity.NotifierSetting) (Notifier, error) {
	c := setting.Credentials
	if c["host"] == "" || c["port"] == "" || c["from"] == "" {
		return unconfigured(NameSMTP), nil
	}

	port, err := cast.ToIntE(c["port"])
	if err != nil {
		return nil, fmt.Errorf("smtp port: %w", err)
	}

	mailer, err := mail.NewSMTP(mail.SMTPConfig{
		Host:               c["host"],
		Port:               port,
		Username:           c["username"],
		Password:           c["password"],
		From:               c["from"],
		InsecureSkipVerify: cast.ToBool(c["insecure_skip_verify"]),
	})
	if err != nil {
		return nil, err
	}

	return &SMTP{mailer: mailer}, nil
}

func (s *SMTP) Name() string { return NameSMTP }

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := requireKind(msg, entity.ContactKindEmail); err != nil {
		return err
	}

	return s.mailer.Send(ctx, mail.Message{
		To:       []string{msg.Contact},
		Subject:  msg.Subject,
		TextBody: msg.Body,
	})
}
