package notifier

import (
	"context"
	"fmt"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	twilio "github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Twilio sends SMS through the Twilio Messages API.
type Twilio struct {
	client *twilio.RestClient
	from   string
}

// NewTwilio reads account_sid, auth_token and from.
func NewTwilio(setting entity.NotifierSetting) (Notifier, error) {
	sid := setting.Credentials["account_sid"]
	token := setting.Credentials["auth_token"]
	from := setting.Credentials["from"]

	if sid == "" || token == "" || from == "" {
		return unconfigured(NameTwilio), nil
	}

	return &Twilio{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: sid,
			Password: token,
		}),
		from: from,
	}, nil
}

func (t *Twilio) Name() string { return NameTwilio }

func (t *Twilio) Send(ctx context.Context, msg Message) error {
	if err := requireKind(msg, entity.ContactKindPhone); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.Contact)
	params.SetFrom(t.from)
	params.SetBody(msg.Body)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}

	return nil
}
