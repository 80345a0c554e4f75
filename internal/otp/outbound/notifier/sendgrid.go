package notifier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samber/lo"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/spf13/cast"
)

const sendGridHost = "https://api.sendgrid.com"

// SendGrid sends email through the SendGrid v3 mail API.
type SendGrid struct {
	client  *sendgrid.Client
	from    *sgmail.Email
	sandbox bool
}

// NewSendGrid reads api_key, from and the optional from_name, sandbox and base_url.
func NewSendGrid(setting entity.NotifierSetting) (Notifier, error) {
	apiKey := setting.Credentials["api_key"]
	from := setting.Credentials["from"]
	if apiKey == "" || from == "" {
		return unconfigured(NameSendGrid), nil
	}

	host := lo.CoalesceOrEmpty(setting.Credentials["base_url"], sendGridHost)

	sandbox, err := cast.ToBoolE(lo.CoalesceOrEmpty(setting.Credentials["sandbox"], "false"))
	if err != nil {
		return nil, fmt.Errorf("sendgrid sandbox flag: %w", err)
	}

	req := sendgrid.GetRequest(apiKey, "/v3/mail/send", host)
	req.Method = http.MethodPost

	return &SendGrid{
		client:  &sendgrid.Client{Request: req},
		from:    sgmail.NewEmail(setting.Credentials["from_name"], from),
		sandbox: sandbox,
	}, nil
}

func (s *SendGrid) Name() string { return NameSendGrid }

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if err := requireKind(msg, entity.ContactKindEmail); err != nil {
		return err
	}

	email := sgmail.NewSingleEmail(s.from, msg.Subject, sgmail.NewEmail("", msg.Contact), msg.Body, "")
	if s.sandbox {
		ms := sgmail.NewMailSettings()
		ms.SetSandboxMode(sgmail.NewSetting(true))
		email.MailSettings = ms
	}

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid send: status=%d body=%s", resp.StatusCode, resp.Body)
	}

	return nil
}
