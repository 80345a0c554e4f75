package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/passcode/internal/otp/entity"
)

const (
	smsLocalDefaultURL = "https://www.smslocal.com/dev/bulkV2"
	smsLocalTimeout    = 15 * time.Second
)

// SMSLocal sends the passcode through the SMS Local OTP route.
type SMSLocal struct {
	apiKey  string
	baseURL string
	sender  string
	client  *http.Client
}

// NewSMSLocal reads api_key and the optional base_url and sender.
func NewSMSLocal(setting entity.NotifierSetting) (Notifier, error) {
	apiKey := setting.Credentials["api_key"]
	if apiKey == "" {
		return unconfigured(NameSMSLocal), nil
	}

	return &SMSLocal{
		apiKey:  apiKey,
		baseURL: lo.CoalesceOrEmpty(setting.Credentials["base_url"], smsLocalDefaultURL),
		sender:  setting.Credentials["sender"],
		client:  &http.Client{Timeout: smsLocalTimeout},
	}, nil
}

func (s *SMSLocal) Name() string { return NameSMSLocal }

type smsLocalRequest struct {
	Route     string `json:"route"`
	Numbers   string `json:"numbers"`
	Variables string `json:"variables"`
	Sender    string `json:"sender_id,omitempty"`
}

// Send posts digits only; the gateway does not accept the leading plus.
func (s *SMSLocal) Send(ctx context.Context, msg Message) error {
	if err := requireKind(msg, entity.ContactKindPhone); err != nil {
		return err
	}

	raw, err := json.Marshal(smsLocalRequest{
		Route:     "otp",
		Numbers:   strings.TrimPrefix(msg.Contact, "+"),
		Variables: msg.Code,
		Sender:    s.sender,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("smslocal: request failed status=%d body=%s", resp.StatusCode, string(b))
	}

	return nil
}
