package inbound

import (
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/otp/usecase"
	"github.com/shandysiswandi/passcode/internal/pkg/goerror"
)

type ChallengeRequest struct {
	Contact string `json:"contact"`
	Purpose string `json:"purpose"`
}

type ChallengeResponse struct {
	Success          bool   `json:"success"`
	Reference        string `json:"reference"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
	Channel          string `json:"channel"`
	DemoMode         bool   `json:"demo_mode"`
	Code             string `json:"code,omitempty"`
}

func (ChallengeResponse) Message() string {
	return "Verification code has been sent."
}

func newChallengeResponse(out *usecase.RequestChallengeOutput) ChallengeResponse {
	return ChallengeResponse{
		Success:          true,
		Reference:        out.Reference,
		ExpiresInSeconds: out.ExpiresIn,
		Channel:          out.Channel,
		DemoMode:         out.DemoMode,
		Code:             out.Code,
	}
}

type VerifyRequest struct {
	Contact   string `json:"contact"`
	Code      string `json:"code"`
	Reference string `json:"reference"`
}

type VerifyResponse struct {
	Verified          bool   `json:"verified"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
	Reason            string `json:"reason,omitempty"`
	// ResendRequired tells the client to request a new code instead of retrying.
	ResendRequired bool `json:"resend_required,omitempty"`
}

func (r VerifyResponse) Message() string {
	switch {
	case r.Verified:
		return "Verification code is valid."
	case r.ResendRequired:
		return "Verification code is no longer usable, please request a new one."
	default:
		return "Verification code is not valid."
	}
}

type StatusResponse struct {
	Exists            bool  `json:"exists"`
	ExpiresInSeconds  int64 `json:"expires_in_seconds"`
	AttemptsRemaining int   `json:"attempts_remaining"`
}

type PolicyModel struct {
	TTL            string `json:"ttl"`
	CodeLength     int    `json:"code_length"`
	MaxAttempts    int    `json:"max_attempts"`
	ResendCooldown string `json:"resend_cooldown"`
}

type DemoModel struct {
	Mode     string   `json:"mode"`
	Contacts []string `json:"contacts"`
	Code     string   `json:"code"`
}

type NotifierModel struct {
	Name        string            `json:"name"`
	Enabled     bool              `json:"enabled"`
	Credentials map[string]string `json:"credentials,omitempty"`
}

type SettingsResponse struct {
	Env       string          `json:"env"`
	Policy    PolicyModel     `json:"policy"`
	Demo      DemoModel       `json:"demo"`
	Notifiers []NotifierModel `json:"notifiers"`
}

func newSettingsResponse(s *entity.Settings) SettingsResponse {
	return SettingsResponse{
		Env: s.Env,
		Policy: PolicyModel{
			TTL:            s.Policy.TTL.String(),
			CodeLength:     s.Policy.CodeLength,
			MaxAttempts:    s.Policy.MaxAttempts,
			ResendCooldown: s.Policy.ResendCooldown.String(),
		},
		Demo: DemoModel{
			Mode:     string(s.Demo.Mode),
			Contacts: lo.Ternary(s.Demo.Contacts == nil, []string{}, s.Demo.Contacts),
			Code:     s.Demo.Code,
		},
		Notifiers: lo.Map(s.Notifiers, func(n entity.NotifierSetting, _ int) NotifierModel {
			return NotifierModel{Name: n.Name, Enabled: n.Enabled, Credentials: n.Credentials}
		}),
	}
}

type PolicyPatch struct {
	TTL            *string `json:"ttl"`
	CodeLength     *int    `json:"code_length"`
	MaxAttempts    *int    `json:"max_attempts"`
	ResendCooldown *string `json:"resend_cooldown"`
}

type DemoPatch struct {
	Mode     *string  `json:"mode"`
	Contacts []string `json:"contacts"`
	Code     *string  `json:"code"`
}

// SettingsPatchRequest changes only the fields present. A notifiers list,
// when present, replaces the configured chain in order.
type SettingsPatchRequest struct {
	Policy    *PolicyPatch    `json:"policy"`
	Demo      *DemoPatch      `json:"demo"`
	Notifiers []NotifierModel `json:"notifiers"`
}

func (p SettingsPatchRequest) toInput() (usecase.UpdateSettingsInput, error) {
	var in usecase.UpdateSettingsInput

	if p.Policy != nil {
		ttl, err := parseDuration("policy.ttl", p.Policy.TTL)
		if err != nil {
			return in, err
		}
		cooldown, err := parseDuration("policy.resend_cooldown", p.Policy.ResendCooldown)
		if err != nil {
			return in, err
		}

		in.TTL = ttl
		in.ResendCooldown = cooldown
		in.CodeLength = p.Policy.CodeLength
		in.MaxAttempts = p.Policy.MaxAttempts
	}

	if p.Demo != nil {
		in.DemoMode = p.Demo.Mode
		in.DemoContacts = p.Demo.Contacts
		in.DemoCode = p.Demo.Code
	}

	if p.Notifiers != nil {
		in.Notifiers = lo.Map(p.Notifiers, func(n NotifierModel, _ int) usecase.NotifierPatch {
			return usecase.NotifierPatch{Name: n.Name, Enabled: n.Enabled, Credentials: n.Credentials}
		})
	}

	return in, nil
}

func parseDuration(field string, v *string) (*time.Duration, error) {
	if v == nil {
		return nil, nil
	}

	d, err := time.ParseDuration(*v)
	if err != nil {
		return nil, goerror.NewInvalidInput(nil, field, "must be a duration such as 90s or 5m")
	}

	return &d, nil
}
