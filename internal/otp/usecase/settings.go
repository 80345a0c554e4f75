package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/goerror"
	"github.com/shandysiswandi/passcode/internal/pkg/jwt"
)

const (
	defaultTTL         = 5 * time.Minute
	defaultCodeLength  = 6
	defaultMaxAttempts = 3
)

type notifierConfig struct {
	Name        string            `mapstructure:"name"`
	Enabled     bool              `mapstructure:"enabled"`
	Credentials map[string]string `mapstructure:"credentials"`
}

type templateConfig struct {
	Subject string `mapstructure:"subject"`
	Body    string `mapstructure:"body"`
}

// settingsRules carries the per-field limits checked on every new snapshot.
type settingsRules struct {
	TTL            time.Duration `json:"ttl" validate:"min=1s,max=24h"`
	CodeLength     int           `json:"code_length" validate:"min=4,max=10"`
	MaxAttempts    int           `json:"max_attempts" validate:"min=1,max=20"`
	ResendCooldown time.Duration `json:"resend_cooldown" validate:"min=0s,max=1h"`
	DemoMode       string        `json:"demo_mode" validate:"oneof=off all allowlist"`
	DemoCode       string        `json:"demo_code" validate:"omitempty,otpcode"`
	DemoContacts   []string      `json:"demo_contacts" validate:"dive,required"`
	NotifierNames  []string      `json:"notifiers" validate:"dive,required"`
}

// SettingsFromConfig builds a snapshot from the otp.* configuration tree.
func (s *Usecase) SettingsFromConfig() (entity.Settings, error) {
	mode, err := entity.ParseDemoMode(s.cfg.GetString("otp.demo.mode"))
	if err != nil {
		return entity.Settings{}, err
	}

	var notifiers []notifierConfig
	if err := s.cfg.Unmarshal("otp.notifiers", &notifiers); err != nil {
		return entity.Settings{}, err
	}

	var templates map[string]templateConfig
	if err := s.cfg.Unmarshal("otp.templates", &templates); err != nil {
		return entity.Settings{}, err
	}

	out := entity.Settings{
		Env: s.cfg.GetString("app.env"),
		Policy: entity.Policy{
			TTL:            orDefault(s.cfg.GetDuration("otp.policy.ttl"), defaultTTL),
			CodeLength:     orDefault(s.cfg.GetInt("otp.policy.code_length"), defaultCodeLength),
			MaxAttempts:    orDefault(s.cfg.GetInt("otp.policy.max_attempts"), defaultMaxAttempts),
			ResendCooldown: s.cfg.GetDuration("otp.policy.resend_cooldown"),
		},
		Demo: entity.Demo{
			Mode:     mode,
			Contacts: normalizeDemoContacts(s.cfg.GetArray("otp.demo.contacts")),
			Code:     s.cfg.GetString("otp.demo.code"),
		},
		Notifiers: lo.Map(notifiers, func(n notifierConfig, _ int) entity.NotifierSetting {
			return entity.NotifierSetting{Name: n.Name, Enabled: n.Enabled, Credentials: lo.Assign(n.Credentials)}
		}),
		Templates: lo.MapValues(templates, func(t templateConfig, _ string) entity.Template {
			return entity.Template{Subject: t.Subject, Body: t.Body}
		}),
	}

	return out, nil
}

func orDefault[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}

func normalizeDemoContacts(raw []string) []string {
	contacts := lo.Map(raw, func(c string, _ int) string { return entity.NormalizeContact(c).Value })
	return lo.Uniq(lo.Compact(contacts))
}

// ReloadSettings rebuilds the snapshot from configuration. It runs at start
// and after every config file change; the file wins over earlier admin
// updates.
func (s *Usecase) ReloadSettings(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "ReloadSettings")
	defer span.End()

	next, err := s.SettingsFromConfig()
	if err != nil {
		slog.ErrorContext(ctx, "failed to read otp settings from config", "error", err)
		return err
	}

	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	if err := s.applySettings(next); err != nil {
		slog.ErrorContext(ctx, "failed to apply otp settings from config", "error", err)
		return err
	}

	slog.InfoContext(ctx, "otp settings loaded", "demo_mode", next.Demo.Mode, "ttl", next.Policy.TTL.String())
	return nil
}

// applySettings validates next, rebuilds the notifier chain and publishes
// the snapshot. Callers hold settingsMu.
func (s *Usecase) applySettings(next entity.Settings) error {
	rules := settingsRules{
		TTL:            next.Policy.TTL,
		CodeLength:     next.Policy.CodeLength,
		MaxAttempts:    next.Policy.MaxAttempts,
		ResendCooldown: next.Policy.ResendCooldown,
		DemoMode:       string(next.Demo.Mode),
		DemoCode:       next.Demo.Code,
		DemoContacts:   next.Demo.Contacts,
		NotifierNames:  lo.Map(next.Notifiers, func(n entity.NotifierSetting, _ int) string { return n.Name }),
	}
	if err := s.validator.Validate(rules); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if err := next.CheckConsistency(); err != nil {
		return goerror.NewInvalidInput(nil, "settings", err.Error())
	}

	if err := s.notifier.Reload(next); err != nil {
		return goerror.NewInvalidInput(nil, "notifiers", err.Error())
	}

	s.settings.Store(&next)
	return nil
}

func (s *Usecase) currentSettings() entity.Settings {
	if cur := s.settings.Load(); cur != nil {
		return *cur
	}

	return entity.Settings{
		Policy: entity.Policy{TTL: defaultTTL, CodeLength: defaultCodeLength, MaxAttempts: defaultMaxAttempts},
		Demo:   entity.Demo{Mode: entity.DemoModeOff},
	}
}

func (s *Usecase) authorizeAdmin(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	if !clm.HasRole(jwt.RoleAdmin) {
		slog.WarnContext(ctx, "non admin tried to access otp settings", "subject", clm.Subject, "roles", clm.Roles)
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return clm, nil
}

// GetSettings returns the live snapshot with credentials masked.
func (s *Usecase) GetSettings(ctx context.Context) (*entity.Settings, error) {
	ctx, span := s.startSpan(ctx, "GetSettings")
	defer span.End()

	if _, err := s.authorizeAdmin(ctx); err != nil {
		return nil, err
	}

	out := s.currentSettings().Masked()
	return &out, nil
}

type NotifierPatch struct {
	Name    string
	Enabled bool
	// Credentials equal to entity.MaskedCredential keep the stored value.
	Credentials map[string]string
}

// UpdateSettingsInput is a partial update; nil fields are left unchanged.
// Notifiers, when set, replaces the whole ordered list.
type UpdateSettingsInput struct {
	TTL            *time.Duration
	CodeLength     *int
	MaxAttempts    *int
	ResendCooldown *time.Duration
	DemoMode       *string
	DemoContacts   []string
	DemoCode       *string
	Notifiers      []NotifierPatch
}

// UpdateSettings applies a patch atomically and returns the masked result.
// Challenges already issued keep the policy they were created with.
func (s *Usecase) UpdateSettings(ctx context.Context, in UpdateSettingsInput) (*entity.Settings, error) {
	ctx, span := s.startSpan(ctx, "UpdateSettings")
	defer span.End()

	clm, err := s.authorizeAdmin(ctx)
	if err != nil {
		return nil, err
	}

	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	cur := s.currentSettings()
	next := cur.Clone()

	if in.TTL != nil {
		next.Policy.TTL = *in.TTL
	}
	if in.CodeLength != nil {
		next.Policy.CodeLength = *in.CodeLength
	}
	if in.MaxAttempts != nil {
		next.Policy.MaxAttempts = *in.MaxAttempts
	}
	if in.ResendCooldown != nil {
		next.Policy.ResendCooldown = *in.ResendCooldown
	}
	if in.DemoMode != nil {
		mode, err := entity.ParseDemoMode(*in.DemoMode)
		if err != nil {
			return nil, goerror.NewInvalidInput(nil, "demo_mode", err.Error())
		}
		next.Demo.Mode = mode
	}
	if in.DemoContacts != nil {
		next.Demo.Contacts = normalizeDemoContacts(in.DemoContacts)
	}
	if in.DemoCode != nil {
		next.Demo.Code = *in.DemoCode
	}
	if in.Notifiers != nil {
		next.Notifiers = mergeNotifiers(cur.Notifiers, in.Notifiers)
	}

	if err := s.applySettings(next); err != nil {
		if _, ok := goerror.As(err); ok {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to apply otp settings", "error", err)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "otp settings updated",
		"subject", clm.Subject,
		"demo_mode", next.Demo.Mode,
		"notifiers", lo.Map(next.Notifiers, func(n entity.NotifierSetting, _ int) string { return n.Name }),
	)

	out := next.Masked()
	return &out, nil
}

func mergeNotifiers(cur []entity.NotifierSetting, patch []NotifierPatch) []entity.NotifierSetting {
	existing := lo.KeyBy(cur, func(n entity.NotifierSetting) string { return n.Name })

	return lo.Map(patch, func(p NotifierPatch, _ int) entity.NotifierSetting {
		creds := make(map[string]string, len(p.Credentials))
		for k, v := range p.Credentials {
			if v == entity.MaskedCredential {
				v = existing[p.Name].Credentials[k]
			}
			creds[k] = v
		}

		if p.Credentials == nil {
			creds = lo.Assign(existing[p.Name].Credentials)
		}

		return entity.NotifierSetting{Name: p.Name, Enabled: p.Enabled, Credentials: creds}
	})
}

// demoCodeMatches compares without leaking timing.
func demoCodeMatches(d entity.Demo, contact, code string) bool {
	return d.Applies(contact) && d.Code != "" && constantTimeEqual(d.Code, code)
}
