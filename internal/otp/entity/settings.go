package entity

import (
	"errors"
	"slices"
	"time"

	"github.com/samber/lo"
)

// ChannelDemo is reported as the delivery channel when demo mode applied.
const ChannelDemo = "demo"

// DefaultTemplate is the template key used when a purpose has no template.
const DefaultTemplate = "default"

// MaskedCredential replaces every credential value returned to operators.
const MaskedCredential = "***"

var (
	ErrDemoModeUnknown       = errors.New("otp: demo mode is unknown")
	ErrDemoAllInProduction   = errors.New("otp: demo mode all is not allowed in production")
	ErrDemoCodeRequired      = errors.New("otp: demo code is required when demo mode is on")
	ErrNotifierNameDuplicate = errors.New("otp: notifier listed more than once")
	ErrConsoleInProduction   = errors.New("otp: console notifier is not allowed in production")
)

// consoleNotifier prints codes in clear text.
const consoleNotifier = "console"

// DemoMode controls which contacts bypass delivery.
type DemoMode string

const (
	DemoModeOff       DemoMode = "off"
	DemoModeAll       DemoMode = "all"
	DemoModeAllowlist DemoMode = "allowlist"
)

// ParseDemoMode maps a config value to a DemoMode; empty means off.
func ParseDemoMode(s string) (DemoMode, error) {
	switch DemoMode(s) {
	case "", DemoModeOff:
		return DemoModeOff, nil
	case DemoModeAll:
		return DemoModeAll, nil
	case DemoModeAllowlist:
		return DemoModeAllowlist, nil
	default:
		return DemoModeOff, ErrDemoModeUnknown
	}
}

// Policy bounds every challenge issued while it is in effect.
type Policy struct {
	TTL            time.Duration
	CodeLength     int
	MaxAttempts    int
	ResendCooldown time.Duration
}

// Demo is the bypass configuration.
type Demo struct {
	Mode     DemoMode
	Contacts []string
	Code     string
}

// Applies reports whether demo mode covers the normalized contact.
func (d Demo) Applies(contact string) bool {
	switch d.Mode {
	case DemoModeAll:
		return true
	case DemoModeAllowlist:
		return slices.Contains(d.Contacts, contact)
	default:
		return false
	}
}

// NotifierSetting configures one entry of the notifier chain.
type NotifierSetting struct {
	Name        string
	Enabled     bool
	Credentials map[string]string
}

// Template is a text/template pair rendered for one purpose.
type Template struct {
	Subject string
	Body    string
}

// Settings is an immutable snapshot of everything operators can change at
// runtime. Replace it as a whole; never mutate a published snapshot.
type Settings struct {
	Env       string
	Policy    Policy
	Demo      Demo
	Notifiers []NotifierSetting
	Templates map[string]Template
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.Demo.Contacts = slices.Clone(s.Demo.Contacts)
	out.Notifiers = lo.Map(s.Notifiers, func(n NotifierSetting, _ int) NotifierSetting {
		n.Credentials = lo.Assign(n.Credentials)
		return n
	})
	out.Templates = lo.Assign(s.Templates)
	return out
}

// Masked returns a copy safe to hand to operators.
func (s Settings) Masked() Settings {
	out := s.Clone()
	for i := range out.Notifiers {
		out.Notifiers[i].Credentials = lo.MapValues(out.Notifiers[i].Credentials, func(v, _ string) string {
			if v == "" {
				return ""
			}
			return MaskedCredential
		})
	}
	return out
}

// Template returns the template for purpose, falling back to DefaultTemplate.
func (s Settings) Template(purpose string) Template {
	if t, ok := s.Templates[purpose]; ok {
		return t
	}
	return s.Templates[DefaultTemplate]
}

// CheckConsistency validates cross-field rules that struct tags cannot express.
func (s Settings) CheckConsistency() error {
	if _, err := ParseDemoMode(string(s.Demo.Mode)); err != nil {
		return err
	}
	if s.Demo.Mode == DemoModeAll && s.Env == "production" {
		return ErrDemoAllInProduction
	}
	if s.Demo.Mode != DemoModeOff && s.Demo.Code == "" {
		return ErrDemoCodeRequired
	}

	if s.Env == "production" && lo.ContainsBy(s.Notifiers, func(n NotifierSetting) bool {
		return n.Enabled && n.Name == consoleNotifier
	}) {
		return ErrConsoleInProduction
	}

	names := lo.Map(s.Notifiers, func(n NotifierSetting, _ int) string { return n.Name })
	if len(lo.Uniq(names)) != len(names) {
		return ErrNotifierNameDuplicate
	}

	return nil
}
