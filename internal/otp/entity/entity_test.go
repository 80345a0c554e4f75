package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Contact
	}{
		{name: "Email", raw: "  John.Doe@Example.COM ", want: Contact{Value: "john.doe@example.com", Kind: ContactKindEmail}},
		{name: "PhoneWithSeparators", raw: "+1 (415) 555-01.23", want: Contact{Value: "+14155550123", Kind: ContactKindPhone}},
		{name: "PlainPhone", raw: "+910000000001", want: Contact{Value: "+910000000001", Kind: ContactKindPhone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeContact(tt.raw))
		})
	}
}

func TestMaskContact(t *testing.T) {
	assert.Equal(t, "+91******0001", MaskContact("+910000000001"))
	assert.Equal(t, "j***@example.com", MaskContact("john@example.com"))
	assert.Equal(t, "***@example.com", MaskContact("@example.com"))
	assert.Equal(t, "****", MaskContact("1234"))
}

func TestChallenge(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Challenge{ExpiresAt: now.Add(90 * time.Second), Attempts: 1, MaxAttempts: 3}

	assert.False(t, c.IsExpired(now))
	assert.False(t, c.IsExpired(c.ExpiresAt))
	assert.True(t, c.IsExpired(c.ExpiresAt.Add(time.Nanosecond)))
	assert.Equal(t, int64(90), c.ExpiresIn(now))
	assert.Equal(t, int64(0), c.ExpiresIn(now.Add(time.Hour)))
	assert.Equal(t, 2, c.AttemptsRemaining())

	c.Attempts = 5
	assert.True(t, c.IsExhausted())
	assert.Equal(t, 0, c.AttemptsRemaining())
}

func TestDemoApplies(t *testing.T) {
	assert.False(t, Demo{Mode: DemoModeOff}.Applies("+910000000001"))
	assert.True(t, Demo{Mode: DemoModeAll}.Applies("+910000000001"))

	d := Demo{Mode: DemoModeAllowlist, Contacts: []string{"+910000000001"}}
	assert.True(t, d.Applies("+910000000001"))
	assert.False(t, d.Applies("+910000000002"))
}

func TestParseDemoMode(t *testing.T) {
	m, err := ParseDemoMode("")
	assert.NoError(t, err)
	assert.Equal(t, DemoModeOff, m)

	m, err = ParseDemoMode("allowlist")
	assert.NoError(t, err)
	assert.Equal(t, DemoModeAllowlist, m)

	_, err = ParseDemoMode("sometimes")
	assert.ErrorIs(t, err, ErrDemoModeUnknown)
}

func TestSettings(t *testing.T) {
	s := Settings{
		Env:    "production",
		Policy: Policy{CodeLength: 6},
		Demo:   Demo{Mode: DemoModeAllowlist, Contacts: []string{"a@b.co"}, Code: "123456"},
		Notifiers: []NotifierSetting{
			{Name: "twilio", Enabled: true, Credentials: map[string]string{"auth_token": "secret", "from": ""}},
		},
		Templates: map[string]Template{DefaultTemplate: {Body: "default"}, "login": {Body: "login"}},
	}

	t.Run("MaskedDoesNotTouchOriginal", func(t *testing.T) {
		m := s.Masked()
		assert.Equal(t, MaskedCredential, m.Notifiers[0].Credentials["auth_token"])
		assert.Empty(t, m.Notifiers[0].Credentials["from"])
		assert.Equal(t, "secret", s.Notifiers[0].Credentials["auth_token"])
	})

	t.Run("TemplateFallback", func(t *testing.T) {
		assert.Equal(t, "login", s.Template("login").Body)
		assert.Equal(t, "default", s.Template("signup").Body)
	})

	t.Run("Consistency", func(t *testing.T) {
		assert.NoError(t, s.CheckConsistency())

		all := s.Clone()
		all.Demo.Mode = DemoModeAll
		assert.ErrorIs(t, all.CheckConsistency(), ErrDemoAllInProduction)

		noCode := s.Clone()
		noCode.Demo.Code = ""
		assert.ErrorIs(t, noCode.CheckConsistency(), ErrDemoCodeRequired)

		dup := s.Clone()
		dup.Notifiers = append(dup.Notifiers, NotifierSetting{Name: "twilio"})
		assert.ErrorIs(t, dup.CheckConsistency(), ErrNotifierNameDuplicate)

		console := s.Clone()
		console.Notifiers = append(console.Notifiers, NotifierSetting{Name: "console", Enabled: true})
		assert.ErrorIs(t, console.CheckConsistency(), ErrConsoleInProduction)

		console.Notifiers[1].Enabled = false
		assert.NoError(t, console.CheckConsistency())

		console.Notifiers[1].Enabled = true
		console.Env = "development"
		assert.NoError(t, console.CheckConsistency())
	})
}
