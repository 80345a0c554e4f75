package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  name: passcode
otp:
  policy:
    ttl: 5m
    max_attempts: 3
  demo:
    contacts: "+910000000001, demo@example.com"
    code: "123456"
  sweeper:
    interval_seconds: 60
  notifiers:
    - name: twilio
      enabled: true
    - name: console
      enabled: false
  templates:
    default: "Your code is {{.Code}}"
`

func TestViperFromBytes(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "passcode", cfg.GetString("app.name"))
	assert.Equal(t, 5*time.Minute, cfg.GetDuration("otp.policy.ttl"))
	assert.Equal(t, 3, cfg.GetInt("otp.policy.max_attempts"))
	assert.Equal(t, time.Minute, cfg.GetSecond("otp.sweeper.interval_seconds"))
	assert.Equal(t, []string{"+910000000001", "demo@example.com"}, cfg.GetArray("otp.demo.contacts"))
	assert.Nil(t, cfg.GetArray("otp.demo.missing"))
	assert.Equal(t, map[string]string{"default": "Your code is {{.Code}}"}, cfg.GetMap("otp.templates"))

	var notifiers []struct {
		Name    string `mapstructure:"name"`
		Enabled bool   `mapstructure:"enabled"`
	}
	require.NoError(t, cfg.Unmarshal("otp.notifiers", &notifiers))
	require.Len(t, notifiers, 2)
	assert.Equal(t, "twilio", notifiers[0].Name)
	assert.True(t, notifiers[0].Enabled)
	assert.False(t, notifiers[1].Enabled)
}

func TestViperReloadNotifies(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)

	calls := 0
	cfg.OnChange(func() { calls++ })

	require.NoError(t, cfg.Reload([]byte("otp:\n  policy:\n    max_attempts: 5\n")))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 5, cfg.GetInt("otp.policy.max_attempts"))
}

func TestViperFromBytesRequiresType(t *testing.T) {
	_, err := NewViperFromBytes(" ", nil)
	assert.Error(t, err)
}

func TestViperEnvOverride(t *testing.T) {
	t.Setenv("PASSCODE_APP_NAME", "from-env")

	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GetString("app.name"))
}
