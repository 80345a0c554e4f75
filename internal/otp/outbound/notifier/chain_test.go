package notifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	name  string
	errs  []error
	calls atomic.Int32
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(context.Context, Message) error {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) {
		return f.errs[n]
	}
	return nil
}

var fastRetry = RetryConfig{Attempts: 2, Base: time.Millisecond, Cap: time.Millisecond}

func phoneMessage() Message {
	return Message{Contact: "+910000000001", Kind: entity.ContactKindPhone, Code: "123456", Purpose: "login"}
}

func TestChain_Send(t *testing.T) {
	boom := errors.New("carrier down")

	t.Run("FirstSuccessShortCircuits", func(t *testing.T) {
		// Arrange
		primary := &fakeNotifier{name: "primary"}
		secondary := &fakeNotifier{name: "secondary"}
		chain := NewChain(fastRetry, primary, secondary)

		// Act
		channel, err := chain.Send(context.Background(), phoneMessage())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "primary", channel)
		assert.Equal(t, int32(0), secondary.calls.Load())
	})

	t.Run("NotConfiguredIsSkippedWithoutRetry", func(t *testing.T) {
		unconf := &fakeNotifier{name: "unconf", errs: []error{ErrNotConfigured, ErrNotConfigured, ErrNotConfigured}}
		backup := &fakeNotifier{name: "backup"}
		chain := NewChain(fastRetry, unconf, backup)

		channel, err := chain.Send(context.Background(), phoneMessage())

		require.NoError(t, err)
		assert.Equal(t, "backup", channel)
		assert.Equal(t, int32(1), unconf.calls.Load())
	})

	t.Run("TransientFailureIsRetried", func(t *testing.T) {
		flaky := &fakeNotifier{name: "flaky", errs: []error{boom, boom}}
		chain := NewChain(fastRetry, flaky)

		channel, err := chain.Send(context.Background(), phoneMessage())

		require.NoError(t, err)
		assert.Equal(t, "flaky", channel)
		assert.Equal(t, int32(3), flaky.calls.Load())
	})

	t.Run("ExhaustedRetriesFallBackToNext", func(t *testing.T) {
		dead := &fakeNotifier{name: "dead", errs: []error{boom, boom, boom}}
		email := &fakeNotifier{name: "email", errs: []error{ErrUnsupportedContact}}
		console := &fakeNotifier{name: "console"}
		chain := NewChain(fastRetry, dead, email, console)

		channel, err := chain.Send(context.Background(), phoneMessage())

		require.NoError(t, err)
		assert.Equal(t, "console", channel)
		assert.Equal(t, int32(3), dead.calls.Load())
	})

	t.Run("TotalFailureJoinsErrors", func(t *testing.T) {
		dead := &fakeNotifier{name: "dead", errs: []error{boom, boom, boom}}
		unconf := &fakeNotifier{name: "unconf", errs: []error{ErrNotConfigured}}
		chain := NewChain(fastRetry, dead, unconf)

		channel, err := chain.Send(context.Background(), phoneMessage())

		assert.Empty(t, channel)
		assert.ErrorIs(t, err, ErrDeliveryFailed)
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("EmptyChainFails", func(t *testing.T) {
		_, err := NewChain(fastRetry).Send(context.Background(), phoneMessage())
		assert.ErrorIs(t, err, ErrDeliveryFailed)
	})
}

func TestRenderer(t *testing.T) {
	r, err := NewRenderer(map[string]entity.Template{
		"login": {Subject: "Login code", Body: "{{.Code}} is your {{.Purpose}} code, valid {{.Minutes}} min"},
	})
	require.NoError(t, err)

	msg := Message{Code: "123456", Purpose: "login", ExpiresIn: 90 * time.Second}
	require.NoError(t, r.Render(&msg))
	assert.Equal(t, "Login code", msg.Subject)
	assert.Equal(t, "123456 is your login code, valid 2 min", msg.Body)

	msg = Message{Code: "654321", Purpose: "signup", ExpiresIn: 5 * time.Minute}
	require.NoError(t, r.Render(&msg))
	assert.Equal(t, defaultSubject, msg.Subject)
	assert.Equal(t, "Your verification code is 654321. It expires in 5 minutes.", msg.Body)

	_, err = NewRenderer(map[string]entity.Template{"bad": {Body: "{{.Code"}})
	assert.Error(t, err)

	_, err = NewRenderer(map[string]entity.Template{"login": {Body: "Use {{.Foo}}"}})
	assert.ErrorContains(t, err, "login template")

	_, err = NewRenderer(map[string]entity.Template{"login": {Subject: "{{.Code.Missing}}"}})
	assert.ErrorContains(t, err, "render subject")
}
