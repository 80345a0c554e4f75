package notifier

import (
	"context"
	"testing"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"
)

func emailMessage() Message {
	return Message{Contact: "jane@example.com", Kind: entity.ContactKindEmail, Code: "123456", Purpose: "login", Subject: "Code", Body: "Your code is 123456"}
}

func TestSMSLocal(t *testing.T) {
	defer gock.OffAll()

	n, err := NewSMSLocal(entity.NotifierSetting{Credentials: map[string]string{
		"api_key":  "test-api-key",
		"base_url": "https://sms.test/dev/bulkV2",
		"sender":   "PASSCD",
	}})
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		gock.New("https://sms.test").
			Post("/dev/bulkV2").
			MatchHeader("Authorization", "test-api-key").
			MatchType("json").
			JSON(map[string]string{"route": "otp", "numbers": "910000000001", "variables": "123456", "sender_id": "PASSCD"}).
			Reply(200).
			JSON(map[string]any{"return": true})

		require.NoError(t, n.Send(context.Background(), phoneMessage()))
		assert.True(t, gock.IsDone())
	})

	t.Run("GatewayError", func(t *testing.T) {
		gock.New("https://sms.test").Post("/dev/bulkV2").Reply(500).BodyString("oops")

		err := n.Send(context.Background(), phoneMessage())
		assert.ErrorContains(t, err, "status=500")
	})

	t.Run("EmailIsUnsupported", func(t *testing.T) {
		assert.ErrorIs(t, n.Send(context.Background(), emailMessage()), ErrUnsupportedContact)
	})

	t.Run("MissingKeyIsNotConfigured", func(t *testing.T) {
		n, err := NewSMSLocal(entity.NotifierSetting{})
		require.NoError(t, err)
		assert.ErrorIs(t, n.Send(context.Background(), phoneMessage()), ErrNotConfigured)
	})
}

func TestSendGrid(t *testing.T) {
	defer gock.OffAll()

	n, err := NewSendGrid(entity.NotifierSetting{Credentials: map[string]string{
		"api_key":  "SG.key",
		"from":     "no-reply@example.com",
		"base_url": "https://sendgrid.test",
		"sandbox":  "true",
	}})
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		gock.New("https://sendgrid.test").
			Post("/v3/mail/send").
			MatchHeader("Authorization", "Bearer SG.key").
			Reply(202)

		require.NoError(t, n.Send(context.Background(), emailMessage()))
		assert.True(t, gock.IsDone())
	})

	t.Run("Rejected", func(t *testing.T) {
		gock.New("https://sendgrid.test").Post("/v3/mail/send").Reply(401).BodyString(`{"errors":[]}`)

		err := n.Send(context.Background(), emailMessage())
		assert.ErrorContains(t, err, "status=401")
	})

	t.Run("PhoneIsUnsupported", func(t *testing.T) {
		assert.ErrorIs(t, n.Send(context.Background(), phoneMessage()), ErrUnsupportedContact)
	})

	t.Run("BadSandboxFlag", func(t *testing.T) {
		_, err := NewSendGrid(entity.NotifierSetting{Credentials: map[string]string{"api_key": "k", "from": "a@b.co", "sandbox": "maybe"}})
		assert.Error(t, err)
	})
}

func TestTwilio(t *testing.T) {
	defer gock.OffAll()

	n, err := NewTwilio(entity.NotifierSetting{Credentials: map[string]string{
		"account_sid": "AC123",
		"auth_token":  "token",
		"from":        "+15005550006",
	}})
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		gock.New("https://api.twilio.com").
			Post("/2010-04-01/Accounts/AC123/Messages.json").
			Reply(201).
			JSON(map[string]any{"sid": "SM1", "status": "queued"})

		require.NoError(t, n.Send(context.Background(), phoneMessage()))
		assert.True(t, gock.IsDone())
	})

	t.Run("CarrierError", func(t *testing.T) {
		gock.New("https://api.twilio.com").
			Post("/2010-04-01/Accounts/AC123/Messages.json").
			Reply(400).
			JSON(map[string]any{"code": 21211, "message": "invalid to", "status": 400})

		assert.Error(t, n.Send(context.Background(), phoneMessage()))
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		n, err := NewTwilio(entity.NotifierSetting{Credentials: map[string]string{"account_sid": "AC123"}})
		require.NoError(t, err)
		assert.ErrorIs(t, n.Send(context.Background(), phoneMessage()), ErrNotConfigured)
	})
}

func TestSMTPNotifier(t *testing.T) {
	n, err := NewSMTP(entity.NotifierSetting{})
	require.NoError(t, err)
	assert.ErrorIs(t, n.Send(context.Background(), emailMessage()), ErrNotConfigured)

	_, err = NewSMTP(entity.NotifierSetting{Credentials: map[string]string{"host": "smtp.test", "port": "x", "from": "a@b.co"}})
	assert.Error(t, err)

	n, err = NewSMTP(entity.NotifierSetting{Credentials: map[string]string{"host": "smtp.test", "port": "2525", "from": "a@b.co"}})
	require.NoError(t, err)
	assert.ErrorIs(t, n.Send(context.Background(), phoneMessage()), ErrUnsupportedContact)
}
