package mq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/otp/usecase"
	"github.com/shandysiswandi/passcode/internal/pkg/instrument"
	"github.com/shandysiswandi/passcode/internal/pkg/messaging"
	"github.com/shandysiswandi/passcode/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishChallengeIssued(t *testing.T) {
	client := messaging.NewMemory()
	m := NewMessaging(client, instrument.NewNoop())
	ctx := instrument.SetCorrelationID(context.Background(), "corr-1")
	expires := time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC)

	err := m.PublishChallengeIssued(ctx, usecase.ChallengeIssuedEvent{
		ChallengeID: 42,
		Reference:   "ref-1",
		Contact:     "+14155550100",
		Kind:        entity.ContactKindPhone,
		Purpose:     "login",
		Channel:     "twilio",
		ExpiresAt:   expires,
	})
	require.NoError(t, err)

	msgs := client.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, event.ChallengeIssuedDestination, msgs[0].Destination)
	assert.Equal(t, []byte("+14155550100"), msgs[0].Message.Key)
	assert.Equal(t, "corr-1", msgs[0].Message.Headers[keyOfCorrelationID])

	var got event.ChallengeIssuedMessage
	require.NoError(t, json.Unmarshal(msgs[0].Message.Body, &got))
	assert.Equal(t, int64(42), got.ChallengeID)
	assert.Equal(t, "phone", got.ContactKind)
	assert.Equal(t, "twilio", got.Channel)
	assert.Equal(t, expires.Unix(), got.ExpiresAt)
	assert.NotContains(t, string(msgs[0].Message.Body), "code")
}

func TestPublishChallengeVerified(t *testing.T) {
	client := messaging.NewMemory()
	m := NewMessaging(client, instrument.NewNoop())

	err := m.PublishChallengeVerified(context.Background(), usecase.ChallengeVerifiedEvent{
		Reference:  "ref-2",
		Contact:    "user@example.com",
		Kind:       entity.ContactKindEmail,
		Purpose:    "verification",
		Demo:       true,
		VerifiedAt: time.Unix(1700000000, 0),
	})
	require.NoError(t, err)

	msgs := client.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, event.ChallengeVerifiedDestination, msgs[0].Destination)

	var got event.ChallengeVerifiedMessage
	require.NoError(t, json.Unmarshal(msgs[0].Message.Body, &got))
	assert.True(t, got.Demo)
	assert.Equal(t, int64(1700000000), got.VerifiedAt)
}

func TestPublishClosed(t *testing.T) {
	client := messaging.NewMemory()
	require.NoError(t, client.Close())
	m := NewMessaging(client, instrument.NewNoop())

	err := m.PublishChallengeVerified(context.Background(), usecase.ChallengeVerifiedEvent{Contact: "user@example.com"})
	assert.ErrorIs(t, err, messaging.ErrClosed)
}
