package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublisher(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Publish(ctx, "otp.challenge.verified", OutgoingMessage{Body: []byte(`{"a":1}`)})
	require.NoError(t, err)

	_, err = m.Publish(ctx, "", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrDestinationRequired)

	got := m.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, "otp.challenge.verified", got[0].Destination)

	require.NoError(t, m.Close())
	_, err = m.Publish(ctx, "x", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewFromDriver(t *testing.T) {
	ctx := context.Background()

	p, err := NewFromDriver(ctx, "", FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, p)

	p, err = NewFromDriver(ctx, "MEMORY", FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, p)

	_, err = NewFromDriver(ctx, "rabbit", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver(ctx, DriverKafka, FactoryOptions{})
	assert.ErrorIs(t, err, ErrKafkaBrokersRequired)

	_, err = NewFromDriver(ctx, DriverNATS, FactoryOptions{})
	assert.ErrorIs(t, err, ErrNATSURLRequired)

	_, err = NewFromDriver(ctx, DriverNSQ, FactoryOptions{})
	assert.ErrorIs(t, err, ErrNSQProducerAddrRequired)

	_, err = NewFromDriver(ctx, DriverGooglePubSub, FactoryOptions{})
	assert.ErrorIs(t, err, ErrPubSubProjectIDRequired)
}

func TestKafkaPublishAfterClose(t *testing.T) {
	k, err := NewKafka(KafkaConfig{Brokers: []string{"127.0.0.1:1"}})
	require.NoError(t, err)
	require.NoError(t, k.Close())

	_, err = k.Publish(context.Background(), "topic", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrClosed)
}
