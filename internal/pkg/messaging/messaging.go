package messaging

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

var (
	// ErrUnsupported is returned when a feature is not supported by the selected broker.
	ErrUnsupported = errors.New("pkgmessage: unsupported operation")
	// ErrClosed is returned when publishing on a closed publisher.
	ErrClosed = errors.New("pkgmessage: publisher is closed")
	// ErrDestinationRequired is returned when the topic or subject is empty.
	ErrDestinationRequired = errors.New("pkgmessage: destination is required")
)

// Publisher sends messages to a destination (topic or subject).
type Publisher interface {
	io.Closer
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte
	// Key is used by Kafka for partitioning and by Pub/Sub as ordering key.
	Key []byte
	// Headers travel as native headers or attributes where the broker has them.
	Headers map[string]string
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	// MessageID is the broker-assigned message ID, when the broker reports one.
	MessageID string
	// Topic is the destination used.
	Topic string
	// Timestamp is when the broker accepted the message.
	Timestamp time.Time
}

func validate(ctx context.Context, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	return nil
}

// Noop drops every message.
type Noop struct{}

// Publish accepts and discards msg.
func (Noop) Publish(_ context.Context, destination string, _ OutgoingMessage) (PublishResult, error) {
	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Close does nothing.
func (Noop) Close() error { return nil }

// Delivered is a message recorded by Memory.
type Delivered struct {
	Destination string
	Message     OutgoingMessage
}

// Memory records published messages in order.
type Memory struct {
	mu       sync.Mutex
	messages []Delivered
	closed   bool
}

// NewMemory returns an empty Memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish appends msg to the record.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := validate(ctx, destination); err != nil {
		return PublishResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return PublishResult{}, ErrClosed
	}
	m.messages = append(m.messages, Delivered{Destination: destination, Message: msg})

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Messages returns a copy of everything published so far.
func (m *Memory) Messages() []Delivered {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Delivered(nil), m.messages...)
}

// Close marks the publisher closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
