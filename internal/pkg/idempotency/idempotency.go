// Package idempotency runs an operation at most once per key within a
// retention window. Concurrent or repeated calls with the same key are
// rejected while the first one is running or after it completed; a failed
// run releases the key so the caller may retry.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("idempotency: operation already in progress")
	ErrAlreadyCompleted  = errors.New("idempotency: operation already completed")
	ErrInvalidState      = errors.New("idempotency: invalid state")
)

type State string

const (
	StateNone       State = "none"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

func (s State) String() string {
	return string(s)
}

type Idempotency interface {
	// Exec runs fn unless key is in progress or completed. The key is kept
	// for ttl after a successful run.
	Exec(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

const defaultTTL = 10 * time.Minute

// Noop runs every call.
type Noop struct{}

func (Noop) Exec(ctx context.Context, _ string, _ time.Duration, fn func(context.Context) error) error {
	return fn(ctx)
}

type StateTracker struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(client redis.UniversalClient, prefix string) *StateTracker {
	if prefix == "" {
		prefix = "idempotency:"
	}
	return &StateTracker{client: client, prefix: prefix}
}

// Acquire tries to start an operation.
func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	fk := s.prefix + key

	acquired, err := s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
	if err != nil {
		return StateNone, err
	}
	if acquired {
		return StateNone, nil
	}

	result, err := s.client.Get(ctx, fk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Acquire(ctx, key, lockDuration)
	}
	if err != nil {
		return StateNone, err
	}

	switch result {
	case StateInProgress.String():
		return StateInProgress, nil
	case StateCompleted.String():
		return StateCompleted, nil
	default:
		return StateNone, fmt.Errorf("%w: %q", ErrInvalidState, result)
	}
}

func (s *StateTracker) Exec(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	state, err := s.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	if err := stateErr(state); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		if delErr := s.client.Del(context.WithoutCancel(ctx), s.prefix+key).Err(); delErr != nil {
			return errors.Join(err, delErr)
		}
		return err
	}

	return s.client.Set(context.WithoutCancel(ctx), s.prefix+key, StateCompleted.String(), ttl).Err()
}

func stateErr(s State) error {
	switch s {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	default:
		return nil
	}
}

type clocker interface {
	Now() time.Time
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// Memory is a single process tracker.
type Memory struct {
	clock clocker

	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemory(clock clocker) *Memory {
	return &Memory{clock: clock, entries: make(map[string]memoryEntry)}
}

func (m *Memory) acquire(key string, ttl time.Duration) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}

	if e, ok := m.entries[key]; ok {
		return e.state
	}

	m.entries[key] = memoryEntry{state: StateInProgress, expiresAt: now.Add(ttl)}
	return StateNone
}

func (m *Memory) Exec(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	if err := stateErr(m.acquire(key, ttl)); err != nil {
		return err
	}

	err := fn(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		delete(m.entries, key)
		return err
	}
	m.entries[key] = memoryEntry{state: StateCompleted, expiresAt: m.clock.Now().Add(ttl)}

	return nil
}
