// Package ratelimit counts events per key within a time window.
//
// Two backends exist: a Redis fixed window shared by every replica, and an
// in-process token bucket for single-node deployments.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/didip/tollbooth/v5"
	"github.com/didip/tollbooth/v5/limiter"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps backend failures.
var ErrUnavailable = errors.New("ratelimit: backend unavailable")

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether one more event for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Config is shared by both backends.
type Config struct {
	// Limit is the number of events allowed per Window. Zero disables limiting.
	Limit int
	// Window is the length of one counting window.
	Window time.Duration
	// Prefix namespaces the keys.
	Prefix string
}

// Noop allows everything.
type Noop struct{}

// Allow always allows.
func (Noop) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// Redis is a fixed window counter. The key is created with its expiry in the
// same transaction as the increment, so a counter never outlives its window.
type Redis struct {
	client redis.UniversalClient
	cfg    Config
}

// NewRedis returns a Redis backed limiter.
func NewRedis(client redis.UniversalClient, cfg Config) *Redis {
	return &Redis{client: client, cfg: cfg}
}

// Allow increments the window counter for key.
func (l *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	if l.cfg.Limit <= 0 {
		return Decision{Allowed: true}, nil
	}

	k := l.cfg.Prefix + key

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.cfg.Window)
		incr = pipe.Incr(ctx, k)
		pttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		// Counter left without expiry by an older writer.
		if err := l.client.PExpire(ctx, k, l.cfg.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		ttl = l.cfg.Window
	}

	if incr.Val() <= int64(l.cfg.Limit) {
		return Decision{Allowed: true}, nil
	}

	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

// Memory is a per-key token bucket refilled at Limit per Window.
type Memory struct {
	lmt *limiter.Limiter
	cfg Config
}

// NewMemory returns an in-process limiter.
func NewMemory(cfg Config) *Memory {
	m := &Memory{cfg: cfg}
	if cfg.Limit > 0 && cfg.Window > 0 {
		m.lmt = tollbooth.NewLimiter(float64(cfg.Limit)/cfg.Window.Seconds(), &limiter.ExpirableOptions{
			DefaultExpirationTTL: cfg.Window,
		}).SetBurst(cfg.Limit)
	}
	return m
}

// Allow takes one token from key's bucket.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	if m.lmt == nil {
		return Decision{Allowed: true}, nil
	}

	if herr := tollbooth.LimitByKeys(m.lmt, []string{m.cfg.Prefix + key}); herr != nil {
		return Decision{Allowed: false, RetryAfter: m.cfg.Window / time.Duration(m.cfg.Limit)}, nil
	}

	return Decision{Allowed: true}, nil
}
