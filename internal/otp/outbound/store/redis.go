package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/clock"
	"github.com/shandysiswandi/passcode/internal/pkg/instrument"
)

const redisWatchRetries = 4

// ErrRedisUnavailable wraps transport failures of the redis driver.
var ErrRedisUnavailable = errors.New("otp: challenge redis unavailable")

type RedisConfig struct {
	// Prefix namespaces every key, default "passcode".
	Prefix string
	// Grace keeps keys alive past expiresAt so expiry is still observable.
	Grace time.Duration
}

// Redis stores one JSON value per contact plus a reference index, both
// expiring at expiresAt+grace.
type Redis struct {
	tracing
	client redis.UniversalClient
	clock  clock.Clocker
	prefix string
	grace  time.Duration
}

func NewRedis(client redis.UniversalClient, clk clock.Clocker, ins instrument.Instrumentation, cfg RedisConfig) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = "passcode"
	}
	if cfg.Grace <= 0 {
		cfg.Grace = time.Minute
	}

	return &Redis{
		tracing: tracing{ins: ins, name: "otp.outbound.store.redis"},
		client:  client,
		clock:   clk,
		prefix:  cfg.Prefix,
		grace:   cfg.Grace,
	}
}

func (r *Redis) challengeKey(contact string) string {
	return r.prefix + ":challenge:" + contact
}

func (r *Redis) referenceKey(ref string) string {
	return r.prefix + ":reference:" + ref
}

func (r *Redis) ttl(c entity.Challenge) time.Duration {
	return max(c.ExpiresAt.Sub(r.clock.Now())+r.grace, r.grace)
}

func (r *Redis) Get(ctx context.Context, contact string) (_ entity.Challenge, err error) {
	ctx, span := r.startSpan(ctx, "Get")
	defer func() { r.endSpan(span, err) }()

	return r.get(ctx, r.client, contact)
}

func (r *Redis) get(ctx context.Context, cmd redis.Cmdable, contact string) (entity.Challenge, error) {
	data, err := cmd.Get(ctx, r.challengeKey(contact)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.Challenge{}, entity.ErrChallengeNotFound
	}
	if err != nil {
		return entity.Challenge{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return entity.Challenge{}, fmt.Errorf("otp: decode challenge: %w", err)
	}

	return rec.toEntity(), nil
}

func (r *Redis) GetByReference(ctx context.Context, reference string) (_ entity.Challenge, err error) {
	ctx, span := r.startSpan(ctx, "GetByReference")
	defer func() { r.endSpan(span, err) }()

	contact, err := r.client.Get(ctx, r.referenceKey(reference)).Result()
	if errors.Is(err, redis.Nil) {
		return entity.Challenge{}, entity.ErrChallengeNotFound
	}
	if err != nil {
		return entity.Challenge{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	c, err := r.get(ctx, r.client, contact)
	if err != nil {
		return entity.Challenge{}, err
	}
	if c.Reference != reference {
		return entity.Challenge{}, entity.ErrChallengeNotFound
	}

	return c, nil
}

func (r *Redis) Put(ctx context.Context, c entity.Challenge) (err error) {
	ctx, span := r.startSpan(ctx, "Put")
	defer func() { r.endSpan(span, err) }()

	data, err := json.Marshal(toRecord(c))
	if err != nil {
		return fmt.Errorf("otp: encode challenge: %w", err)
	}

	key := r.challengeKey(c.Contact)
	ttl := r.ttl(c)

	return r.watch(ctx, key, func(tx *redis.Tx) error {
		prev, err := r.get(ctx, tx, c.Contact)
		if err != nil && !errors.Is(err, entity.ErrChallengeNotFound) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if prev.Reference != "" && prev.Reference != c.Reference {
				pipe.Del(ctx, r.referenceKey(prev.Reference))
			}
			pipe.Set(ctx, key, data, ttl)
			pipe.Set(ctx, r.referenceKey(c.Reference), c.Contact, ttl)
			return nil
		})
		return err
	})
}

func (r *Redis) Delete(ctx context.Context, contact string, id int64) (deleted bool, err error) {
	ctx, span := r.startSpan(ctx, "Delete")
	defer func() { r.endSpan(span, err) }()

	key := r.challengeKey(contact)
	err = r.watch(ctx, key, func(tx *redis.Tx) error {
		deleted = false

		c, err := r.get(ctx, tx, contact)
		if errors.Is(err, entity.ErrChallengeNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if c.ID != id {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.Del(ctx, r.referenceKey(c.Reference))
			return nil
		})
		if err != nil {
			return err
		}

		deleted = true
		return nil
	})

	return deleted, err
}

func (r *Redis) ListExpired(ctx context.Context, now time.Time, limit int) (_ []entity.Challenge, err error) {
	ctx, span := r.startSpan(ctx, "ListExpired")
	defer func() { r.endSpan(span, err) }()

	prefix := r.challengeKey("")

	var out []entity.Challenge
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		c, err := r.get(ctx, r.client, strings.TrimPrefix(iter.Val(), prefix))
		if errors.Is(err, entity.ErrChallengeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if c.IsExpired(now) {
			out = append(out, c)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return out, nil
}

func (r *Redis) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for range redisWatchRetries {
		err := r.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrRedisUnavailable) {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return err
	}

	return fmt.Errorf("%w: too much contention on %s", ErrRedisUnavailable, key)
}
