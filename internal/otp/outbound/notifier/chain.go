package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/passcode/internal/otp/entity"
)

// RetryConfig bounds the retries each configured notifier gets before the
// chain moves on.
type RetryConfig struct {
	// Attempts is the number of retries after the first try.
	Attempts uint64
	// Base is the first backoff delay; it doubles every retry.
	Base time.Duration
	// Cap limits a single backoff delay.
	Cap time.Duration
}

// Chain tries notifiers strictly in order until one succeeds.
type Chain struct {
	notifiers []Notifier
	retry     RetryConfig
}

func NewChain(rc RetryConfig, notifiers ...Notifier) *Chain {
	if rc.Base <= 0 {
		rc.Base = 100 * time.Millisecond
	}
	if rc.Cap <= 0 {
		rc.Cap = 2 * time.Second
	}

	return &Chain{notifiers: notifiers, retry: rc}
}

// Names lists the notifiers in order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.notifiers))
	for _, n := range c.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// Send returns the name of the notifier that delivered msg. Skipped and
// failed notifiers are reported together, wrapped in ErrDeliveryFailed.
func (c *Chain) Send(ctx context.Context, msg Message) (string, error) {
	var errs []error

	for _, n := range c.notifiers {
		err := c.sendWithRetry(ctx, n, msg)
		if err == nil {
			return n.Name(), nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))

		if isSkip(err) {
			slog.DebugContext(ctx, "notifier skipped", "notifier", n.Name(), "contact", entity.MaskContact(msg.Contact), "reason", err)
			continue
		}

		slog.WarnContext(ctx, "notifier failed, trying next", "notifier", n.Name(), "contact", entity.MaskContact(msg.Contact), "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no notifier enabled"))
	}

	return "", fmt.Errorf("%w: %w", ErrDeliveryFailed, errors.Join(errs...))
}

func (c *Chain) sendWithRetry(ctx context.Context, n Notifier, msg Message) error {
	b := retry.NewExponential(c.retry.Base)
	b = retry.WithCappedDuration(c.retry.Cap, b)
	b = retry.WithMaxRetries(c.retry.Attempts, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := n.Send(ctx, msg)
		if err == nil || isSkip(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}
