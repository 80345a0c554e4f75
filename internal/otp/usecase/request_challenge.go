package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
)

type RequestChallengeInput struct {
	Contact string
	Purpose string
	// AllowResendWithoutDelay skips the resend cooldown.
	AllowResendWithoutDelay bool
	// IdempotencyKey, when set, makes a retried request fail with a
	// conflict instead of sending a second code.
	IdempotencyKey string
}

type RequestChallengeOutput struct {
	Reference string
	Channel   string
	ExpiresIn int64
	DemoMode  bool
	// Code is only set in demo mode.
	Code string
}

func (s *Usecase) RequestChallenge(ctx context.Context, in RequestChallengeInput) (*RequestChallengeOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestChallenge")
	defer span.End()

	contact, err := s.normalizeContact(in.Contact)
	if err != nil {
		return nil, err
	}

	purpose, err := s.normalizePurpose(in.Purpose)
	if err != nil {
		return nil, err
	}

	ctx, cancel := detach(ctx)
	defer cancel()

	var out *RequestChallengeOutput
	err = s.once(ctx, "request", contact, in.IdempotencyKey, func(ctx context.Context) (err error) {
		out, err = s.requestChallenge(ctx, contact, purpose, in.AllowResendWithoutDelay)
		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Usecase) requestChallenge(
	ctx context.Context,
	contact entity.Contact,
	purpose string,
	skipCooldown bool,
) (*RequestChallengeOutput, error) {
	if err := s.checkRateLimit(ctx, contact); err != nil {
		return nil, err
	}

	settings := s.currentSettings()
	policy := settings.Policy

	chl, code, err := s.issue(ctx, contact, purpose, settings, skipCooldown)
	if err != nil {
		return nil, err
	}

	channel := entity.ChannelDemo
	if !chl.Demo {
		channel, err = s.notifier.Send(ctx, DeliveryRequest{
			Contact:   chl.Contact,
			Kind:      chl.Kind,
			Code:      code,
			Purpose:   chl.Purpose,
			ExpiresIn: policy.TTL,
		})
		if err != nil {
			return nil, s.rollback(ctx, chl, err)
		}
	}

	count(ctx, s.metrics.issued, 1,
		attribute.String("channel", channel),
		attribute.String("kind", string(chl.Kind)),
		attribute.Bool("demo", chl.Demo),
	)

	s.publish(ctx, "otp.challenge.issued", func(ctx context.Context) error {
		return s.messaging.PublishChallengeIssued(ctx, ChallengeIssuedEvent{
			ChallengeID: chl.ID,
			Reference:   chl.Reference,
			Contact:     chl.Contact,
			Kind:        chl.Kind,
			Purpose:     chl.Purpose,
			Channel:     channel,
			Demo:        chl.Demo,
			ExpiresAt:   chl.ExpiresAt,
		})
	})

	slog.InfoContext(ctx, "otp challenge issued",
		"contact", contact.Masked(),
		"purpose", chl.Purpose,
		"channel", channel,
		"demo", chl.Demo,
	)

	out := &RequestChallengeOutput{
		Reference: chl.Reference,
		Channel:   channel,
		ExpiresIn: chl.ExpiresIn(chl.CreatedAt),
		DemoMode:  chl.Demo,
	}
	if chl.Demo {
		out.Code = code
	}

	return out, nil
}

// issue replaces the live challenge of contact under its lock and returns
// the new challenge with its plain code.
func (s *Usecase) issue(
	ctx context.Context,
	contact entity.Contact,
	purpose string,
	settings entity.Settings,
	skipCooldown bool,
) (entity.Challenge, string, error) {
	unlock := s.locks.Lock(contact.Value)
	defer unlock()

	now := s.clock.Now()
	policy := settings.Policy

	prev, err := s.store.Get(ctx, contact.Value)
	switch {
	case errors.Is(err, entity.ErrChallengeNotFound):
	case err != nil:
		slog.ErrorContext(ctx, "failed to get live challenge", "contact", contact.Masked(), "error", err)
		return entity.Challenge{}, "", goerror.NewServer(err)
	default:
		if !skipCooldown && policy.ResendCooldown > 0 && !prev.IsExpired(now) {
			if wait := prev.CreatedAt.Add(policy.ResendCooldown).Sub(now); wait > 0 {
				slog.WarnContext(ctx, "otp requested within resend cooldown", "contact", contact.Masked())
				return entity.Challenge{}, "", tooManyRequests(wait.Seconds())
			}
		}

		if _, err := s.store.Delete(ctx, prev.Contact, prev.ID); err != nil {
			slog.ErrorContext(ctx, "failed to delete previous challenge", "contact", contact.Masked(), "error", err)
			return entity.Challenge{}, "", goerror.NewServer(err)
		}
	}

	demo := settings.Demo.Applies(contact.Value)

	code := settings.Demo.Code
	if !demo {
		code, err = s.generateCode(policy.CodeLength)
		if err != nil {
			slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
			return entity.Challenge{}, "", goerror.NewServer(err)
		}
	}

	chl := entity.Challenge{
		ID:          s.uid.Generate(),
		Contact:     contact.Value,
		Kind:        contact.Kind,
		CodeHash:    s.hmac.Hash(code),
		Purpose:     purpose,
		Reference:   s.oid.Generate(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(policy.TTL),
		Attempts:    0,
		MaxAttempts: policy.MaxAttempts,
		Demo:        demo,
	}

	if err := s.store.Put(ctx, chl); err != nil {
		slog.ErrorContext(ctx, "failed to store challenge", "contact", contact.Masked(), "error", err)
		return entity.Challenge{}, "", goerror.NewServer(err)
	}

	return chl, code, nil
}

// rollback removes a challenge whose code never reached the user.
func (s *Usecase) rollback(ctx context.Context, chl entity.Challenge, cause error) error {
	unlock := s.locks.Lock(chl.Contact)
	_, err := s.store.Delete(ctx, chl.Contact, chl.ID)
	unlock()

	masked := entity.MaskContact(chl.Contact)
	if err != nil {
		slog.ErrorContext(ctx, "failed to roll back undelivered challenge", "contact", masked, "error", err)
	}

	if errors.Is(cause, ErrDeliveryFailed) {
		slog.ErrorContext(ctx, "failed to deliver otp on every channel", "contact", masked, "error", cause)
		return goerror.NewBusiness("Unable to deliver the verification code, please try again later", goerror.CodeBadGateway)
	}

	slog.ErrorContext(ctx, "failed to deliver otp", "contact", masked, "error", cause)
	return goerror.NewServer(cause)
}
