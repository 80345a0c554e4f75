package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
)

type VerifyInput struct {
	Contact   string
	Code      string
	Reference string
}

type VerifyOutput struct {
	Verified bool
	// AttemptsRemaining is set only for a plain mismatch.
	AttemptsRemaining *int
	Reason            entity.Reason
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Usecase) Verify(ctx context.Context, in VerifyInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	contact, err := s.normalizeContact(in.Contact)
	if err != nil {
		return nil, err
	}

	ctx, cancel := detach(ctx)
	defer cancel()

	out, chl, err := s.verify(ctx, contact, in)
	if err != nil {
		return nil, err
	}

	outcome := "verified"
	if !out.Verified {
		outcome = out.Reason.String()
	}
	count(ctx, s.metrics.verifications, 1,
		attribute.String("outcome", outcome),
		attribute.String("kind", string(contact.Kind)),
	)

	slog.InfoContext(ctx, "otp verification", "contact", contact.Masked(), "outcome", outcome)

	if out.Verified {
		now := s.clock.Now()
		s.publish(ctx, "otp.challenge.verified", func(ctx context.Context) error {
			return s.messaging.PublishChallengeVerified(ctx, ChallengeVerifiedEvent{
				ChallengeID: chl.ID,
				Reference:   chl.Reference,
				Contact:     contact.Value,
				Kind:        contact.Kind,
				Purpose:     chl.Purpose,
				Demo:        chl.Demo,
				VerifiedAt:  now,
			})
		})
	}

	return out, nil
}

// verify runs the decision sequence under the contact lock. A demo code
// matched without a stored challenge yields a synthesized demo challenge.
func (s *Usecase) verify(ctx context.Context, contact entity.Contact, in VerifyInput) (*VerifyOutput, entity.Challenge, error) {
	unlock := s.locks.Lock(contact.Value)
	defer unlock()

	demo := s.currentSettings().Demo
	now := s.clock.Now()

	chl, err := s.resolve(ctx, contact.Value, in.Reference)
	if errors.Is(err, entity.ErrChallengeNotFound) {
		if demoCodeMatches(demo, contact.Value, in.Code) {
			return &VerifyOutput{Verified: true}, entity.Challenge{Contact: contact.Value, Purpose: DefaultPurpose, Demo: true}, nil
		}
		return &VerifyOutput{Reason: entity.ReasonNotFound}, entity.Challenge{}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to get challenge", "contact", contact.Masked(), "error", err)
		return nil, entity.Challenge{}, goerror.NewServer(err)
	}

	if chl.IsExpired(now) {
		if err := s.remove(ctx, chl); err != nil {
			return nil, entity.Challenge{}, err
		}
		return &VerifyOutput{Reason: entity.ReasonExpired}, entity.Challenge{}, nil
	}

	if chl.IsExhausted() {
		if err := s.remove(ctx, chl); err != nil {
			return nil, entity.Challenge{}, err
		}
		return &VerifyOutput{Reason: entity.ReasonTooManyAttempts}, entity.Challenge{}, nil
	}

	if demoCodeMatches(demo, contact.Value, in.Code) {
		chl.Demo = true
		return &VerifyOutput{Verified: true}, chl, nil
	}

	if s.hmac.Verify(chl.CodeHash, in.Code) {
		if err := s.remove(ctx, chl); err != nil {
			return nil, entity.Challenge{}, err
		}
		return &VerifyOutput{Verified: true}, chl, nil
	}

	chl.Attempts++
	if chl.IsExhausted() {
		if err := s.remove(ctx, chl); err != nil {
			return nil, entity.Challenge{}, err
		}
		return &VerifyOutput{Reason: entity.ReasonTooManyAttempts}, entity.Challenge{}, nil
	}

	if err := s.store.Put(ctx, chl); err != nil {
		slog.ErrorContext(ctx, "failed to record failed attempt", "contact", contact.Masked(), "error", err)
		return nil, entity.Challenge{}, goerror.NewServer(err)
	}

	remaining := chl.AttemptsRemaining()
	return &VerifyOutput{AttemptsRemaining: &remaining, Reason: entity.ReasonInvalidCode}, entity.Challenge{}, nil
}

func (s *Usecase) resolve(ctx context.Context, contact, reference string) (entity.Challenge, error) {
	if reference == "" {
		return s.store.Get(ctx, contact)
	}

	chl, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return entity.Challenge{}, err
	}

	if chl.Contact != contact {
		return entity.Challenge{}, entity.ErrChallengeNotFound
	}

	return chl, nil
}

// remove deletes chl if it is still the live challenge. Callers hold the
// contact lock.
func (s *Usecase) remove(ctx context.Context, chl entity.Challenge) error {
	if _, err := s.store.Delete(ctx, chl.Contact, chl.ID); err != nil {
		slog.ErrorContext(ctx, "failed to delete challenge", "contact", entity.MaskContact(chl.Contact), "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
