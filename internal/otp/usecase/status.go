package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/goerror"
)

type StatusInput struct {
	Contact string
}

type StatusOutput struct {
	Exists            bool
	ExpiresIn         int64
	AttemptsRemaining int
}

// Status reports the live challenge of a contact without consuming an
// attempt. An expired challenge is evicted on read.
func (s *Usecase) Status(ctx context.Context, in StatusInput) (*StatusOutput, error) {
	ctx, span := s.startSpan(ctx, "Status")
	defer span.End()

	contact, err := s.normalizeContact(in.Contact)
	if err != nil {
		return nil, err
	}

	chl, err := s.store.Get(ctx, contact.Value)
	if errors.Is(err, entity.ErrChallengeNotFound) {
		return &StatusOutput{}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to get challenge status", "contact", contact.Masked(), "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	if chl.IsExpired(now) {
		unlock := s.locks.Lock(contact.Value)
		err := s.remove(ctx, chl)
		unlock()
		if err != nil {
			return nil, err
		}
		return &StatusOutput{}, nil
	}

	return &StatusOutput{
		Exists:            true,
		ExpiresIn:         chl.ExpiresIn(now),
		AttemptsRemaining: chl.AttemptsRemaining(),
	}, nil
}
