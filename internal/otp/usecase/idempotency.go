package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/goerror"
	"github.com/shandysiswandi/passcode/internal/pkg/idempotency"
)

const defaultIdempotencyTTL = 10 * time.Minute

// once runs fn at most once per contact and idempotency key. An empty key
// always runs fn.
func (s *Usecase) once(ctx context.Context, op string, contact entity.Contact, key string, fn func(context.Context) error) error {
	if key == "" {
		return fn(ctx)
	}

	if err := s.validator.Var("idempotency_key", key, "max=128,printascii"); err != nil {
		return goerror.NewInvalidInput(err)
	}

	ttl := orDefault(s.cfg.GetDuration("otp.idempotency.ttl"), defaultIdempotencyTTL)

	err := s.idemp.Exec(ctx, op+":"+contact.Value+":"+key, ttl, fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		return goerror.NewBusiness("A request with this idempotency key is still being processed", goerror.CodeConflict)
	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		return goerror.NewBusiness("A request with this idempotency key was already processed", goerror.CodeConflict)
	}

	if _, ok := goerror.As(err); ok {
		return err
	}

	slog.ErrorContext(ctx, "failed to check idempotency key", "contact", contact.Masked(), "error", err)
	return goerror.NewServer(err)
}
