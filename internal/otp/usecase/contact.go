package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/goerror"
)

// DefaultPurpose is used when the caller does not name one.
const DefaultPurpose = "verification"

func (s *Usecase) normalizeContact(raw string) (entity.Contact, error) {
	contact := entity.NormalizeContact(raw)

	rule := "required,e164"
	if contact.Kind == entity.ContactKindEmail {
		rule = "required,email"
	}

	if err := s.validator.Var("contact", contact.Value, rule); err != nil {
		return entity.Contact{}, goerror.NewInvalidInput(err)
	}

	return contact, nil
}

func (s *Usecase) normalizePurpose(raw string) (string, error) {
	purpose := strings.ToLower(strings.TrimSpace(raw))
	if purpose == "" {
		return DefaultPurpose, nil
	}

	if err := s.validator.Var("purpose", purpose, "purpose"); err != nil {
		return "", goerror.NewInvalidInput(err)
	}

	return purpose, nil
}

func (s *Usecase) checkRateLimit(ctx context.Context, contact entity.Contact) error {
	decision, err := s.limiter.Allow(ctx, contact.Value)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check issuance rate limit", "contact", contact.Masked(), "error", err)
		return goerror.NewServer(err)
	}

	if !decision.Allowed {
		slog.WarnContext(ctx, "issuance rate limit exceeded", "contact", contact.Masked())
		return tooManyRequests(decision.RetryAfter.Seconds())
	}

	return nil
}

func tooManyRequests(retryAfterSeconds float64) error {
	secs := max(int64(retryAfterSeconds+0.999), 1)
	return goerror.NewBusiness("Too many requests, please try again later", goerror.CodeTooManyRequest,
		"retry_after_seconds", strconv.FormatInt(secs, 10))
}
