package usecase

import "context"

type ResendInput struct {
	Contact        string
	Purpose        string
	IdempotencyKey string
}

// Resend replaces any live challenge of the contact with a fresh one,
// ignoring the resend cooldown. The issuance rate limit is checked first, so
// a limited resend leaves the live challenge usable.
func (s *Usecase) Resend(ctx context.Context, in ResendInput) (*RequestChallengeOutput, error) {
	ctx, span := s.startSpan(ctx, "Resend")
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
	err = s.once(ctx, "resend", contact, in.IdempotencyKey, func(ctx context.Context) (err error) {
		out, err = s.requestChallenge(ctx, contact, purpose, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
