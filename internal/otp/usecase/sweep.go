package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
)

const defaultSweepBatch = 500

// SweepExpired removes expired challenges in one batch. A challenge that was
// replaced or deleted since it was listed is skipped.
func (s *Usecase) SweepExpired(ctx context.Context) (int, error) {
	ctx, span := s.startSpan(ctx, "SweepExpired")
	defer span.End()

	batch := orDefault(s.cfg.GetInt("otp.sweeper.batch_size"), defaultSweepBatch)

	expired, err := s.store.ListExpired(ctx, s.clock.Now(), batch)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list expired challenges", "error", err)
		return 0, err
	}

	removed := 0
	for _, chl := range expired {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		ok, err := s.sweepOne(ctx, chl)
		if err != nil {
			slog.ErrorContext(ctx, "failed to delete expired challenge", "contact", entity.MaskContact(chl.Contact), "error", err)
			continue
		}
		if ok {
			removed++
		}
	}

	count(ctx, s.metrics.swept, int64(removed))
	if removed > 0 {
		slog.InfoContext(ctx, "expired challenges removed", "removed", removed, "listed", len(expired))
	}

	return removed, nil
}

func (s *Usecase) sweepOne(ctx context.Context, chl entity.Challenge) (bool, error) {
	unlock := s.locks.Lock(chl.Contact)
	defer unlock()

	return s.store.Delete(ctx, chl.Contact, chl.ID)
}
