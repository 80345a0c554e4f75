package inbound

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Scheduler runs the expiry sweeper on a fixed interval.
type Scheduler struct {
	cron *cron.Cron
}

const defaultSweepInterval = time.Minute

// RegisterCronJob schedules the sweeper every interval. Overlapping runs are
// skipped while a previous sweep is still going.
func RegisterCronJob(ctx context.Context, interval time.Duration, uc sweeper) (*Scheduler, error) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if _, err := uc.SweepExpired(ctx); err != nil {
			slog.ErrorContext(ctx, "scheduled otp sweep failed", "error", err)
		}
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
