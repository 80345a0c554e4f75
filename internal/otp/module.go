package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/passcode/internal/otp/inbound"
	"github.com/shandysiswandi/passcode/internal/otp/outbound/mq"
	"github.com/shandysiswandi/passcode/internal/otp/outbound/notifier"
	"github.com/shandysiswandi/passcode/internal/otp/outbound/store"
	"github.com/shandysiswandi/passcode/internal/otp/usecase"
	"github.com/shandysiswandi/passcode/internal/pkg/clock"
	"github.com/shandysiswandi/passcode/internal/pkg/config"
	"github.com/shandysiswandi/passcode/internal/pkg/goroutine"
	"github.com/shandysiswandi/passcode/internal/pkg/hash"
	"github.com/shandysiswandi/passcode/internal/pkg/idempotency"
	"github.com/shandysiswandi/passcode/internal/pkg/instrument"
	"github.com/shandysiswandi/passcode/internal/pkg/keylock"
	"github.com/shandysiswandi/passcode/internal/pkg/messaging"
	"github.com/shandysiswandi/passcode/internal/pkg/ratelimit"
	"github.com/shandysiswandi/passcode/internal/pkg/router"
	"github.com/shandysiswandi/passcode/internal/pkg/uid"
	"github.com/shandysiswandi/passcode/internal/pkg/validator"
)

var (
	ErrUnknownStoreDriver = errors.New("otp: unknown store driver")
	ErrStoreConnMissing   = errors.New("otp: store driver needs a connection that is not configured")
)

type Dependency struct {
	// DBConn is required by the postgres store driver only.
	DBConn *pgxpool.Pool
	// CacheConn is required by the redis store driver. When set it also backs
	// the issuance limiter and the idempotency keys.
	CacheConn  redis.UniversalClient
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	OID        uid.StringID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

// Module owns the background parts of the OTP module.
type Module struct {
	uc        *usecase.Usecase
	scheduler *inbound.Scheduler
}

func New(ctx context.Context, dep Dependency) (*Module, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	repoStore, err := newStore(ctx, dep)
	if err != nil {
		return nil, err
	}

	repoNotifier := notifier.NewRegistry(notifier.RegistryConfig{
		Retry: notifier.RetryConfig{
			Attempts: uint64(max(dep.Config.GetInt("otp.notifier.retry.attempts"), 0)),
			Base:     dep.Config.GetDuration("otp.notifier.retry.base"),
			Cap:      dep.Config.GetDuration("otp.notifier.retry.cap"),
		},
		Instrument: dep.Instrument,
	})

	uc := usecase.New(usecase.Dependency{
		Store:       repoStore,
		Notifier:    repoNotifier,
		Messaging:   mq.NewMessaging(dep.Messaging, dep.Instrument),
		Limiter:     newLimiter(dep),
		Idempotency: newIdempotency(dep),
		Locker:      keylock.New(),
		Validator:   dep.Validator,
		Config:      dep.Config,
		HMAC:        dep.HMAC,
		UID:         dep.UID,
		OID:         dep.OID,
		Clock:       dep.Clock,
		Instrument:  dep.Instrument,
		Goroutine:   dep.Goroutine,
	})

	if err := uc.ReloadSettings(ctx); err != nil {
		return nil, fmt.Errorf("otp: load settings: %w", err)
	}

	dep.Config.OnChange(func() {
		if err := uc.ReloadSettings(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "otp settings kept after rejected config change", "error", err)
		}
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	scheduler, err := inbound.RegisterCronJob(ctx, dep.Config.GetDuration("otp.sweeper.interval"), uc)
	if err != nil {
		return nil, err
	}

	return &Module{uc: uc, scheduler: scheduler}, nil
}

func (m *Module) Start() {
	m.scheduler.Start()
}

func (m *Module) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}

// Reload re-reads the OTP settings from the current configuration.
func (m *Module) Reload(ctx context.Context) error {
	return m.uc.ReloadSettings(ctx)
}

func newStore(ctx context.Context, dep Dependency) (usecase.Store, error) {
	driver := dep.Config.GetString("otp.store.driver")

	switch driver {
	case "", store.DriverMemory:
		return store.NewMemory(dep.Instrument), nil
	case store.DriverRedis:
		if dep.CacheConn == nil {
			return nil, fmt.Errorf("%w: %s", ErrStoreConnMissing, driver)
		}
		return store.NewRedis(dep.CacheConn, dep.Clock, dep.Instrument, store.RedisConfig{
			Prefix: dep.Config.GetString("otp.store.redis.prefix"),
			Grace:  dep.Config.GetDuration("otp.store.redis.grace"),
		}), nil
	case store.DriverPostgres:
		if dep.DBConn == nil {
			return nil, fmt.Errorf("%w: %s", ErrStoreConnMissing, driver)
		}
		pg := store.NewPostgres(dep.DBConn, dep.Instrument)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStoreDriver, driver)
	}
}

// newLimiter shares the issuance window across replicas when redis is
// available.
func newLimiter(dep Dependency) ratelimit.Limiter {
	cfg := ratelimit.Config{
		Limit:  dep.Config.GetInt("otp.ratelimit.limit"),
		Window: dep.Config.GetDuration("otp.ratelimit.window"),
		Prefix: "passcode:ratelimit:",
	}
	if cfg.Limit <= 0 || cfg.Window <= 0 {
		return ratelimit.Noop{}
	}

	if dep.CacheConn != nil {
		return ratelimit.NewRedis(dep.CacheConn, cfg)
	}

	return ratelimit.NewMemory(cfg)
}

func newIdempotency(dep Dependency) idempotency.Idempotency {
	if dep.CacheConn != nil {
		return idempotency.NewRedis(dep.CacheConn, "passcode:idempotency:")
	}

	return idempotency.NewMemory(dep.Clock)
}
