package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/clock"
	"github.com/shandysiswandi/passcode/internal/pkg/config"
	"github.com/shandysiswandi/passcode/internal/pkg/goroutine"
	"github.com/shandysiswandi/passcode/internal/pkg/hash"
	"github.com/shandysiswandi/passcode/internal/pkg/idempotency"
	"github.com/shandysiswandi/passcode/internal/pkg/instrument"
	"github.com/shandysiswandi/passcode/internal/pkg/keylock"
	"github.com/shandysiswandi/passcode/internal/pkg/ratelimit"
	"github.com/shandysiswandi/passcode/internal/pkg/uid"
	"github.com/shandysiswandi/passcode/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// ErrDeliveryFailed is returned by the notifier when every channel failed.
var ErrDeliveryFailed = errors.New("otp: passcode could not be delivered")

// operationTimeout bounds issuance and verification once they are detached
// from the caller.
const operationTimeout = 30 * time.Second

// DeliveryRequest is what the notifier needs to render and send a passcode.
type DeliveryRequest struct {
	Contact   string
	Kind      entity.ContactKind
	Code      string
	Purpose   string
	ExpiresIn time.Duration
}

type ChallengeIssuedEvent struct {
	ChallengeID int64
	Reference   string
	Contact     string
	Kind        entity.ContactKind
	Purpose     string
	Channel     string
	Demo        bool
	ExpiresAt   time.Time
}

type ChallengeVerifiedEvent struct {
	ChallengeID int64
	Reference   string
	Contact     string
	Kind        entity.ContactKind
	Purpose     string
	Demo        bool
	VerifiedAt  time.Time
}

// Store keeps at most one live challenge per contact.
type Store interface {
	Get(ctx context.Context, contact string) (entity.Challenge, error)
	GetByReference(ctx context.Context, reference string) (entity.Challenge, error)
	Put(ctx context.Context, c entity.Challenge) error
	Delete(ctx context.Context, contact string, id int64) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]entity.Challenge, error)
}

type repoNotifier interface {
	Send(ctx context.Context, in DeliveryRequest) (string, error)
	Reload(s entity.Settings) error
}

type repoMessaging interface {
	PublishChallengeIssued(ctx context.Context, ev ChallengeIssuedEvent) error
	PublishChallengeVerified(ctx context.Context, ev ChallengeVerifiedEvent) error
}

type Usecase struct {
	store     Store
	notifier  repoNotifier
	messaging repoMessaging
	limiter   ratelimit.Limiter
	idemp     idempotency.Idempotency
	locks     *keylock.Locker
	validator validator.Validator
	cfg       config.Config
	hmac      hash.Hash
	uid       uid.NumberID
	oid       uid.StringID
	clock     clock.Clocker
	ins       instrument.Instrumentation
	goroutine *goroutine.Manager
	random    io.Reader

	settingsMu sync.Mutex
	settings   atomic.Pointer[entity.Settings]

	metrics metrics
}

type Dependency struct {
	Store       Store
	Notifier    repoNotifier
	Messaging   repoMessaging
	Limiter     ratelimit.Limiter
	Idempotency idempotency.Idempotency
	Locker      *keylock.Locker
	Validator   validator.Validator
	Config      config.Config
	HMAC        hash.Hash
	UID         uid.NumberID
	OID         uid.StringID
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
	Goroutine   *goroutine.Manager
	// Random feeds the code generator; crypto/rand when nil.
	Random io.Reader
}

func New(dep Dependency) *Usecase {
	if dep.Random == nil {
		dep.Random = rand.Reader
	}
	if dep.Limiter == nil {
		dep.Limiter = ratelimit.Noop{}
	}
	if dep.Idempotency == nil {
		dep.Idempotency = idempotency.Noop{}
	}
	if dep.Locker == nil {
		dep.Locker = keylock.New()
	}
	if dep.Instrument == nil {
		dep.Instrument = instrument.NewNoop()
	}

	return &Usecase{
		store:     dep.Store,
		notifier:  dep.Notifier,
		messaging: dep.Messaging,
		limiter:   dep.Limiter,
		idemp:     dep.Idempotency,
		locks:     dep.Locker,
		validator: dep.Validator,
		cfg:       dep.Config,
		hmac:      dep.HMAC,
		uid:       dep.UID,
		oid:       dep.OID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
		goroutine: dep.Goroutine,
		random:    dep.Random,
		metrics:   newMetrics(dep.Instrument),
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.usecase").Start(ctx, name)
}

// detach lets a state-changing operation finish after the caller goes away.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), operationTimeout)
}

// publish runs f in the background, detached from request cancellation.
// Events are best effort; failures are only logged.
func (s *Usecase) publish(ctx context.Context, name string, f func(ctx context.Context) error) {
	s.goroutine.Go(context.WithoutCancel(ctx), name, func(ctx context.Context) error {
		if err := f(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to publish otp event", "event", name, "error", err)
		}
		return nil
	})
}

type metrics struct {
	issued        metric.Int64Counter
	verifications metric.Int64Counter
	swept         metric.Int64Counter
}

func newMetrics(ins instrument.Instrumentation) metrics {
	meter := ins.Meter("otp.usecase")

	issued, err := meter.Int64Counter("otp.challenges.issued", metric.WithDescription("Number of passcode challenges issued"))
	if err != nil {
		slog.Error("failed to create otp issued counter", "error", err)
	}

	verifications, err := meter.Int64Counter("otp.verifications", metric.WithDescription("Number of passcode verifications by outcome"))
	if err != nil {
		slog.Error("failed to create otp verification counter", "error", err)
	}

	swept, err := meter.Int64Counter("otp.sweeper.removed", metric.WithDescription("Number of expired challenges removed by the sweeper"))
	if err != nil {
		slog.Error("failed to create otp sweeper counter", "error", err)
	}

	return metrics{issued: issued, verifications: verifications, swept: swept}
}

func count(ctx context.Context, c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attrs...))
}
