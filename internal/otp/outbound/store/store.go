package store

import (
	"context"
	"errors"
	"time"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// record is the serialized form shared by the redis driver and tests.
type record struct {
	ID          int64     `json:"id"`
	Contact     string    `json:"contact"`
	Kind        string    `json:"kind"`
	CodeHash    string    `json:"code_hash"`
	Purpose     string    `json:"purpose"`
	Reference   string    `json:"reference"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	Demo        bool      `json:"demo"`
}

func toRecord(c entity.Challenge) record {
	return record{
		ID:          c.ID,
		Contact:     c.Contact,
		Kind:        c.Kind.String(),
		CodeHash:    c.CodeHash,
		Purpose:     c.Purpose,
		Reference:   c.Reference,
		CreatedAt:   c.CreatedAt.UTC(),
		ExpiresAt:   c.ExpiresAt.UTC(),
		Attempts:    c.Attempts,
		MaxAttempts: c.MaxAttempts,
		Demo:        c.Demo,
	}
}

func (r record) toEntity() entity.Challenge {
	return entity.Challenge{
		ID:          r.ID,
		Contact:     r.Contact,
		Kind:        entity.ContactKind(r.Kind),
		CodeHash:    r.CodeHash,
		Purpose:     r.Purpose,
		Reference:   r.Reference,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
		Attempts:    r.Attempts,
		MaxAttempts: r.MaxAttempts,
		Demo:        r.Demo,
	}
}

type tracing struct {
	ins  instrument.Instrumentation
	name string
}

func (t tracing) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.ins.Tracer(t.name).Start(ctx, name)
}

func (t tracing) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, entity.ErrChallengeNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
