package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/instrument"
)

//go:embed schema.sql
var schemaSQL string

const challengeColumns = `contact, id, kind, code_hash, purpose, reference, created_at, expires_at, attempts, max_attempts, demo`

type challengeRow struct {
	ID          int64     `db:"id"`
	Contact     string    `db:"contact"`
	Kind        string    `db:"kind"`
	CodeHash    string    `db:"code_hash"`
	Purpose     string    `db:"purpose"`
	Reference   string    `db:"reference"`
	CreatedAt   time.Time `db:"created_at"`
	ExpiresAt   time.Time `db:"expires_at"`
	Attempts    int       `db:"attempts"`
	MaxAttempts int       `db:"max_attempts"`
	Demo        bool      `db:"demo"`
}

func (r challengeRow) toEntity() entity.Challenge {
	return record(r).toEntity()
}

// Postgres keeps one row per contact in otp_challenges.
type Postgres struct {
	tracing
	conn *pgxpool.Pool
}

func NewPostgres(conn *pgxpool.Pool, ins instrument.Instrumentation) *Postgres {
	return &Postgres{
		tracing: tracing{ins: ins, name: "otp.outbound.store.postgres"},
		conn:    conn,
	}
}

// EnsureSchema creates the table and index when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) (err error) {
	ctx, span := p.startSpan(ctx, "EnsureSchema")
	defer func() { p.endSpan(span, err) }()

	_, err = p.conn.Exec(ctx, schemaSQL)
	return err
}

func (p *Postgres) mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.ErrChallengeNotFound
	}
	return err
}

func (p *Postgres) getOne(ctx context.Context, query string, arg any) (entity.Challenge, error) {
	rows, err := p.conn.Query(ctx, query, arg)
	if err != nil {
		return entity.Challenge{}, err
	}

	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[challengeRow])
	if err != nil {
		return entity.Challenge{}, p.mapError(err)
	}

	return row.toEntity(), nil
}

func (p *Postgres) Get(ctx context.Context, contact string) (_ entity.Challenge, err error) {
	ctx, span := p.startSpan(ctx, "Get")
	defer func() { p.endSpan(span, err) }()

	return p.getOne(ctx, `SELECT `+challengeColumns+` FROM otp_challenges WHERE contact = $1`, contact)
}

func (p *Postgres) GetByReference(ctx context.Context, reference string) (_ entity.Challenge, err error) {
	ctx, span := p.startSpan(ctx, "GetByReference")
	defer func() { p.endSpan(span, err) }()

	return p.getOne(ctx, `SELECT `+challengeColumns+` FROM otp_challenges WHERE reference = $1`, reference)
}

func (p *Postgres) Put(ctx context.Context, c entity.Challenge) (err error) {
	ctx, span := p.startSpan(ctx, "Put")
	defer func() { p.endSpan(span, err) }()

	_, err = p.conn.Exec(ctx, `
		INSERT INTO otp_challenges (`+challengeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (contact) DO UPDATE SET
			id = EXCLUDED.id,
			kind = EXCLUDED.kind,
			code_hash = EXCLUDED.code_hash,
			purpose = EXCLUDED.purpose,
			reference = EXCLUDED.reference,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			attempts = EXCLUDED.attempts,
			max_attempts = EXCLUDED.max_attempts,
			demo = EXCLUDED.demo`,
		c.Contact, c.ID, c.Kind.String(), c.CodeHash, c.Purpose, c.Reference,
		c.CreatedAt.UTC(), c.ExpiresAt.UTC(), c.Attempts, c.MaxAttempts, c.Demo,
	)
	return err
}

func (p *Postgres) Delete(ctx context.Context, contact string, id int64) (_ bool, err error) {
	ctx, span := p.startSpan(ctx, "Delete")
	defer func() { p.endSpan(span, err) }()

	tag, err := p.conn.Exec(ctx, `DELETE FROM otp_challenges WHERE contact = $1 AND id = $2`, contact, id)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) ListExpired(ctx context.Context, now time.Time, limit int) (_ []entity.Challenge, err error) {
	ctx, span := p.startSpan(ctx, "ListExpired")
	defer func() { p.endSpan(span, err) }()

	if limit <= 0 {
		limit = 1000
	}

	rows, err := p.conn.Query(ctx, `
		SELECT `+challengeColumns+` FROM otp_challenges
		WHERE expires_at < $1
		ORDER BY expires_at
		LIMIT $2`, now.UTC(), limit)
	if err != nil {
		return nil, err
	}

	result, err := pgx.CollectRows(rows, pgx.RowToStructByName[challengeRow])
	if err != nil {
		return nil, err
	}

	out := make([]entity.Challenge, 0, len(result))
	for _, r := range result {
		out = append(out, r.toEntity())
	}
	return out, nil
}
