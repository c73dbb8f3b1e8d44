package carrello

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PgxConn is the part of *pgxpool.Pool the Postgres slot needs.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const createSlotsTable = `
	CREATE TABLE IF NOT EXISTS kv_slots (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// PostgresSlot stores the entry as one row of kv_slots.
type PostgresSlot struct {
	db  PgxConn
	key string
}

var (
	_ Slot   = (*PostgresSlot)(nil)
	_ Pinger = (*PostgresSlot)(nil)
)

// NewPostgresSlot makes sure the kv_slots table exists.
func NewPostgresSlot(ctx context.Context, db PgxConn, key string) (*PostgresSlot, error) {
	if key == "" {
		key = DefaultKey
	}
	if _, err := db.Exec(ctx, createSlotsTable); err != nil {
		return nil, fmt.Errorf("creating kv_slots table: %w", err)
	}
	return &PostgresSlot{db: db, key: key}, nil
}

func (p *PostgresSlot) Get(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "PostgresSlot.Get", trace.WithAttributes(attribute.String("carrello.key", p.key)))
	defer span.End()

	var value string
	err := p.db.QueryRow(ctx, `SELECT value::text FROM kv_slots WHERE key = $1`, p.key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to select cart row")
		return nil, fmt.Errorf("selecting %q: %w", p.key, err)
	}
	return []byte(value), nil
}

func (p *PostgresSlot) Put(ctx context.Context, data []byte) error {
	ctx, span := tracer.Start(ctx, "PostgresSlot.Put", trace.WithAttributes(attribute.String("carrello.key", p.key)))
	defer span.End()

	_, err := p.db.Exec(ctx, `
		INSERT INTO kv_slots (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, p.key, string(data))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upsert cart row")
		return fmt.Errorf("upserting %q: %w", p.key, err)
	}
	return nil
}

func (p *PostgresSlot) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}
