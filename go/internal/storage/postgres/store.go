// Package postgres is the Postgres storage.Store. Each unit of work is one
// database transaction; rows read through Tx getters are taken FOR UPDATE.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/sqlutil"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

//go:embed schema.sql
var schema string

// Store is the Postgres storage.Store and storage.OutboxReader.
type Store struct {
	db *sql.DB
}

var (
	_ storage.Store        = (*Store)(nil)
	_ storage.OutboxReader = (*Store)(nil)
)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// WithinTx runs fn in a read-committed transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return sqlutil.Run(ctx, s.db, nil,
		func(t *sql.Tx) *pgTx { return &pgTx{q: t} },
		func(t *pgTx) error { return fn(ctx, t) },
	)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type pgTx struct {
	q querier
}

func (t *pgTx) Seasons() storage.SeasonRepository           { return seasonRepo{t.q} }
func (t *pgTx) Teams() storage.TeamSeasonRepository         { return teamRepo{t.q} }
func (t *pgTx) Assets() storage.AssetRepository             { return assetRepo{t.q} }
func (t *pgTx) Sessions() storage.SessionRepository         { return sessionRepo{t.q} }
func (t *pgTx) Picks() storage.PickRepository               { return pickRepo{t.q} }
func (t *pgTx) Transactions() storage.TransactionRepository { return txnRepo{t.q} }
func (t *pgTx) Outbox() storage.OutboxWriter                { return outboxRepo{t.q} }

// mapErr translates driver errors into the storage sentinels.
func mapErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	case sqlutil.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w: %v", what, storage.ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// expectOne turns a conditional write that touched nothing into sentinel.
func expectOne(res sql.Result, sentinel error, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, sentinel)
	}
	return nil
}

// FetchUnsent implements storage.OutboxReader.
func (s *Store) FetchUnsent(ctx context.Context, limit int) ([]storage.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, season_id, stream_id, sequence, event_type, payload, created_at, sent_at
		FROM draft_outbox
		WHERE sent_at IS NULL
		ORDER BY position
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []storage.OutboxRecord
	for rows.Next() {
		rec, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// FetchByID implements storage.OutboxReader.
func (s *Store) FetchByID(ctx context.Context, id uuid.UUID) (*storage.OutboxRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, season_id, stream_id, sequence, event_type, payload, created_at, sent_at
		FROM draft_outbox
		WHERE id = $1`, id)
	rec, err := scanOutbox(row)
	if err != nil {
		return nil, mapErr(err, "outbox event "+id.String())
	}
	return rec, nil
}

// MarkSent implements storage.OutboxReader.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE draft_outbox SET sent_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return expectOne(res, storage.ErrNotFound, "outbox event "+id.String())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOutbox(row scanner) (*storage.OutboxRecord, error) {
	var (
		rec    storage.OutboxRecord
		sentAt sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.SeasonID, &rec.StreamID, &rec.Sequence, &rec.EventType, &rec.Payload, &rec.CreatedAt, &sentAt); err != nil {
		return nil, err
	}
	rec.SentAt = sqlutil.FromSqlTime(sentAt)
	return &rec, nil
}
