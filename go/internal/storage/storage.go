// Package storage declares the persistence contract the draft core depends on.
// Implementations live in storage/memory and storage/postgres.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by conditional writes whose expected
	// version no longer matches.
	ErrVersionConflict = errors.New("version conflict")
	// ErrConflict is returned when a uniqueness or expected-state guard fails.
	ErrConflict = errors.New("conflict")
)

// Store runs units of work atomically. Rows read through Tx getters are
// locked for the rest of the unit where the backend supports it.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Seasons() SeasonRepository
	Teams() TeamSeasonRepository
	Assets() AssetRepository
	Sessions() SessionRepository
	Picks() PickRepository
	Transactions() TransactionRepository
	Outbox() OutboxWriter
}

type SeasonRepository interface {
	Create(ctx context.Context, s *models.Season) error
	Get(ctx context.Context, id uuid.UUID) (*models.Season, error)
	Update(ctx context.Context, s *models.Season) error
}

// TeamSeasonRepository stores ledger rows. Update is conditional on Version
// and bumps it.
type TeamSeasonRepository interface {
	Create(ctx context.Context, ts *models.TeamSeason) error
	Get(ctx context.Context, seasonID, teamID uuid.UUID) (*models.TeamSeason, error)
	ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.TeamSeason, error)
	Update(ctx context.Context, ts *models.TeamSeason) error
}

// AssetRepository stores the draft pool. UpdateStatus succeeds only if the
// stored status still equals expected.
type AssetRepository interface {
	Create(ctx context.Context, a *models.DraftableAsset) error
	Get(ctx context.Context, id uuid.UUID) (*models.DraftableAsset, error)
	ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.DraftableAsset, error)
	UpdateStatus(ctx context.Context, a *models.DraftableAsset, expected models.AssetStatus) error
}

// SessionRepository stores draft sessions. Update is conditional on Version
// and bumps it.
type SessionRepository interface {
	Create(ctx context.Context, s *models.DraftSession) error
	Get(ctx context.Context, id uuid.UUID) (*models.DraftSession, error)
	ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.DraftSession, error)
	ListByStatus(ctx context.Context, statuses ...models.DraftStatus) ([]models.DraftSession, error)
	Update(ctx context.Context, s *models.DraftSession) error
}

// PickRepository is the append-only pick log. Append fails with ErrConflict
// when the pick number or asset is already recorded for the session.
type PickRepository interface {
	Append(ctx context.Context, p *models.DraftPick) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.DraftPick, error)
	Last(ctx context.Context, sessionID uuid.UUID) (*models.DraftPick, error)
}

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	SeasonID uuid.UUID
	TeamID   uuid.UUID
	Limit    int
}

type TransactionRepository interface {
	Append(ctx context.Context, t *models.Transaction) error
	List(ctx context.Context, f TransactionFilter) ([]models.Transaction, error)
}

// OutboxRecord is a domain event waiting to be relayed to the bus.
type OutboxRecord struct {
	ID        uuid.UUID
	SeasonID  uuid.UUID
	StreamID  uuid.UUID
	Sequence  int64
	EventType string
	Payload   []byte
	CreatedAt time.Time
	SentAt    *time.Time
}

// OutboxWriter appends events in the same unit of work as the state change.
type OutboxWriter interface {
	Insert(ctx context.Context, rec OutboxRecord) error
}

// OutboxReader is what the relay needs to drain the outbox.
type OutboxReader interface {
	FetchUnsent(ctx context.Context, limit int) ([]OutboxRecord, error)
	FetchByID(ctx context.Context, id uuid.UUID) (*OutboxRecord, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
}
