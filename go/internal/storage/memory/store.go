// Package memory is an in-process storage.Store. A unit of work runs under a
// single store-wide lock against a copy of the state; the copy replaces the
// state only when the unit returns nil.
//
// Every unit copies the whole state, outbox included, so its cost grows with
// the store. It backs tests and single-process development; use
// storage/postgres for real leagues.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

const defaultMaxOutbox = 10000

type teamKey struct {
	seasonID uuid.UUID
	teamID   uuid.UUID
}

type state struct {
	seasons      map[uuid.UUID]models.Season
	teams        map[teamKey]models.TeamSeason
	assets       map[uuid.UUID]models.DraftableAsset
	sessions     map[uuid.UUID]models.DraftSession
	picks        map[uuid.UUID][]models.DraftPick
	transactions []models.Transaction
	outbox       []storage.OutboxRecord
}

func newState() *state {
	return &state{
		seasons:  make(map[uuid.UUID]models.Season),
		teams:    make(map[teamKey]models.TeamSeason),
		assets:   make(map[uuid.UUID]models.DraftableAsset),
		sessions: make(map[uuid.UUID]models.DraftSession),
		picks:    make(map[uuid.UUID][]models.DraftPick),
	}
}

func (s *state) clone() *state {
	out := &state{
		seasons:      make(map[uuid.UUID]models.Season, len(s.seasons)),
		teams:        make(map[teamKey]models.TeamSeason, len(s.teams)),
		assets:       make(map[uuid.UUID]models.DraftableAsset, len(s.assets)),
		sessions:     make(map[uuid.UUID]models.DraftSession, len(s.sessions)),
		picks:        make(map[uuid.UUID][]models.DraftPick, len(s.picks)),
		transactions: append([]models.Transaction(nil), s.transactions...),
		outbox:       append([]storage.OutboxRecord(nil), s.outbox...),
	}
	for k, v := range s.seasons {
		out.seasons[k] = v
	}
	for k, v := range s.teams {
		out.teams[k] = v.Clone()
	}
	for k, v := range s.assets {
		out.assets[k] = v.Clone()
	}
	for k, v := range s.sessions {
		out.sessions[k] = v.Clone()
	}
	for k, v := range s.picks {
		out.picks[k] = append([]models.DraftPick(nil), v...)
	}
	return out
}

// Store is the in-memory storage.Store.
type Store struct {
	mu        sync.Mutex
	st        *state
	maxOutbox int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxOutbox bounds the number of retained outbox records. Oldest records
// are dropped first.
func WithMaxOutbox(n int) Option {
	return func(s *Store) { s.maxOutbox = n }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{st: newState(), maxOutbox: defaultMaxOutbox}
	for _, o := range opts {
		o(s)
	}
	return s
}

// WithinTx implements storage.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, &tx{st: work, maxOutbox: s.maxOutbox}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// FetchUnsent implements storage.OutboxReader.
func (s *Store) FetchUnsent(ctx context.Context, limit int) ([]storage.OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []storage.OutboxRecord
	for _, rec := range s.st.outbox {
		if rec.SentAt != nil {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// FetchByID implements storage.OutboxReader.
func (s *Store) FetchByID(ctx context.Context, id uuid.UUID) (*storage.OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.st.outbox {
		if rec.ID == id {
			r := rec
			return &r, nil
		}
	}
	return nil, storage.ErrNotFound
}

// MarkSent implements storage.OutboxReader.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.st.outbox {
		if s.st.outbox[i].ID == id {
			now := time.Now().UTC()
			s.st.outbox[i].SentAt = &now
			return nil
		}
	}
	return storage.ErrNotFound
}

type tx struct {
	st        *state
	maxOutbox int
}

func (t *tx) Seasons() storage.SeasonRepository           { return seasonRepo{t.st} }
func (t *tx) Teams() storage.TeamSeasonRepository         { return teamRepo{t.st} }
func (t *tx) Assets() storage.AssetRepository             { return assetRepo{t.st} }
func (t *tx) Sessions() storage.SessionRepository         { return sessionRepo{t.st} }
func (t *tx) Picks() storage.PickRepository               { return pickRepo{t.st} }
func (t *tx) Transactions() storage.TransactionRepository { return txnRepo{t.st} }
func (t *tx) Outbox() storage.OutboxWriter                { return outboxRepo{t.st, t.maxOutbox} }

type seasonRepo struct{ st *state }

func (r seasonRepo) Create(ctx context.Context, s *models.Season) error {
	if _, ok := r.st.seasons[s.ID]; ok {
		return fmt.Errorf("season %s: %w", s.ID, storage.ErrConflict)
	}
	r.st.seasons[s.ID] = *s
	return nil
}

func (r seasonRepo) Get(ctx context.Context, id uuid.UUID) (*models.Season, error) {
	s, ok := r.st.seasons[id]
	if !ok {
		return nil, fmt.Errorf("season %s: %w", id, storage.ErrNotFound)
	}
	return &s, nil
}

func (r seasonRepo) Update(ctx context.Context, s *models.Season) error {
	if _, ok := r.st.seasons[s.ID]; !ok {
		return fmt.Errorf("season %s: %w", s.ID, storage.ErrNotFound)
	}
	r.st.seasons[s.ID] = *s
	return nil
}

type teamRepo struct{ st *state }

func (r teamRepo) Create(ctx context.Context, ts *models.TeamSeason) error {
	k := teamKey{ts.SeasonID, ts.TeamID}
	if _, ok := r.st.teams[k]; ok {
		return fmt.Errorf("team %s in season %s: %w", ts.TeamID, ts.SeasonID, storage.ErrConflict)
	}
	r.st.teams[k] = ts.Clone()
	return nil
}

func (r teamRepo) Get(ctx context.Context, seasonID, teamID uuid.UUID) (*models.TeamSeason, error) {
	ts, ok := r.st.teams[teamKey{seasonID, teamID}]
	if !ok {
		return nil, fmt.Errorf("team %s in season %s: %w", teamID, seasonID, storage.ErrNotFound)
	}
	c := ts.Clone()
	return &c, nil
}

func (r teamRepo) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.TeamSeason, error) {
	var out []models.TeamSeason
	for k, ts := range r.st.teams {
		if k.seasonID == seasonID {
			out = append(out, ts.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].TeamID.String() < out[j].TeamID.String()
	})
	return out, nil
}

func (r teamRepo) Update(ctx context.Context, ts *models.TeamSeason) error {
	k := teamKey{ts.SeasonID, ts.TeamID}
	cur, ok := r.st.teams[k]
	if !ok {
		return fmt.Errorf("team %s in season %s: %w", ts.TeamID, ts.SeasonID, storage.ErrNotFound)
	}
	if cur.Version != ts.Version {
		return fmt.Errorf("team %s: %w", ts.TeamID, storage.ErrVersionConflict)
	}
	ts.Version++
	r.st.teams[k] = ts.Clone()
	return nil
}

type assetRepo struct{ st *state }

func (r assetRepo) Create(ctx context.Context, a *models.DraftableAsset) error {
	if _, ok := r.st.assets[a.ID]; ok {
		return fmt.Errorf("asset %s: %w", a.ID, storage.ErrConflict)
	}
	r.st.assets[a.ID] = a.Clone()
	return nil
}

func (r assetRepo) Get(ctx context.Context, id uuid.UUID) (*models.DraftableAsset, error) {
	a, ok := r.st.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", id, storage.ErrNotFound)
	}
	c := a.Clone()
	return &c, nil
}

func (r assetRepo) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.DraftableAsset, error) {
	var out []models.DraftableAsset
	for _, a := range r.st.assets {
		if a.SeasonID == seasonID {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PoolIndex < out[j].PoolIndex })
	return out, nil
}

func (r assetRepo) UpdateStatus(ctx context.Context, a *models.DraftableAsset, expected models.AssetStatus) error {
	cur, ok := r.st.assets[a.ID]
	if !ok {
		return fmt.Errorf("asset %s: %w", a.ID, storage.ErrNotFound)
	}
	if cur.Status != expected {
		return fmt.Errorf("asset %s is %s, expected %s: %w", a.ID, cur.Status, expected, storage.ErrConflict)
	}
	r.st.assets[a.ID] = a.Clone()
	return nil
}

type sessionRepo struct{ st *state }

func (r sessionRepo) Create(ctx context.Context, s *models.DraftSession) error {
	if _, ok := r.st.sessions[s.ID]; ok {
		return fmt.Errorf("session %s: %w", s.ID, storage.ErrConflict)
	}
	if s.Status.Open() {
		for _, other := range r.st.sessions {
			if other.SeasonID == s.SeasonID && other.Status.Open() {
				return fmt.Errorf("season %s already has session %s: %w", s.SeasonID, other.ID, storage.ErrConflict)
			}
		}
	}
	r.st.sessions[s.ID] = s.Clone()
	return nil
}

func (r sessionRepo) Get(ctx context.Context, id uuid.UUID) (*models.DraftSession, error) {
	s, ok := r.st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	c := s.Clone()
	return &c, nil
}

func (r sessionRepo) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]models.DraftSession, error) {
	var out []models.DraftSession
	for _, s := range r.st.sessions {
		if s.SeasonID == seasonID {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r sessionRepo) ListByStatus(ctx context.Context, statuses ...models.DraftStatus) ([]models.DraftSession, error) {
	want := make(map[models.DraftStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []models.DraftSession
	for _, s := range r.st.sessions {
		if want[s.Status] {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r sessionRepo) Update(ctx context.Context, s *models.DraftSession) error {
	cur, ok := r.st.sessions[s.ID]
	if !ok {
		return fmt.Errorf("session %s: %w", s.ID, storage.ErrNotFound)
	}
	if cur.Version != s.Version {
		return fmt.Errorf("session %s: %w", s.ID, storage.ErrVersionConflict)
	}
	s.Version++
	r.st.sessions[s.ID] = s.Clone()
	return nil
}

type pickRepo struct{ st *state }

func (r pickRepo) Append(ctx context.Context, p *models.DraftPick) error {
	for _, existing := range r.st.picks[p.SessionID] {
		if existing.PickNumber == p.PickNumber || existing.Sequence == p.Sequence {
			return fmt.Errorf("pick %d in session %s: %w", p.PickNumber, p.SessionID, storage.ErrConflict)
		}
		if p.AssetID != nil && existing.AssetID != nil && *existing.AssetID == *p.AssetID {
			return fmt.Errorf("asset %s in session %s: %w", *p.AssetID, p.SessionID, storage.ErrConflict)
		}
	}
	r.st.picks[p.SessionID] = append(r.st.picks[p.SessionID], *p)
	return nil
}

func (r pickRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.DraftPick, error) {
	return append([]models.DraftPick(nil), r.st.picks[sessionID]...), nil
}

func (r pickRepo) Last(ctx context.Context, sessionID uuid.UUID) (*models.DraftPick, error) {
	picks := r.st.picks[sessionID]
	if len(picks) == 0 {
		return nil, storage.ErrNotFound
	}
	p := picks[len(picks)-1]
	return &p, nil
}

type txnRepo struct{ st *state }

func (r txnRepo) Append(ctx context.Context, t *models.Transaction) error {
	r.st.transactions = append(r.st.transactions, *t)
	return nil
}

func (r txnRepo) List(ctx context.Context, f storage.TransactionFilter) ([]models.Transaction, error) {
	var out []models.Transaction
	// newest first
	for i := len(r.st.transactions) - 1; i >= 0; i-- {
		t := r.st.transactions[i]
		if f.SeasonID != uuid.Nil && t.SeasonID != f.SeasonID {
			continue
		}
		if f.TeamID != uuid.Nil && t.TeamID != f.TeamID {
			continue
		}
		out = append(out, t)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

type outboxRepo struct {
	st  *state
	max int
}

func (r outboxRepo) Insert(ctx context.Context, rec storage.OutboxRecord) error {
	r.st.outbox = append(r.st.outbox, rec)
	if r.max > 0 && len(r.st.outbox) > r.max {
		r.st.outbox = append([]storage.OutboxRecord(nil), r.st.outbox[len(r.st.outbox)-r.max:]...)
	}
	return nil
}
