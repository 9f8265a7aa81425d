package draft

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/turn"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/ledger"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/lockmap"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/pool"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

const (
	defaultPickTimeLimitSec = 45
	maxConflictRetries      = 3
)

// App owns the draft session lifecycle. Every mutation of a session runs
// under that session's lock and inside one storage unit of work; events are
// handed to the notifier after commit, still under the lock, so subscribers
// see them in commit order.
type App struct {
	store    storage.Store
	notifier events.Notifier
	clock    clockwork.Clock
	strategy AutoPickStrategy
	locks    *lockmap.Map
	rng      *rand.Rand
}

// Option configures an App.
type Option func(*App)

// WithClock sets the clock used for deadlines and timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithAutoPickStrategy replaces the default lowest-index strategy.
func WithAutoPickStrategy(s AutoPickStrategy) Option {
	return func(a *App) { a.strategy = s }
}

// WithRand seeds turn order shuffling.
func WithRand(r *rand.Rand) Option {
	return func(a *App) { a.rng = r }
}

// NewApp creates a new draft App
func NewApp(store storage.Store, notifier events.Notifier, opts ...Option) *App {
	if notifier == nil {
		notifier = events.Nop{}
	}
	a := &App{
		store:    store,
		notifier: notifier,
		clock:    clockwork.NewRealClock(),
		strategy: LowestIndexStrategy{},
		locks:    lockmap.New(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// unit is the state one session mutation works on.
type unit struct {
	tx      storage.Tx
	session *models.DraftSession
	season  *models.Season
	ledger  *ledger.Ledger
	pool    *pool.Registry
	now     time.Time
	events  []events.Envelope
}

func (u *unit) emit(t events.EventType, payload any) error {
	u.session.EventSeq++
	env, err := events.New(t, u.session.SeasonID, u.session.ID, u.session.ID, u.session.EventSeq, u.now, payload)
	if err != nil {
		return err
	}
	u.events = append(u.events, env)
	return nil
}

func (u *unit) sessionPayload(reason string) events.SessionPayload {
	s := u.session
	return events.SessionPayload{
		SessionID:   s.ID.String(),
		SeasonID:    s.SeasonID.String(),
		DraftType:   string(s.DraftType),
		Status:      string(s.Status),
		TotalRounds: s.TotalRounds,
		TotalPicks:  s.TotalSlots(),
		PicksMade:   s.PicksMade,
		Reason:      reason,
		At:          u.now,
	}
}

// mutate runs fn against a locked, freshly loaded session and persists the
// session afterwards. Version conflicts are retried.
func (a *App) mutate(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context, u *unit) error) (*models.DraftSession, error) {
	unlock := a.locks.Lock(sessionID)
	defer unlock()

	s, emitted, err := a.runUnit(ctx, sessionID, fn)
	if err != nil {
		if errors.Is(err, rejection.ErrInvariantViolation) {
			a.halt(ctx, sessionID, err)
		}
		return nil, err
	}
	a.publish(ctx, emitted)
	return s, nil
}

func (a *App) runUnit(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context, u *unit) error) (*models.DraftSession, []events.Envelope, error) {
	var (
		out     *models.DraftSession
		emitted []events.Envelope
		err     error
	)
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err = a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			s, err := tx.Sessions().Get(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("failed to load session: %w", err)
			}
			season, err := tx.Seasons().Get(ctx, s.SeasonID)
			if err != nil {
				return fmt.Errorf("failed to load season: %w", err)
			}
			now := a.clock.Now().UTC()
			u := &unit{
				tx:      tx,
				session: s,
				season:  season,
				ledger:  ledger.New(season).WithClock(a.clock.Now),
				pool:    pool.New(tx.Assets()),
				now:     now,
			}
			if err := fn(ctx, u); err != nil {
				return err
			}
			s.UpdatedAt = now
			if err := writeOutbox(ctx, tx, u.events); err != nil {
				return err
			}
			if err := tx.Sessions().Update(ctx, s); err != nil {
				return fmt.Errorf("failed to update session: %w", err)
			}
			out, emitted = s, u.events
			return nil
		})
		if !errors.Is(err, storage.ErrVersionConflict) {
			break
		}
		log.Warn().
			Str("session_id", sessionID.String()).
			Int("attempt", attempt).
			Msg("session version conflict, retrying")
	}
	if err != nil {
		return nil, nil, err
	}
	return out, emitted, nil
}

func writeOutbox(ctx context.Context, tx storage.Tx, evs []events.Envelope) error {
	for _, env := range evs {
		rec, err := env.Record()
		if err != nil {
			return err
		}
		if err := tx.Outbox().Insert(ctx, rec); err != nil {
			return fmt.Errorf("failed to insert %s event: %w", env.Type, err)
		}
	}
	return nil
}

func (a *App) publish(ctx context.Context, evs []events.Envelope) {
	for _, env := range evs {
		a.notifier.Notify(ctx, env)
	}
}

// CreateSession creates a pending session for a season. A season may hold only
// one session that has not finished.
func (a *App) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.DraftSession, error) {
	if err := a.validateCreateSessionRequest(req); err != nil {
		return nil, err
	}

	unlock := a.locks.Lock(req.SeasonID)
	defer unlock()

	var (
		session *models.DraftSession
		evs     []events.Envelope
	)
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		season, err := tx.Seasons().Get(ctx, req.SeasonID)
		if err != nil {
			return fmt.Errorf("failed to load season: %w", err)
		}

		existing, err := tx.Sessions().ListBySeason(ctx, req.SeasonID)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		for _, s := range existing {
			if s.Status.Open() {
				return rejection.New(rejection.SessionAlreadyActive, "season %s already has %s session %s", req.SeasonID, s.Status, s.ID)
			}
		}

		teams, err := tx.Teams().ListBySeason(ctx, req.SeasonID)
		if err != nil {
			return fmt.Errorf("failed to list teams: %w", err)
		}
		order, err := a.turnOrder(req.TurnOrder, teams)
		if err != nil {
			return err
		}

		now := a.clock.Now().UTC()
		s := &models.DraftSession{
			ID:                   uuid.New(),
			SeasonID:             season.ID,
			DraftType:            req.DraftType,
			Status:               models.DraftStatusPending,
			TurnOrder:            order,
			TotalTeams:           len(order),
			TotalRounds:          req.TotalRounds,
			PickTimeLimitSeconds: req.PickTimeLimitSeconds,
			TimeoutPolicy:        req.TimeoutPolicy,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		applySessionDefaults(s, season)

		u := &unit{tx: tx, session: s, season: season, now: now}
		if err := u.emit(events.EventTypeSessionCreated, u.sessionPayload("")); err != nil {
			return err
		}
		if err := tx.Sessions().Create(ctx, s); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return rejection.New(rejection.SessionAlreadyActive, "season %s already has an open session", req.SeasonID)
			}
			return fmt.Errorf("failed to create session: %w", err)
		}
		if err := writeOutbox(ctx, tx, u.events); err != nil {
			return err
		}
		session, evs = s, u.events
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.publish(ctx, evs)
	log.Info().
		Str("session_id", session.ID.String()).
		Str("season_id", session.SeasonID.String()).
		Str("draft_type", string(session.DraftType)).
		Int("teams", session.TotalTeams).
		Int("rounds", session.TotalRounds).
		Msg("draft session created")
	return session, nil
}

func applySessionDefaults(s *models.DraftSession, season *models.Season) {
	if s.DraftType == "" {
		s.DraftType = models.DraftTypeSnake
	}
	if s.TotalRounds <= 0 {
		s.TotalRounds = season.MaxRosterSize
	}
	if s.PickTimeLimitSeconds <= 0 {
		s.PickTimeLimitSeconds = season.DefaultPickTimeLimitSec
	}
	if s.PickTimeLimitSeconds <= 0 {
		s.PickTimeLimitSeconds = defaultPickTimeLimitSec
	}
	if s.TimeoutPolicy == "" {
		s.TimeoutPolicy = season.DefaultTimeoutPolicy
	}
	if !s.TimeoutPolicy.Valid() {
		s.TimeoutPolicy = models.TimeoutPolicyAutoSkip
	}
}

// turnOrder validates an explicit order or shuffles the season's teams.
func (a *App) turnOrder(requested []uuid.UUID, teams []models.TeamSeason) ([]uuid.UUID, error) {
	if len(teams) == 0 {
		return nil, rejection.Invalid("season has no teams")
	}
	known := make(map[uuid.UUID]bool, len(teams))
	for _, t := range teams {
		known[t.TeamID] = true
	}

	if len(requested) > 0 {
		seen := make(map[uuid.UUID]bool, len(requested))
		for _, id := range requested {
			if !known[id] {
				return nil, rejection.Invalid("team %s is not part of the season", id)
			}
			if seen[id] {
				return nil, rejection.Invalid("team %s appears twice in the turn order", id)
			}
			seen[id] = true
		}
		return append([]uuid.UUID(nil), requested...), nil
	}

	order := make([]uuid.UUID, 0, len(teams))
	for _, t := range teams {
		order = append(order, t.TeamID)
	}
	a.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order, nil
}

// StartSession moves a pending session to active and opens the first turn.
func (a *App) StartSession(ctx context.Context, sessionID uuid.UUID) (*models.DraftSession, error) {
	s, err := a.mutate(ctx, sessionID, func(ctx context.Context, u *unit) error {
		s := u.session
		if s.Status != models.DraftStatusPending {
			return rejection.New(rejection.SessionNotActive, "session is %s", s.Status)
		}
		s.Status = models.DraftStatusActive
		s.StartedAt = &u.now
		if err := u.emit(events.EventTypeSessionStarted, u.sessionPayload("")); err != nil {
			return err
		}

		eligible, err := a.eligibility(ctx, u)
		if err != nil {
			return err
		}
		return a.openTurn(u, turn.First(s, eligible))
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("session_id", sessionID.String()).Msg("draft session started")
	return s, nil
}

// PauseSession stops the pick clock of an active session.
func (a *App) PauseSession(ctx context.Context, sessionID uuid.UUID, reason string) (*models.DraftSession, error) {
	return a.mutate(ctx, sessionID, func(ctx context.Context, u *unit) error {
		s := u.session
		if err := validateStatusTransition(s.Status, models.DraftStatusPaused); err != nil {
			return rejection.New(rejection.SessionNotActive, "%v", err)
		}
		s.Status = models.DraftStatusPaused
		s.PickDeadline = nil
		return u.emit(events.EventTypeSessionPaused, u.sessionPayload(reason))
	})
}

// ResumeSession restarts a paused session with a fresh pick clock.
func (a *App) ResumeSession(ctx context.Context, sessionID uuid.UUID) (*models.DraftSession, error) {
	return a.mutate(ctx, sessionID, func(ctx context.Context, u *unit) error {
		s := u.session
		if s.Status != models.DraftStatusPaused {
			return rejection.New(rejection.SessionNotActive, "session is %s", s.Status)
		}
		s.Status = models.DraftStatusActive
		if err := u.emit(events.EventTypeSessionResumed, u.sessionPayload("")); err != nil {
			return err
		}
		deadline := u.now.Add(s.PickTimeLimit())
		s.PickDeadline = &deadline
		if s.Lot != nil && s.Lot.Phase == models.AuctionPhaseBiddingOpen {
			s.Lot.ClosesAt = deadline
			return u.emit(events.EventTypeBidPlaced, lotPayload(s, nil))
		}
		return u.emit(events.EventTypePickStarted, pickStartedPayload(u, nil))
	})
}

// CancelSession is the admin override; it is terminal.
func (a *App) CancelSession(ctx context.Context, sessionID uuid.UUID, reason string) (*models.DraftSession, error) {
	s, err := a.mutate(ctx, sessionID, func(ctx context.Context, u *unit) error {
		s := u.session
		if !s.Status.Open() {
			return rejection.New(rejection.SessionNotActive, "session is already %s", s.Status)
		}
		s.Status = models.DraftStatusCancelled
		s.PickDeadline = nil
		s.CurrentTeamID = uuid.Nil
		s.Lot = nil
		return u.emit(events.EventTypeSessionCancelled, u.sessionPayload(reason))
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("session_id", sessionID.String()).Str("reason", reason).Msg("draft session cancelled")
	return s, nil
}

// GetSession returns the full session row.
func (a *App) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.DraftSession, error) {
	var out *models.DraftSession
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		s, err := tx.Sessions().Get(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		out = s
		return nil
	})
	return out, err
}

// GetSessionState returns the read-only projection clients poll when the
// real-time channel is unavailable.
func (a *App) GetSessionState(ctx context.Context, sessionID uuid.UUID) (*SessionState, error) {
	s, err := a.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return stateOf(s), nil
}

// ListPicks returns the session's pick log in order.
func (a *App) ListPicks(ctx context.Context, sessionID uuid.UUID) ([]models.DraftPick, error) {
	var out []models.DraftPick
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		picks, err := tx.Picks().ListBySession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to list picks: %w", err)
		}
		out = picks
		return nil
	})
	return out, err
}

// ListSessions returns every session of a season, oldest first.
func (a *App) ListSessions(ctx context.Context, seasonID uuid.UUID) ([]models.DraftSession, error) {
	var out []models.DraftSession
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		sessions, err := tx.Sessions().ListBySeason(ctx, seasonID)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		out = sessions
		return nil
	})
	return out, err
}

// PendingDeadlines lists the armed pick clocks of all active sessions, so a
// restarted timer service can re-arm them.
func (a *App) PendingDeadlines(ctx context.Context) ([]Deadline, error) {
	var out []Deadline
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		sessions, err := tx.Sessions().ListByStatus(ctx, models.DraftStatusActive)
		if err != nil {
			return fmt.Errorf("failed to list active sessions: %w", err)
		}
		for _, s := range sessions {
			if s.PickDeadline == nil {
				continue
			}
			out = append(out, Deadline{SessionID: s.ID, PickNumber: s.CurrentPickNumber, Deadline: *s.PickDeadline})
		}
		return nil
	})
	return out, err
}

// validateStatusTransition validates that a status transition is allowed
func validateStatusTransition(currentStatus, newStatus models.DraftStatus) error {
	allowedTransitions := map[models.DraftStatus][]models.DraftStatus{
		models.DraftStatusPending:   {models.DraftStatusActive, models.DraftStatusCancelled},
		models.DraftStatusActive:    {models.DraftStatusPaused, models.DraftStatusCompleted, models.DraftStatusCancelled, models.DraftStatusHalted},
		models.DraftStatusPaused:    {models.DraftStatusActive, models.DraftStatusCancelled, models.DraftStatusHalted},
		models.DraftStatusHalted:    {models.DraftStatusCancelled},
		models.DraftStatusCompleted: {}, // No transitions allowed from completed
		models.DraftStatusCancelled: {}, // No transitions allowed from cancelled
	}

	allowedNext, exists := allowedTransitions[currentStatus]
	if !exists {
		return fmt.Errorf("unknown current status: %s", currentStatus)
	}

	for _, allowed := range allowedNext {
		if newStatus == allowed {
			return nil
		}
	}

	return fmt.Errorf("transition from %s to %s is not allowed", currentStatus, newStatus)
}

// validateCreateSessionRequest validates the create session request
func (a *App) validateCreateSessionRequest(req CreateSessionRequest) error {
	if req.SeasonID == uuid.Nil {
		return rejection.Invalid("season_id is required")
	}
	if req.DraftType != "" && !req.DraftType.Valid() {
		return rejection.Invalid("unknown draft type %q", req.DraftType)
	}
	if req.PickTimeLimitSeconds < 0 {
		return rejection.Invalid("pick_time_limit_seconds cannot be negative")
	}
	if req.TotalRounds < 0 {
		return rejection.Invalid("total_rounds cannot be negative")
	}
	if req.TimeoutPolicy != "" && !req.TimeoutPolicy.Valid() {
		return rejection.Invalid("unknown timeout policy %q", req.TimeoutPolicy)
	}
	return nil
}
