// Package freeagency applies post-draft roster transactions against the same
// ledger and pool the draft uses.
package freeagency

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/ledger"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/lockmap"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/pool"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

const maxConflictRetries = 3

// App handles free agency business logic. Transactions of one team are
// serialized; different teams proceed in parallel.
type App struct {
	store    storage.Store
	notifier events.Notifier
	clock    clockwork.Clock
	locks    *lockmap.Map
}

// Option configures an App.
type Option func(*App)

// WithClock sets the clock used for timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(a *App) { a.clock = c }
}

// NewApp creates a new free agency App
func NewApp(store storage.Store, notifier events.Notifier, opts ...Option) *App {
	if notifier == nil {
		notifier = events.Nop{}
	}
	a := &App{
		store:    store,
		notifier: notifier,
		clock:    clockwork.NewRealClock(),
		locks:    lockmap.New(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// SubmitTransaction validates and applies one transaction. Every leg lands or
// none does.
func (a *App) SubmitTransaction(ctx context.Context, req SubmitTransactionRequest) (*models.Transaction, *TeamStatus, error) {
	if err := validateSubmitRequest(req); err != nil {
		return nil, nil, err
	}

	unlock := a.locks.Lock(req.TeamID)
	defer unlock()

	var (
		txn    *models.Transaction
		status *TeamStatus
		env    events.Envelope
		err    error
	)
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err = a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			var err error
			txn, status, env, err = a.apply(ctx, tx, req)
			return err
		})
		if !errors.Is(err, storage.ErrVersionConflict) {
			break
		}
		log.Warn().
			Str("team_id", req.TeamID.String()).
			Int("attempt", attempt).
			Msg("team version conflict, retrying")
	}
	if err != nil {
		if errors.Is(err, rejection.ErrInvariantViolation) {
			log.Error().
				Err(err).
				Str("season_id", req.SeasonID.String()).
				Str("team_id", req.TeamID.String()).
				Msg("team ledger failed verification")
		}
		return nil, nil, err
	}

	a.notifier.Notify(ctx, env)
	log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("team_id", txn.TeamID.String()).
		Str("kind", string(txn.Kind)).
		Int("point_delta", txn.PointDelta).
		Int("transactions_used", status.TransactionsUsed).
		Msg("free agency transaction applied")
	return txn, status, nil
}

func (a *App) apply(ctx context.Context, tx storage.Tx, req SubmitTransactionRequest) (*models.Transaction, *TeamStatus, events.Envelope, error) {
	var none events.Envelope
	now := a.clock.Now().UTC()

	season, err := tx.Seasons().Get(ctx, req.SeasonID)
	if err != nil {
		return nil, nil, none, fmt.Errorf("failed to load season: %w", err)
	}
	if err := requireCompletedDraft(ctx, tx, season.ID); err != nil {
		return nil, nil, none, err
	}
	team, err := tx.Teams().Get(ctx, season.ID, req.TeamID)
	if err != nil {
		return nil, nil, none, fmt.Errorf("failed to load team: %w", err)
	}

	led := ledger.New(season).WithClock(a.clock.Now)
	reg := pool.New(tx.Assets())
	if err := led.Verify(team); err != nil {
		return nil, nil, none, err
	}

	week := season.CurrentWeek
	if req.Week != nil {
		week = *req.Week
	}
	if err := led.CanTransact(team, week); err != nil {
		return nil, nil, none, err
	}

	txn := &models.Transaction{
		ID:        uuid.New(),
		TeamID:    team.TeamID,
		SeasonID:  season.ID,
		Kind:      req.Kind,
		Week:      week,
		CreatedAt: now,
	}

	// Validate both legs before touching anything.
	var (
		refund int
		added  *models.DraftableAsset
	)
	if req.DropAssetID != uuid.Nil {
		entry, ok := team.Entry(req.DropAssetID)
		if !ok {
			return nil, nil, none, rejection.New(rejection.AssetNotOnRoster, "asset %s is not on team %s", req.DropAssetID, team.TeamID)
		}
		if req.Kind == models.TransactionKindDrop && len(team.Roster)-1 < season.MinRosterSize {
			return nil, nil, none, rejection.New(rejection.RosterBelowMinimum, "dropping leaves %d assets, minimum %d", len(team.Roster)-1, season.MinRosterSize)
		}
		refund = entry.PointsPaid
		if req.RefundPoints != nil {
			refund = min(*req.RefundPoints, entry.PointsPaid)
		}
	}
	if req.AddAssetID != uuid.Nil {
		added, err = reg.Pickable(ctx, season.ID, req.AddAssetID)
		if err != nil {
			return nil, nil, none, err
		}
		if req.Kind == models.TransactionKindTrade {
			// The roster size is unchanged; only the net cost matters.
			net := team.PointsSpent - min(refund, team.PointsSpent) + added.PointValue
			if net > season.PointBudgetPerTeam {
				return nil, nil, none, rejection.New(rejection.BudgetExceeded, "trade leaves %d spent of %d", net, season.PointBudgetPerTeam)
			}
		} else if err := led.CheckAcquisition(team, added.PointValue); err != nil {
			return nil, nil, none, err
		}
	}

	if req.DropAssetID != uuid.Nil {
		refunded, err := led.ApplyRelease(team, req.DropAssetID, refund)
		if err != nil {
			return nil, nil, none, err
		}
		if err := releaseAsset(ctx, reg, tx, req.DropAssetID); err != nil {
			return nil, nil, none, err
		}
		id := req.DropAssetID
		txn.DroppedAssetID = &id
		txn.RefundedPoints = refunded
	}
	if added != nil {
		via := models.AcquisitionTypeFreeAgent
		if req.Kind == models.TransactionKindTrade {
			via = models.AcquisitionTypeTrade
		}
		if err := reg.MarkDrafted(ctx, added, team.TeamID); err != nil {
			return nil, nil, none, err
		}
		if err := led.ApplyAcquisition(team, added.ID, added.PointValue, via); err != nil {
			return nil, nil, none, err
		}
		id := added.ID
		txn.AddedAssetID = &id
		txn.AddedPoints = added.PointValue
	}
	txn.PointDelta = txn.AddedPoints - txn.RefundedPoints

	team.TransactionsUsed++
	team.UpdatedAt = now
	if err := tx.Teams().Update(ctx, team); err != nil {
		return nil, nil, none, fmt.Errorf("failed to update team ledger: %w", err)
	}
	if err := tx.Transactions().Append(ctx, txn); err != nil {
		return nil, nil, none, fmt.Errorf("failed to append transaction: %w", err)
	}

	env, err := events.New(events.EventTypeTransactionApplied, season.ID, uuid.Nil, team.ID, int64(team.TransactionsUsed), now, appliedPayload(txn, team, led))
	if err != nil {
		return nil, nil, none, err
	}
	rec, err := env.Record()
	if err != nil {
		return nil, nil, none, err
	}
	if err := tx.Outbox().Insert(ctx, rec); err != nil {
		return nil, nil, none, fmt.Errorf("failed to insert %s event: %w", env.Type, err)
	}
	return txn, statusOf(season, team, led), env, nil
}

// requireCompletedDraft allows free agency once the season's draft is over
// and no other session is open.
func requireCompletedDraft(ctx context.Context, tx storage.Tx, seasonID uuid.UUID) error {
	sessions, err := tx.Sessions().ListBySeason(ctx, seasonID)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	completed := false
	for _, s := range sessions {
		if s.Status.Open() {
			return rejection.New(rejection.DraftNotCompleted, "session %s is %s", s.ID, s.Status)
		}
		completed = completed || s.Status == models.DraftStatusCompleted
	}
	if !completed {
		return rejection.New(rejection.DraftNotCompleted, "season %s has no completed draft", seasonID)
	}
	return nil
}

// releaseAsset returns a dropped asset to the pool. Rostered assets that never
// came from the pool have nothing to release.
func releaseAsset(ctx context.Context, reg *pool.Registry, tx storage.Tx, assetID uuid.UUID) error {
	asset, err := tx.Assets().Get(ctx, assetID)
	if errors.Is(err, storage.ErrNotFound) {
		log.Warn().Str("asset_id", assetID.String()).Msg("dropped asset is not in the pool")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load dropped asset: %w", err)
	}
	return reg.Release(ctx, asset)
}

// ListTransactions returns transactions newest first.
func (a *App) ListTransactions(ctx context.Context, req ListTransactionsRequest) ([]models.Transaction, error) {
	if req.SeasonID == uuid.Nil {
		return nil, rejection.Invalid("season_id is required")
	}
	var out []models.Transaction
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		txns, err := tx.Transactions().List(ctx, storage.TransactionFilter{SeasonID: req.SeasonID, TeamID: req.TeamID, Limit: req.Limit})
		if err != nil {
			return fmt.Errorf("failed to list transactions: %w", err)
		}
		out = txns
		return nil
	})
	return out, err
}

// GetTeamStatus returns a team's budget, roster and transaction allowance.
func (a *App) GetTeamStatus(ctx context.Context, seasonID, teamID uuid.UUID) (*TeamStatus, error) {
	var out *TeamStatus
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		season, err := tx.Seasons().Get(ctx, seasonID)
		if err != nil {
			return fmt.Errorf("failed to load season: %w", err)
		}
		team, err := tx.Teams().Get(ctx, seasonID, teamID)
		if err != nil {
			return fmt.Errorf("failed to load team: %w", err)
		}
		out = statusOf(season, team, ledger.New(season))
		return nil
	})
	return out, err
}

func statusOf(season *models.Season, team *models.TeamSeason, led *ledger.Ledger) *TeamStatus {
	return &TeamStatus{
		SeasonID:              season.ID,
		TeamID:                team.TeamID,
		TeamName:              team.TeamName,
		Budget:                season.PointBudgetPerTeam,
		PointsSpent:           team.PointsSpent,
		PointsRemaining:       led.Remaining(team),
		Roster:                team.Roster,
		RosterSize:            len(team.Roster),
		MinRosterSize:         season.MinRosterSize,
		MaxRosterSize:         season.MaxRosterSize,
		TransactionsUsed:      team.TransactionsUsed,
		TransactionsRemaining: max(season.MaxFreeAgencyTransactions-team.TransactionsUsed, 0),
		CurrentWeek:           season.CurrentWeek,
		FreeAgencyDeadline:    season.FreeAgencyDeadline,
		CanTransact:           led.CanTransact(team, season.CurrentWeek) == nil,
	}
}

func appliedPayload(txn *models.Transaction, team *models.TeamSeason, led *ledger.Ledger) events.TransactionAppliedPayload {
	p := events.TransactionAppliedPayload{
		TransactionID:    txn.ID.String(),
		SeasonID:         txn.SeasonID.String(),
		TeamID:           txn.TeamID.String(),
		Kind:             string(txn.Kind),
		PointDelta:       txn.PointDelta,
		PointsSpent:      team.PointsSpent,
		PointsRemaining:  led.Remaining(team),
		RosterAssetIDs:   make([]string, 0, len(team.Roster)),
		TransactionsUsed: team.TransactionsUsed,
		Week:             txn.Week,
		AppliedAt:        txn.CreatedAt,
	}
	if txn.AddedAssetID != nil {
		p.AddedAssetID = txn.AddedAssetID.String()
	}
	if txn.DroppedAssetID != nil {
		p.DroppedAssetID = txn.DroppedAssetID.String()
	}
	for _, id := range team.RosterAssetIDs() {
		p.RosterAssetIDs = append(p.RosterAssetIDs, id.String())
	}
	return p
}

// validateSubmitRequest validates the shape of a transaction request
func validateSubmitRequest(req SubmitTransactionRequest) error {
	if req.SeasonID == uuid.Nil || req.TeamID == uuid.Nil {
		return rejection.Invalid("season_id and team_id are required")
	}
	hasAdd, hasDrop := req.AddAssetID != uuid.Nil, req.DropAssetID != uuid.Nil
	switch req.Kind {
	case models.TransactionKindAdd:
		if !hasAdd || hasDrop {
			return rejection.Invalid("add takes add_asset_id only")
		}
	case models.TransactionKindDrop:
		if hasAdd || !hasDrop {
			return rejection.Invalid("drop takes drop_asset_id only")
		}
	case models.TransactionKindTrade:
		if !hasAdd || !hasDrop {
			return rejection.Invalid("trade takes both add_asset_id and drop_asset_id")
		}
		if req.AddAssetID == req.DropAssetID {
			return rejection.Invalid("trade must exchange two different assets")
		}
	default:
		return rejection.Invalid("unknown transaction kind %q", req.Kind)
	}
	if req.RefundPoints != nil && *req.RefundPoints < 0 {
		return rejection.Invalid("refund_points cannot be negative")
	}
	if !req.Admin && (req.RefundPoints != nil || req.Week != nil) {
		return rejection.Invalid("refund_points and week are admin overrides")
	}
	return nil
}

