package draft

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/turn"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

// AttemptPick drafts assetID for teamID if it is that team's turn. Either
// every effect lands (pool, ledger, pick log, pointer) or none does.
func (a *App) AttemptPick(ctx context.Context, sessionID, teamID, assetID uuid.UUID) (*models.DraftPick, error) {
	var pick *models.DraftPick
	_, err := a.mutate(ctx, sessionID, func(ctx context.Context, u *unit) error {
		pick = nil
		s := u.session
		if s.Status != models.DraftStatusActive {
			return rejection.New(rejection.SessionNotActive, "session is %s", s.Status)
		}
		if s.DraftType == models.DraftTypeAuction {
			return rejection.New(rejection.NotYourTurn, "auction sessions acquire through nomination and bidding")
		}
		// A drafted asset refuses the same way whoever asks, so a retried
		// pick that already landed sees AlreadyDrafted rather than NotYourTurn.
		if status, err := u.pool.GetStatus(ctx, assetID); err == nil && status == models.AssetStatusDrafted {
			return rejection.New(rejection.AlreadyDrafted, "asset %s already drafted", assetID)
		}
		if teamID != s.CurrentTeamID {
			return rejection.New(rejection.NotYourTurn, "pick %d belongs to team %s", s.CurrentPickNumber, s.CurrentTeamID)
		}
		if err := a.verifyPointer(ctx, u); err != nil {
			return err
		}

		asset, err := u.pool.Pickable(ctx, s.SeasonID, assetID)
		if err != nil {
			return err
		}
		team, err := a.loadTeam(ctx, u, teamID)
		if err != nil {
			return err
		}
		if err := u.ledger.CheckAcquisition(team, asset.PointValue); err != nil {
			return err
		}

		p, err := a.acquire(ctx, u, team, asset, asset.PointValue, models.PickResolutionManual)
		if err != nil {
			return err
		}
		pick = p
		return a.advance(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("team_id", teamID.String()).
		Str("asset_id", assetID.String()).
		Int("pick_number", pick.PickNumber).
		Msg("pick made")
	return pick, nil
}

// ResolveTimeout is the pick timer's entry into the same critical section as
// AttemptPick. expectedPickNumber identifies the turn the timer was armed for;
// a timer that lost the race to a manual pick is refused with NotYourTurn.
func (a *App) ResolveTimeout(ctx context.Context, sessionID uuid.UUID, expectedPickNumber int) (*models.DraftPick, error) {
	return a.resolveTurn(ctx, sessionID, expectedPickNumber, false)
}

func (a *App) resolveTurn(ctx context.Context, sessionID uuid.UUID, expectedPickNumber int, force bool) (*models.DraftPick, error) {
	var pick *models.DraftPick
	_, err := a.mutate(ctx, sessionID, func(ctx context.Context, u *unit) error {
		pick = nil
		s := u.session
		if s.Status != models.DraftStatusActive {
			return rejection.New(rejection.SessionNotActive, "session is %s", s.Status)
		}
		if s.CurrentPickNumber != expectedPickNumber {
			return rejection.New(rejection.NotYourTurn, "timer for pick %d is stale, session is on pick %d", expectedPickNumber, s.CurrentPickNumber)
		}
		if !force && (s.PickDeadline == nil || u.now.Before(*s.PickDeadline)) {
			return rejection.New(rejection.NotYourTurn, "pick %d clock has not expired", expectedPickNumber)
		}
		if err := a.verifyPointer(ctx, u); err != nil {
			return err
		}

		var err error
		if s.DraftType == models.DraftTypeAuction {
			pick, err = a.resolveAuctionTimeout(ctx, u)
		} else {
			pick, err = a.autoResolve(ctx, u)
		}
		if err != nil {
			return err
		}
		return a.advance(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	ev := log.Info().
		Str("session_id", sessionID.String()).
		Int("pick_number", pick.PickNumber).
		Str("team_id", pick.TeamID.String()).
		Str("resolution", string(pick.Resolution))
	if pick.AssetID != nil {
		ev = ev.Str("asset_id", pick.AssetID.String())
	}
	ev.Msg("pick clock expired, turn auto-resolved")
	return pick, nil
}

// autoResolve applies the session's timeout policy to the current turn.
func (a *App) autoResolve(ctx context.Context, u *unit) (*models.DraftPick, error) {
	s := u.session
	team, err := a.loadTeam(ctx, u, s.CurrentTeamID)
	if err != nil {
		return nil, err
	}

	if s.TimeoutPolicy == models.TimeoutPolicyAutoPick && u.ledger.HasRosterRoom(team) {
		asset, err := a.strategy.Select(ctx, u.pool, u.season, team, u.ledger.Remaining(team))
		if err != nil {
			return nil, fmt.Errorf("failed to select auto pick: %w", err)
		}
		if asset != nil {
			return a.acquire(ctx, u, team, asset, asset.PointValue, models.PickResolutionAutoPick)
		}
		log.Info().
			Str("session_id", s.ID.String()).
			Str("team_id", team.TeamID.String()).
			Msg("no affordable asset for auto pick, skipping turn")
	}
	return a.recordTurn(ctx, u, team.TeamID, nil, 0, models.PickResolutionAutoSkip, team)
}

// acquire marks asset drafted, charges the team and records the pick.
func (a *App) acquire(ctx context.Context, u *unit, team *models.TeamSeason, asset *models.DraftableAsset, price int, resolution models.PickResolution) (*models.DraftPick, error) {
	via := models.AcquisitionTypeDraft
	if resolution == models.PickResolutionAuction {
		via = models.AcquisitionTypeAuction
	}
	if err := u.pool.MarkDrafted(ctx, asset, team.TeamID); err != nil {
		return nil, err
	}
	if err := u.ledger.ApplyAcquisition(team, asset.ID, price, via); err != nil {
		return nil, err
	}
	if err := u.tx.Teams().Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to update team ledger: %w", err)
	}
	return a.recordTurn(ctx, u, team.TeamID, asset, price, resolution, team)
}

// recordTurn appends the pick for the current slot and emits PickMade.
func (a *App) recordTurn(ctx context.Context, u *unit, teamID uuid.UUID, asset *models.DraftableAsset, price int, resolution models.PickResolution, team *models.TeamSeason) (*models.DraftPick, error) {
	s := u.session
	pick := &models.DraftPick{
		ID:               uuid.New(),
		SessionID:        s.ID,
		Sequence:         s.PicksMade + 1,
		Round:            s.CurrentRound,
		PickNumber:       s.CurrentPickNumber,
		TeamID:           teamID,
		PointValueAtPick: price,
		Resolution:       resolution,
		WasAutoResolved:  resolution == models.PickResolutionAutoPick || resolution == models.PickResolutionAutoSkip,
		PickedAt:         u.now,
	}
	if asset != nil {
		id := asset.ID
		pick.AssetID = &id
	}
	if err := u.tx.Picks().Append(ctx, pick); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, rejection.New(rejection.InvariantViolation, "pick log already holds pick %d or its asset: %v", pick.PickNumber, err)
		}
		return nil, fmt.Errorf("failed to append pick: %w", err)
	}
	s.PicksMade++

	payload := events.PickMadePayload{
		PickID:          pick.ID.String(),
		SessionID:       s.ID.String(),
		TeamID:          teamID.String(),
		Round:           pick.Round,
		PickNumber:      pick.PickNumber,
		Sequence:        pick.Sequence,
		PointValue:      price,
		Resolution:      string(resolution),
		WasAutoResolved: pick.WasAutoResolved,
		MadeAt:          u.now,
	}
	if asset != nil {
		payload.AssetID = asset.ID.String()
		payload.AssetName = asset.Name
	}
	if team != nil {
		payload.PointsSpent = team.PointsSpent
		payload.PointsRemaining = u.ledger.Remaining(team)
		payload.RosterSize = len(team.Roster)
	}
	if err := u.emit(events.EventTypePickMade, payload); err != nil {
		return nil, err
	}
	return pick, nil
}

// advance moves the pointer past the current slot, skipping teams that can
// no longer be handed a turn.
func (a *App) advance(ctx context.Context, u *unit) error {
	eligible, err := a.eligibility(ctx, u)
	if err != nil {
		return err
	}
	u.session.Lot = nil
	return a.openTurn(u, turn.Advance(u.session, eligible))
}

// openTurn applies p and announces either the next turn or completion.
func (a *App) openTurn(u *unit, p turn.Pointer) error {
	s := u.session
	turn.Apply(s, p)
	if p.Done {
		s.CompletedAt = &u.now
		log.Info().
			Str("session_id", s.ID.String()).
			Int("picks", s.PicksMade).
			Msg("draft session completed")
		return u.emit(events.EventTypeSessionCompleted, u.sessionPayload(""))
	}
	deadline := u.now.Add(s.PickTimeLimit())
	s.PickDeadline = &deadline
	if s.DraftType == models.DraftTypeAuction {
		s.Lot = &models.AuctionLot{Phase: models.AuctionPhaseNominationOpen, NominatedBy: s.CurrentTeamID, ClosesAt: deadline}
	}
	return u.emit(events.EventTypePickStarted, pickStartedPayload(u, p.Skipped))
}

// eligibility reports which teams can still take a turn. A team needs roster
// room; auction nominators also need at least one point left to open a bid.
func (a *App) eligibility(ctx context.Context, u *unit) (turn.Eligible, error) {
	teams, err := u.tx.Teams().ListBySeason(ctx, u.session.SeasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	ok := make(map[uuid.UUID]bool, len(teams))
	for i := range teams {
		t := &teams[i]
		room := u.ledger.HasRosterRoom(t)
		if u.session.DraftType == models.DraftTypeAuction {
			room = room && u.ledger.CanAfford(t, 1)
		}
		ok[t.TeamID] = room
	}
	return func(id uuid.UUID) bool { return ok[id] }, nil
}

func (a *App) loadTeam(ctx context.Context, u *unit, teamID uuid.UUID) (*models.TeamSeason, error) {
	team, err := u.tx.Teams().Get(ctx, u.session.SeasonID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	if err := u.ledger.Verify(team); err != nil {
		return nil, err
	}
	return team, nil
}
