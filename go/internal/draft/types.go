package draft

import (
	"time"

	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
)

// CreateSessionRequest holds the parameters for creating a draft session.
// Zero values fall back to the season defaults.
type CreateSessionRequest struct {
	SeasonID             uuid.UUID            `json:"season_id"`
	DraftType            models.DraftType     `json:"draft_type"`
	PickTimeLimitSeconds int                  `json:"pick_time_limit_seconds"`
	TotalRounds          int                  `json:"total_rounds,omitempty"`
	TurnOrder            []uuid.UUID          `json:"turn_order,omitempty"`
	TimeoutPolicy        models.TimeoutPolicy `json:"timeout_policy,omitempty"`
}

// SessionState is the read-only projection of a session's turn pointer.
type SessionState struct {
	SessionID         uuid.UUID            `json:"session_id"`
	SeasonID          uuid.UUID            `json:"season_id"`
	DraftType         models.DraftType     `json:"draft_type"`
	Status            models.DraftStatus   `json:"status"`
	CurrentRound      int                  `json:"current_round"`
	CurrentPickNumber int                  `json:"current_pick_number"`
	CurrentTeamID     uuid.UUID            `json:"current_team_id"`
	TotalRounds       int                  `json:"total_rounds"`
	TotalPicks        int                  `json:"total_picks"`
	PicksMade         int                  `json:"picks_made"`
	PickDeadline      *time.Time           `json:"pick_deadline,omitempty"`
	TimeoutPolicy     models.TimeoutPolicy `json:"timeout_policy"`
	TurnOrder         []uuid.UUID          `json:"turn_order"`
	Lot               *models.AuctionLot   `json:"lot,omitempty"`
	HaltReason        string               `json:"halt_reason,omitempty"`
	Version           int64                `json:"version"`
}

// Deadline is an armed pick clock.
type Deadline struct {
	SessionID  uuid.UUID `json:"session_id"`
	PickNumber int       `json:"pick_number"`
	Deadline   time.Time `json:"deadline"`
}

func stateOf(s *models.DraftSession) *SessionState {
	return &SessionState{
		SessionID:         s.ID,
		SeasonID:          s.SeasonID,
		DraftType:         s.DraftType,
		Status:            s.Status,
		CurrentRound:      s.CurrentRound,
		CurrentPickNumber: s.CurrentPickNumber,
		CurrentTeamID:     s.CurrentTeamID,
		TotalRounds:       s.TotalRounds,
		TotalPicks:        s.TotalSlots(),
		PicksMade:         s.PicksMade,
		PickDeadline:      s.PickDeadline,
		TimeoutPolicy:     s.TimeoutPolicy,
		TurnOrder:         s.TurnOrder,
		Lot:               s.Lot,
		HaltReason:        s.HaltReason,
		Version:           s.Version,
	}
}

func pickStartedPayload(u *unit, skipped []int) events.PickStartedPayload {
	s := u.session
	p := events.PickStartedPayload{
		SessionID:      s.ID.String(),
		TeamID:         s.CurrentTeamID.String(),
		Round:          s.CurrentRound,
		PickNumber:     s.CurrentPickNumber,
		StartedAt:      u.now,
		TimePerPickSec: s.PickTimeLimitSeconds,
		SkippedPicks:   skipped,
	}
	if s.PickDeadline != nil {
		p.TimeoutAt = *s.PickDeadline
	}
	return p
}

func lotPayload(s *models.DraftSession, asset *models.DraftableAsset) events.LotPayload {
	p := events.LotPayload{SessionID: s.ID.String(), PickNumber: s.CurrentPickNumber}
	if s.Lot != nil {
		p.AssetID = s.Lot.AssetID.String()
		p.NominatedBy = s.Lot.NominatedBy.String()
		p.Phase = string(s.Lot.Phase)
		p.HighBid = s.Lot.HighBid
		p.HighBidderID = s.Lot.HighBidderID.String()
		p.ClosesAt = s.Lot.ClosesAt
	}
	if asset != nil {
		p.AssetName = asset.Name
	}
	return p
}
