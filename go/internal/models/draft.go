package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftType defines the type of draft.
type DraftType string

const (
	DraftTypeSnake   DraftType = "snake"
	DraftTypeLinear  DraftType = "linear"
	DraftTypeAuction DraftType = "auction"
)

// Valid reports whether t is a known draft type.
func (t DraftType) Valid() bool {
	switch t {
	case DraftTypeSnake, DraftTypeLinear, DraftTypeAuction:
		return true
	}
	return false
}

// DraftStatus defines the status of a draft session.
type DraftStatus string

const (
	DraftStatusPending   DraftStatus = "pending"
	DraftStatusActive    DraftStatus = "active"
	DraftStatusPaused    DraftStatus = "paused"
	DraftStatusCompleted DraftStatus = "completed"
	DraftStatusCancelled DraftStatus = "cancelled"
	// DraftStatusHalted is entered when a stored invariant is found broken.
	// Only an admin cancel leaves it.
	DraftStatusHalted DraftStatus = "halted"
)

// Open reports whether a session in this status still blocks a new session
// for the same season.
func (s DraftStatus) Open() bool {
	switch s {
	case DraftStatusPending, DraftStatusActive, DraftStatusPaused, DraftStatusHalted:
		return true
	}
	return false
}

// TimeoutPolicy selects how an expired pick clock resolves the turn.
type TimeoutPolicy string

const (
	TimeoutPolicyAutoSkip TimeoutPolicy = "auto_skip"
	TimeoutPolicyAutoPick TimeoutPolicy = "auto_pick"
)

// Valid reports whether p is a known policy.
func (p TimeoutPolicy) Valid() bool {
	return p == TimeoutPolicyAutoSkip || p == TimeoutPolicyAutoPick
}

// DraftSession is the persisted turn pointer for one season's draft.
type DraftSession struct {
	ID                   uuid.UUID     `json:"id"`
	SeasonID             uuid.UUID     `json:"season_id"`
	DraftType            DraftType     `json:"draft_type"`
	Status               DraftStatus   `json:"status"`
	TurnOrder            []uuid.UUID   `json:"turn_order"`
	TotalTeams           int           `json:"total_teams"`
	TotalRounds          int           `json:"total_rounds"`
	CurrentRound         int           `json:"current_round"`
	CurrentPickNumber    int           `json:"current_pick_number"`
	CurrentTeamID        uuid.UUID     `json:"current_team_id"`
	PicksMade            int           `json:"picks_made"`
	PickTimeLimitSeconds int           `json:"pick_time_limit_seconds"`
	TimeoutPolicy        TimeoutPolicy `json:"timeout_policy"`
	PickDeadline         *time.Time    `json:"pick_deadline,omitempty"`
	Lot                  *AuctionLot   `json:"lot,omitempty"`
	EventSeq             int64         `json:"event_seq"`
	HaltReason           string        `json:"halt_reason,omitempty"`
	Version              int64         `json:"version"`
	CreatedAt            time.Time     `json:"created_at"`
	StartedAt            *time.Time    `json:"started_at,omitempty"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// TotalSlots is the number of pick slots the session can hold.
func (s *DraftSession) TotalSlots() int {
	return s.TotalTeams * s.TotalRounds
}

// PickTimeLimit returns the per-turn clock as a duration.
func (s *DraftSession) PickTimeLimit() time.Duration {
	return time.Duration(s.PickTimeLimitSeconds) * time.Second
}

// Clone returns a deep copy.
func (s DraftSession) Clone() DraftSession {
	out := s
	out.TurnOrder = append([]uuid.UUID(nil), s.TurnOrder...)
	out.PickDeadline = cloneTime(s.PickDeadline)
	out.StartedAt = cloneTime(s.StartedAt)
	out.CompletedAt = cloneTime(s.CompletedAt)
	if s.Lot != nil {
		lot := s.Lot.Clone()
		out.Lot = &lot
	}
	return out
}

// AuctionPhase is the sub-state of an auction turn.
type AuctionPhase string

const (
	AuctionPhaseNominationOpen AuctionPhase = "nomination_open"
	AuctionPhaseBiddingOpen    AuctionPhase = "bidding_open"
	AuctionPhaseResolved       AuctionPhase = "resolved"
)

// AuctionLot is the asset currently up for bidding in an auction draft.
type AuctionLot struct {
	AssetID      uuid.UUID    `json:"asset_id"`
	NominatedBy  uuid.UUID    `json:"nominated_by"`
	Phase        AuctionPhase `json:"phase"`
	HighBid      int          `json:"high_bid"`
	HighBidderID uuid.UUID    `json:"high_bidder_id"`
	HighBidAt    time.Time    `json:"high_bid_at"`
	ClosesAt     time.Time    `json:"closes_at"`
	Bids         []Bid        `json:"bids"`
}

// Bid is one committed bid on a lot.
type Bid struct {
	TeamID   uuid.UUID `json:"team_id"`
	Amount   int       `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
}

// Clone returns a deep copy.
func (l AuctionLot) Clone() AuctionLot {
	out := l
	out.Bids = append([]Bid(nil), l.Bids...)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
