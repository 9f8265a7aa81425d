package events

import (
	"time"
)

// Event payload types shared by the draft core, the gateway and the orchestrator

// SessionPayload is carried by every session lifecycle event.
type SessionPayload struct {
	SessionID   string    `json:"session_id"`
	SeasonID    string    `json:"season_id"`
	DraftType   string    `json:"draft_type"`
	Status      string    `json:"status"`
	TotalRounds int       `json:"total_rounds"`
	TotalPicks  int       `json:"total_picks"`
	PicksMade   int       `json:"picks_made"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}

// PickStartedPayload is the payload for a PickStarted event. It opens a turn
// and carries the deadline the pick timer is armed with.
type PickStartedPayload struct {
	SessionID      string    `json:"session_id"`
	TeamID         string    `json:"team_id"`
	Round          int       `json:"round"`
	PickNumber     int       `json:"pick_number"`
	StartedAt      time.Time `json:"started_at"`
	TimeoutAt      time.Time `json:"timeout_at"`
	TimePerPickSec int       `json:"time_per_pick_sec"`
	SkippedPicks   []int     `json:"skipped_picks,omitempty"`
}

// PickMadePayload is the payload for a PickMade event
type PickMadePayload struct {
	PickID          string    `json:"pick_id"`
	SessionID       string    `json:"session_id"`
	TeamID          string    `json:"team_id"`
	AssetID         string    `json:"asset_id,omitempty"`
	AssetName       string    `json:"asset_name,omitempty"`
	Round           int       `json:"round"`
	PickNumber      int       `json:"pick_number"`
	Sequence        int       `json:"sequence"`
	PointValue      int       `json:"point_value"`
	Resolution      string    `json:"resolution"`
	WasAutoResolved bool      `json:"was_auto_resolved"`
	PointsSpent     int       `json:"points_spent"`
	PointsRemaining int       `json:"points_remaining"`
	RosterSize      int       `json:"roster_size"`
	MadeAt          time.Time `json:"made_at"`
}

// LotPayload is the payload for auction nomination, bid and resolution events
type LotPayload struct {
	SessionID    string    `json:"session_id"`
	PickNumber   int       `json:"pick_number"`
	AssetID      string    `json:"asset_id"`
	AssetName    string    `json:"asset_name"`
	NominatedBy  string    `json:"nominated_by"`
	Phase        string    `json:"phase"`
	HighBid      int       `json:"high_bid"`
	HighBidderID string    `json:"high_bidder_id"`
	ClosesAt     time.Time `json:"closes_at"`
}

// TransactionAppliedPayload is the payload for a TransactionApplied event
type TransactionAppliedPayload struct {
	TransactionID    string    `json:"transaction_id"`
	SeasonID         string    `json:"season_id"`
	TeamID           string    `json:"team_id"`
	Kind             string    `json:"kind"`
	AddedAssetID     string    `json:"added_asset_id,omitempty"`
	DroppedAssetID   string    `json:"dropped_asset_id,omitempty"`
	PointDelta       int       `json:"point_delta"`
	PointsSpent      int       `json:"points_spent"`
	PointsRemaining  int       `json:"points_remaining"`
	RosterAssetIDs   []string  `json:"roster_asset_ids"`
	TransactionsUsed int       `json:"transactions_used"`
	Week             int       `json:"week"`
	AppliedAt        time.Time `json:"applied_at"`
}
