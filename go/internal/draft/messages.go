package draft

import (
	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
)

// Wire messages of DraftService.

type SessionRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	Reason    string    `json:"reason,omitempty"`
}

type SessionResponse struct {
	Session *models.DraftSession `json:"session"`
}

type AttemptPickRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	TeamID    uuid.UUID `json:"team_id,omitempty"`
	AssetID   uuid.UUID `json:"asset_id"`
}

type ResolveTimeoutRequest struct {
	SessionID          uuid.UUID `json:"session_id"`
	ExpectedPickNumber int       `json:"expected_pick_number"`
}

type PickResponse struct {
	Pick *models.DraftPick `json:"pick"`
}

type NominateRequest struct {
	SessionID  uuid.UUID `json:"session_id"`
	TeamID     uuid.UUID `json:"team_id,omitempty"`
	AssetID    uuid.UUID `json:"asset_id"`
	OpeningBid int       `json:"opening_bid"`
}

type PlaceBidRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	TeamID    uuid.UUID `json:"team_id,omitempty"`
	Amount    int       `json:"amount"`
}

type LotResponse struct {
	Lot *models.AuctionLot `json:"lot"`
}

type SessionStateResponse struct {
	State *SessionState `json:"state"`
}

type ListPicksResponse struct {
	Picks []models.DraftPick `json:"picks"`
}

type ListSessionsRequest struct {
	SeasonID uuid.UUID `json:"season_id"`
}

type ListSessionsResponse struct {
	Sessions []models.DraftSession `json:"sessions"`
}

type PendingDeadlinesRequest struct{}

type PendingDeadlinesResponse struct {
	Deadlines []Deadline `json:"deadlines"`
}
