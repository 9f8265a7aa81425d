package freeagency

import (
	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
)

// SubmitTransactionRequest describes one free agency move. Add needs
// AddAssetID, drop needs DropAssetID, trade needs both.
type SubmitTransactionRequest struct {
	SeasonID    uuid.UUID              `json:"season_id"`
	TeamID      uuid.UUID              `json:"team_id,omitempty"`
	Kind        models.TransactionKind `json:"kind"`
	AddAssetID  uuid.UUID              `json:"add_asset_id,omitempty"`
	DropAssetID uuid.UUID              `json:"drop_asset_id,omitempty"`
	// RefundPoints settles the dropped asset for less than the team paid for
	// it. Admin only; never more than PointsPaid.
	RefundPoints *int `json:"refund_points,omitempty"`
	// Week overrides the season's current week. Admin only.
	Week *int `json:"week,omitempty"`
	// Admin is set by the service from the caller's role, never from the
	// wire.
	Admin bool `json:"-"`
}

type SubmitTransactionResponse struct {
	Transaction *models.Transaction `json:"transaction"`
	Status      *TeamStatus         `json:"status"`
}

type ListTransactionsRequest struct {
	SeasonID uuid.UUID `json:"season_id"`
	TeamID   uuid.UUID `json:"team_id,omitempty"`
	Limit    int       `json:"limit,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

type GetTeamStatusRequest struct {
	SeasonID uuid.UUID `json:"season_id"`
	TeamID   uuid.UUID `json:"team_id"`
}

type GetTeamStatusResponse struct {
	Status *TeamStatus `json:"status"`
}

// TeamStatus is a team's budget and roster as the ledger sees it.
type TeamStatus struct {
	SeasonID              uuid.UUID            `json:"season_id"`
	TeamID                uuid.UUID            `json:"team_id"`
	TeamName              string               `json:"team_name"`
	Budget                int                  `json:"budget"`
	PointsSpent           int                  `json:"points_spent"`
	PointsRemaining       int                  `json:"points_remaining"`
	Roster                []models.RosterEntry `json:"roster"`
	RosterSize            int                  `json:"roster_size"`
	MinRosterSize         int                  `json:"min_roster_size"`
	MaxRosterSize         int                  `json:"max_roster_size"`
	TransactionsUsed      int                  `json:"transactions_used"`
	TransactionsRemaining int                  `json:"transactions_remaining"`
	CurrentWeek           int                  `json:"current_week"`
	FreeAgencyDeadline    int                  `json:"free_agency_deadline"`
	CanTransact           bool                 `json:"can_transact"`
}
