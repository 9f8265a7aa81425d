package models

import (
	"time"

	"github.com/google/uuid"
)

// Season holds the rules every draft and free agency transaction is checked against.
type Season struct {
	ID                        uuid.UUID     `json:"id"`
	Name                      string        `json:"name"`
	PointBudgetPerTeam        int           `json:"point_budget_per_team"`
	TeraBudget                int           `json:"tera_budget"`
	MinRosterSize             int           `json:"min_roster_size"`
	MaxRosterSize             int           `json:"max_roster_size"`
	MaxFreeAgencyTransactions int           `json:"max_free_agency_transactions"`
	FreeAgencyDeadline        int           `json:"free_agency_deadline"` // last week index transactions are accepted
	TotalTeams                int           `json:"total_teams"`
	CurrentWeek               int           `json:"current_week"`
	DefaultPickTimeLimitSec   int           `json:"default_pick_time_limit_sec"`
	DefaultTimeoutPolicy      TimeoutPolicy `json:"default_timeout_policy"`
	CreatedAt                 time.Time     `json:"created_at"`
	UpdatedAt                 time.Time     `json:"updated_at"`
}

// AssetStatus is the pool status of a draftable asset.
type AssetStatus string

const (
	AssetStatusAvailable  AssetStatus = "available"
	AssetStatusBanned     AssetStatus = "banned"
	AssetStatusTeraBanned AssetStatus = "tera_banned"
	AssetStatusDrafted    AssetStatus = "drafted"
)

// DraftableAsset is one entry of a season's draft pool.
type DraftableAsset struct {
	ID          uuid.UUID   `json:"id"`
	SeasonID    uuid.UUID   `json:"season_id"`
	Name        string      `json:"name"`
	PointValue  int         `json:"point_value"`
	Status      AssetStatus `json:"status"`
	TeraBanned  bool        `json:"tera_banned"` // kept through drafting so a release restores it
	OwnerTeamID *uuid.UUID  `json:"owner_team_id,omitempty"`
	PoolIndex   int         `json:"pool_index"`
	Generation  int         `json:"generation,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Clone returns a copy that shares nothing with a.
func (a DraftableAsset) Clone() DraftableAsset {
	out := a
	if a.OwnerTeamID != nil {
		id := *a.OwnerTeamID
		out.OwnerTeamID = &id
	}
	return out
}

// TransactionKind is the kind of a free agency transaction.
type TransactionKind string

const (
	TransactionKindAdd   TransactionKind = "add"
	TransactionKindDrop  TransactionKind = "drop"
	TransactionKindTrade TransactionKind = "trade"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionKindAdd, TransactionKindDrop, TransactionKindTrade:
		return true
	}
	return false
}

// Transaction is an append-only free agency record.
type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	TeamID         uuid.UUID       `json:"team_id"`
	SeasonID       uuid.UUID       `json:"season_id"`
	Kind           TransactionKind `json:"kind"`
	AddedAssetID   *uuid.UUID      `json:"added_asset_id,omitempty"`
	DroppedAssetID *uuid.UUID      `json:"dropped_asset_id,omitempty"`
	AddedPoints    int             `json:"added_points"`
	RefundedPoints int             `json:"refunded_points"`
	PointDelta     int             `json:"point_delta"` // AddedPoints - RefundedPoints
	Week           int             `json:"week"`
	CreatedAt      time.Time       `json:"created_at"`
}
