package models

import (
	"time"

	"github.com/google/uuid"
)

// AcquisitionType represents how an asset joined a roster
type AcquisitionType string

const (
	AcquisitionTypeDraft     AcquisitionType = "draft"
	AcquisitionTypeAuction   AcquisitionType = "auction"
	AcquisitionTypeFreeAgent AcquisitionType = "free_agent"
	AcquisitionTypeTrade     AcquisitionType = "trade"
)

// RosterEntry is one asset held by a team, with the price actually paid.
type RosterEntry struct {
	AssetID         uuid.UUID       `json:"asset_id"`
	PointsPaid      int             `json:"points_paid"`
	AcquisitionType AcquisitionType `json:"acquisition_type"`
	AcquiredAt      time.Time       `json:"acquired_at"`
}

// TeamSeason is a team's budget ledger row for one season.
type TeamSeason struct {
	ID               uuid.UUID     `json:"id"`
	TeamID           uuid.UUID     `json:"team_id"`
	SeasonID         uuid.UUID     `json:"season_id"`
	TeamName         string        `json:"team_name"`
	PointsSpent      int           `json:"points_spent"`
	Roster           []RosterEntry `json:"roster"`
	TransactionsUsed int           `json:"transactions_used"`
	Version          int64         `json:"version"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// RosterAssetIDs returns the ids currently on the roster, in acquisition order.
func (t *TeamSeason) RosterAssetIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Roster))
	for _, e := range t.Roster {
		ids = append(ids, e.AssetID)
	}
	return ids
}

// Entry looks up a rostered asset.
func (t *TeamSeason) Entry(assetID uuid.UUID) (RosterEntry, bool) {
	for _, e := range t.Roster {
		if e.AssetID == assetID {
			return e, true
		}
	}
	return RosterEntry{}, false
}

// Clone returns a deep copy.
func (t TeamSeason) Clone() TeamSeason {
	out := t
	out.Roster = append([]RosterEntry(nil), t.Roster...)
	return out
}
