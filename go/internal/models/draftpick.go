package models

import (
	"time"

	"github.com/google/uuid"
)

// PickResolution records how a turn was resolved.
type PickResolution string

const (
	PickResolutionManual   PickResolution = "manual"
	PickResolutionAutoPick PickResolution = "auto_pick"
	PickResolutionAutoSkip PickResolution = "auto_skip"
	PickResolutionAuction  PickResolution = "auction"
)

// DraftPick represents a single resolved turn in a draft session.
type DraftPick struct {
	ID               uuid.UUID      `json:"id"`
	SessionID        uuid.UUID      `json:"session_id"`
	Sequence         int            `json:"sequence"`    // 1..n over recorded picks
	Round            int            `json:"round"`       // round the slot belongs to
	PickNumber       int            `json:"pick_number"` // slot number overall
	TeamID           uuid.UUID      `json:"team_id"`
	AssetID          *uuid.UUID     `json:"asset_id,omitempty"` // nil for an auto skip
	PointValueAtPick int            `json:"point_value_at_pick"`
	Resolution       PickResolution `json:"resolution"`
	WasAutoResolved  bool           `json:"was_auto_resolved"`
	PickedAt         time.Time      `json:"picked_at"`
}
