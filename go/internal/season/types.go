package season

import (
	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/pool"
)

// CreateSeasonRequest represents the data needed to create a season. Zero
// values take the configured league defaults.
type CreateSeasonRequest struct {
	Name                      string               `json:"name"`
	PointBudgetPerTeam        int                  `json:"point_budget_per_team,omitempty"`
	TeraBudget                int                  `json:"tera_budget,omitempty"`
	MinRosterSize             int                  `json:"min_roster_size,omitempty"`
	MaxRosterSize             int                  `json:"max_roster_size,omitempty"`
	MaxFreeAgencyTransactions int                  `json:"max_free_agency_transactions,omitempty"`
	FreeAgencyDeadline        int                  `json:"free_agency_deadline,omitempty"`
	TotalTeams                int                  `json:"total_teams,omitempty"`
	DefaultPickTimeLimitSec   int                  `json:"default_pick_time_limit_sec,omitempty"`
	DefaultTimeoutPolicy      models.TimeoutPolicy `json:"default_timeout_policy,omitempty"`
}

type SeasonResponse struct {
	Season *models.Season `json:"season"`
}

type AddTeamRequest struct {
	SeasonID uuid.UUID `json:"season_id"`
	TeamID   uuid.UUID `json:"team_id,omitempty"`
	TeamName string    `json:"team_name"`
}

type AddTeamResponse struct {
	Team *models.TeamSeason `json:"team"`
}

type SetCurrentWeekRequest struct {
	SeasonID uuid.UUID `json:"season_id"`
	Week     int       `json:"week"`
}

// AssetInput is one pool entry to import.
type AssetInput struct {
	Name       string `json:"name" yaml:"name"`
	PointValue int    `json:"point_value" yaml:"points"`
	Generation int    `json:"generation,omitempty" yaml:"generation"`
	TeraBanned bool   `json:"tera_banned,omitempty" yaml:"tera_banned"`
	Banned     bool   `json:"banned,omitempty" yaml:"banned"`
}

type ImportAssetsRequest struct {
	SeasonID uuid.UUID    `json:"season_id"`
	Assets   []AssetInput `json:"assets"`
}

type ImportAssetsResponse struct {
	Assets []models.DraftableAsset `json:"assets"`
}

type SetAssetStatusRequest struct {
	AssetID uuid.UUID          `json:"asset_id"`
	Status  models.AssetStatus `json:"status"`
}

type AssetResponse struct {
	Asset *models.DraftableAsset `json:"asset"`
}

type ListAvailableAssetsRequest struct {
	SeasonID uuid.UUID   `json:"season_id"`
	Filter   pool.Filter `json:"filter"`
}

type ListAvailableAssetsResponse struct {
	Assets []models.DraftableAsset `json:"assets"`
}

type GetSeasonRequest struct {
	SeasonID uuid.UUID `json:"season_id"`
}

type GetSeasonResponse struct {
	Season *models.Season      `json:"season"`
	Teams  []models.TeamSeason `json:"teams"`
}
