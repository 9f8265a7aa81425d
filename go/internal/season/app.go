// Package season is the administrative surface around the draft core:
// seasons, their teams and the draft pool.
package season

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/pool"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

// App handles season business logic
type App struct {
	store    storage.Store
	defaults models.Season
	clock    clockwork.Clock
}

// Option configures an App.
type Option func(*App)

// WithDefaults sets the league rules new seasons start from.
func WithDefaults(d models.Season) Option {
	return func(a *App) { a.defaults = d }
}

// WithClock sets the clock used for timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(a *App) { a.clock = c }
}

// NewApp creates a new season App
func NewApp(store storage.Store, opts ...Option) *App {
	a := &App{store: store, clock: clockwork.NewRealClock()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// CreateSeason creates a season, filling unset rules from the defaults.
func (a *App) CreateSeason(ctx context.Context, req CreateSeasonRequest) (*models.Season, error) {
	now := a.clock.Now().UTC()
	s := &models.Season{
		ID:                        uuid.New(),
		Name:                      strings.TrimSpace(req.Name),
		PointBudgetPerTeam:        pick(req.PointBudgetPerTeam, a.defaults.PointBudgetPerTeam),
		TeraBudget:                pick(req.TeraBudget, a.defaults.TeraBudget),
		MinRosterSize:             pick(req.MinRosterSize, a.defaults.MinRosterSize),
		MaxRosterSize:             pick(req.MaxRosterSize, a.defaults.MaxRosterSize),
		MaxFreeAgencyTransactions: pick(req.MaxFreeAgencyTransactions, a.defaults.MaxFreeAgencyTransactions),
		FreeAgencyDeadline:        pick(req.FreeAgencyDeadline, a.defaults.FreeAgencyDeadline),
		TotalTeams:                pick(req.TotalTeams, a.defaults.TotalTeams),
		DefaultPickTimeLimitSec:   pick(req.DefaultPickTimeLimitSec, a.defaults.DefaultPickTimeLimitSec),
		DefaultTimeoutPolicy:      req.DefaultTimeoutPolicy,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if s.DefaultTimeoutPolicy == "" {
		s.DefaultTimeoutPolicy = a.defaults.DefaultTimeoutPolicy
	}
	if err := validateSeason(s); err != nil {
		return nil, err
	}

	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Seasons().Create(ctx, s); err != nil {
			return fmt.Errorf("failed to create season: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("season_id", s.ID.String()).
		Str("name", s.Name).
		Int("budget", s.PointBudgetPerTeam).
		Int("max_roster", s.MaxRosterSize).
		Msg("season created")
	return s, nil
}

func pick(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

// GetSeason returns a season and its teams.
func (a *App) GetSeason(ctx context.Context, seasonID uuid.UUID) (*models.Season, []models.TeamSeason, error) {
	var (
		season *models.Season
		teams  []models.TeamSeason
	)
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		season, err = tx.Seasons().Get(ctx, seasonID)
		if err != nil {
			return fmt.Errorf("failed to get season: %w", err)
		}
		teams, err = tx.Teams().ListBySeason(ctx, seasonID)
		if err != nil {
			return fmt.Errorf("failed to list teams: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return season, teams, nil
}

// AddTeam assigns a team to a season, creating its empty ledger row.
func (a *App) AddTeam(ctx context.Context, req AddTeamRequest) (*models.TeamSeason, error) {
	if req.SeasonID == uuid.Nil {
		return nil, rejection.Invalid("season_id is required")
	}
	if strings.TrimSpace(req.TeamName) == "" {
		return nil, rejection.Invalid("team_name is required")
	}
	if req.TeamID == uuid.Nil {
		req.TeamID = uuid.New()
	}

	var team *models.TeamSeason
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		season, err := tx.Seasons().Get(ctx, req.SeasonID)
		if err != nil {
			return fmt.Errorf("failed to get season: %w", err)
		}
		if err := requireNoOpenSession(ctx, tx, season.ID); err != nil {
			return err
		}
		teams, err := tx.Teams().ListBySeason(ctx, season.ID)
		if err != nil {
			return fmt.Errorf("failed to list teams: %w", err)
		}
		if season.TotalTeams > 0 && len(teams) >= season.TotalTeams {
			return rejection.Invalid("season already has %d of %d teams", len(teams), season.TotalTeams)
		}

		now := a.clock.Now().UTC()
		team = &models.TeamSeason{
			ID:        uuid.New(),
			TeamID:    req.TeamID,
			SeasonID:  season.ID,
			TeamName:  strings.TrimSpace(req.TeamName),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Teams().Create(ctx, team); err != nil {
			return fmt.Errorf("failed to create team season: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("season_id", team.SeasonID.String()).
		Str("team_id", team.TeamID.String()).
		Str("team_name", team.TeamName).
		Msg("team added to season")
	return team, nil
}

// SetCurrentWeek moves the season calendar free agency checks against.
func (a *App) SetCurrentWeek(ctx context.Context, seasonID uuid.UUID, week int) (*models.Season, error) {
	if week < 0 {
		return nil, rejection.Invalid("week cannot be negative")
	}
	var season *models.Season
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		s, err := tx.Seasons().Get(ctx, seasonID)
		if err != nil {
			return fmt.Errorf("failed to get season: %w", err)
		}
		s.CurrentWeek = week
		s.UpdatedAt = a.clock.Now().UTC()
		if err := tx.Seasons().Update(ctx, s); err != nil {
			return fmt.Errorf("failed to update season: %w", err)
		}
		season = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("season_id", seasonID.String()).Int("week", week).Msg("season week advanced")
	return season, nil
}

// ImportAssets appends entries to a season's pool. Pool indexes continue
// after the highest existing one.
func (a *App) ImportAssets(ctx context.Context, seasonID uuid.UUID, inputs []AssetInput) ([]models.DraftableAsset, error) {
	for i, in := range inputs {
		if strings.TrimSpace(in.Name) == "" {
			return nil, rejection.Invalid("asset %d has no name", i)
		}
		if in.PointValue < 0 {
			return nil, rejection.Invalid("asset %q has negative point value", in.Name)
		}
	}

	var out []models.DraftableAsset
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.Seasons().Get(ctx, seasonID); err != nil {
			return fmt.Errorf("failed to get season: %w", err)
		}
		if err := requireNoLiveSession(ctx, tx, seasonID); err != nil {
			return err
		}
		existing, err := tx.Assets().ListBySeason(ctx, seasonID)
		if err != nil {
			return fmt.Errorf("failed to list assets: %w", err)
		}
		next := 0
		for _, e := range existing {
			if e.PoolIndex >= next {
				next = e.PoolIndex + 1
			}
		}

		now := a.clock.Now().UTC()
		out = make([]models.DraftableAsset, 0, len(inputs))
		for i, in := range inputs {
			asset := models.DraftableAsset{
				ID:         uuid.New(),
				SeasonID:   seasonID,
				Name:       strings.TrimSpace(in.Name),
				PointValue: in.PointValue,
				Status:     models.AssetStatusAvailable,
				TeraBanned: in.TeraBanned,
				PoolIndex:  next + i,
				Generation: in.Generation,
				UpdatedAt:  now,
			}
			switch {
			case in.Banned:
				asset.Status = models.AssetStatusBanned
			case in.TeraBanned:
				asset.Status = models.AssetStatusTeraBanned
			}
			if err := tx.Assets().Create(ctx, &asset); err != nil {
				return fmt.Errorf("failed to create asset %q: %w", asset.Name, err)
			}
			out = append(out, asset)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("season_id", seasonID.String()).Int("count", len(out)).Msg("pool assets imported")
	return out, nil
}

// SetAssetStatus bans, tera-bans or resets an asset between drafts.
func (a *App) SetAssetStatus(ctx context.Context, assetID uuid.UUID, status models.AssetStatus) (*models.DraftableAsset, error) {
	var out *models.DraftableAsset
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		asset, err := tx.Assets().Get(ctx, assetID)
		if err != nil {
			return fmt.Errorf("failed to get asset: %w", err)
		}
		if err := requireNoLiveSession(ctx, tx, asset.SeasonID); err != nil {
			return err
		}
		out, err = pool.New(tx.Assets()).SetStatus(ctx, assetID, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("asset_id", assetID.String()).Str("status", string(status)).Msg("asset status changed")
	return out, nil
}

// ListAvailableAssets returns the season's pickable assets.
func (a *App) ListAvailableAssets(ctx context.Context, seasonID uuid.UUID, f pool.Filter) ([]models.DraftableAsset, error) {
	var out []models.DraftableAsset
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		assets, err := pool.New(tx.Assets()).ListAvailable(ctx, seasonID, f)
		out = assets
		return err
	})
	return out, err
}

// requireNoOpenSession refuses changes to the team list once a session
// exists that has not finished.
func requireNoOpenSession(ctx context.Context, tx storage.Tx, seasonID uuid.UUID) error {
	sessions, err := tx.Sessions().ListBySeason(ctx, seasonID)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, s := range sessions {
		if s.Status.Open() {
			return rejection.New(rejection.SessionAlreadyActive, "session %s is %s", s.ID, s.Status)
		}
	}
	return nil
}

// requireNoLiveSession refuses pool changes while a draft is running.
func requireNoLiveSession(ctx context.Context, tx storage.Tx, seasonID uuid.UUID) error {
	sessions, err := tx.Sessions().ListBySeason(ctx, seasonID)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, s := range sessions {
		switch s.Status {
		case models.DraftStatusActive, models.DraftStatusPaused, models.DraftStatusHalted:
			return rejection.New(rejection.SessionAlreadyActive, "session %s is %s", s.ID, s.Status)
		}
	}
	return nil
}

// validateSeason validates season rules
func validateSeason(s *models.Season) error {
	if s.Name == "" {
		return rejection.Invalid("name is required")
	}
	if s.PointBudgetPerTeam <= 0 {
		return rejection.Invalid("point_budget_per_team must be positive")
	}
	if s.MaxRosterSize <= 0 {
		return rejection.Invalid("max_roster_size must be positive")
	}
	if s.MinRosterSize < 0 || s.MinRosterSize > s.MaxRosterSize {
		return rejection.Invalid("min_roster_size must be between 0 and %d", s.MaxRosterSize)
	}
	if s.MaxFreeAgencyTransactions < 0 {
		return rejection.Invalid("max_free_agency_transactions cannot be negative")
	}
	if s.TotalTeams < 0 {
		return rejection.Invalid("total_teams cannot be negative")
	}
	if s.DefaultTimeoutPolicy != "" && !s.DefaultTimeoutPolicy.Valid() {
		return rejection.Invalid("unknown timeout policy %q", s.DefaultTimeoutPolicy)
	}
	return nil
}
