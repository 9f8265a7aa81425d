// Package pool tracks the draft status of every asset in a season's pool.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

// Registry reads and writes pool status through the asset repository of the
// current unit of work.
type Registry struct {
	assets storage.AssetRepository
	now    func() time.Time
}

// New binds a registry to assets.
func New(assets storage.AssetRepository) *Registry {
	return &Registry{assets: assets, now: time.Now}
}

// Filter narrows ListAvailable. Zero values are ignored.
type Filter struct {
	MinPoints  int    `json:"min_points,omitempty"`
	MaxPoints  int    `json:"max_points,omitempty"`
	Generation int    `json:"generation,omitempty"`
	Search     string `json:"search,omitempty"`
}

// IsPickable reports whether an asset may be drafted. Tera-banned assets are
// draftable; the ban only affects roster-level designation.
func IsPickable(a *models.DraftableAsset) bool {
	return a.Status == models.AssetStatusAvailable || a.Status == models.AssetStatusTeraBanned
}

// GetStatus returns the current status of an asset.
func (r *Registry) GetStatus(ctx context.Context, assetID uuid.UUID) (models.AssetStatus, error) {
	a, err := r.assets.Get(ctx, assetID)
	if err != nil {
		return "", err
	}
	return a.Status, nil
}

// Pickable loads an asset and refuses with AssetUnavailable unless it belongs
// to seasonID and can be drafted.
func (r *Registry) Pickable(ctx context.Context, seasonID, assetID uuid.UUID) (*models.DraftableAsset, error) {
	a, err := r.assets.Get(ctx, assetID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, rejection.New(rejection.AssetUnavailable, "asset %s is not in the pool", assetID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load asset: %w", err)
	}
	if a.SeasonID != seasonID {
		return nil, rejection.New(rejection.AssetUnavailable, "asset %s belongs to another season", assetID)
	}
	if a.Status == models.AssetStatusDrafted {
		return nil, rejection.New(rejection.AlreadyDrafted, "asset %s already drafted", assetID)
	}
	if !IsPickable(a) {
		return nil, rejection.New(rejection.AssetUnavailable, "asset %s is %s", assetID, a.Status)
	}
	return a, nil
}

// MarkDrafted claims a for teamID. It is the single-writer guard: the write
// only lands if the stored status is still the one a was read with.
func (r *Registry) MarkDrafted(ctx context.Context, a *models.DraftableAsset, teamID uuid.UUID) error {
	if !IsPickable(a) {
		return rejection.New(rejection.AlreadyDrafted, "asset %s is %s", a.ID, a.Status)
	}
	expected := a.Status
	next := a.Clone()
	next.Status = models.AssetStatusDrafted
	next.OwnerTeamID = &teamID
	next.UpdatedAt = r.now().UTC()
	if err := r.assets.UpdateStatus(ctx, &next, expected); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return rejection.New(rejection.AlreadyDrafted, "asset %s was claimed concurrently", a.ID)
		}
		return fmt.Errorf("failed to mark asset drafted: %w", err)
	}
	*a = next
	return nil
}

// Release returns a drafted asset to the pool, restoring its tera ban.
func (r *Registry) Release(ctx context.Context, a *models.DraftableAsset) error {
	if a.Status != models.AssetStatusDrafted {
		return rejection.New(rejection.AssetNotOnRoster, "asset %s is not drafted", a.ID)
	}
	next := a.Clone()
	next.Status = models.AssetStatusAvailable
	if a.TeraBanned {
		next.Status = models.AssetStatusTeraBanned
	}
	next.OwnerTeamID = nil
	next.UpdatedAt = r.now().UTC()
	if err := r.assets.UpdateStatus(ctx, &next, models.AssetStatusDrafted); err != nil {
		return fmt.Errorf("failed to release asset: %w", err)
	}
	*a = next
	return nil
}

// SetStatus is the admin path for ban, tera ban and reset. Drafted assets
// cannot be changed here.
func (r *Registry) SetStatus(ctx context.Context, assetID uuid.UUID, status models.AssetStatus) (*models.DraftableAsset, error) {
	a, err := r.assets.Get(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset: %w", err)
	}
	if a.Status == models.AssetStatusDrafted {
		return nil, rejection.New(rejection.AlreadyDrafted, "asset %s already drafted", assetID)
	}
	next := a.Clone()
	switch status {
	case models.AssetStatusAvailable:
		next.TeraBanned = false
	case models.AssetStatusTeraBanned:
		next.TeraBanned = true
	case models.AssetStatusBanned:
	default:
		return nil, rejection.Invalid("status %q cannot be set directly", status)
	}
	next.Status = status
	next.UpdatedAt = r.now().UTC()
	if err := r.assets.UpdateStatus(ctx, &next, a.Status); err != nil {
		return nil, fmt.Errorf("failed to update asset status: %w", err)
	}
	return &next, nil
}

// ListAvailable returns the pickable assets of a season, highest value first
// and then by name.
func (r *Registry) ListAvailable(ctx context.Context, seasonID uuid.UUID, f Filter) ([]models.DraftableAsset, error) {
	all, err := r.assets.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.DraftableAsset, 0, len(all))
	for _, a := range all {
		if !IsPickable(&a) {
			continue
		}
		if f.MinPoints > 0 && a.PointValue < f.MinPoints {
			continue
		}
		if f.MaxPoints > 0 && a.PointValue > f.MaxPoints {
			continue
		}
		if f.Generation > 0 && a.Generation != f.Generation {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(a.Name), search) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PointValue != out[j].PointValue {
			return out[i].PointValue > out[j].PointValue
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// LowestAffordable returns the pickable asset with the lowest pool index whose
// value fits in budget, or nil when nothing does.
func (r *Registry) LowestAffordable(ctx context.Context, seasonID uuid.UUID, budget int) (*models.DraftableAsset, error) {
	all, err := r.assets.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	var best *models.DraftableAsset
	for i := range all {
		a := &all[i]
		if !IsPickable(a) || a.PointValue > budget {
			continue
		}
		if best == nil || a.PoolIndex < best.PoolIndex {
			best = a
		}
	}
	return best, nil
}
