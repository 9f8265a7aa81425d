package draft

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/pool"
)

// AutoPickStrategy chooses the asset drafted for a team whose clock ran out.
// Returning nil means nothing suitable is left and the turn is skipped.
type AutoPickStrategy interface {
	Select(ctx context.Context, reg *pool.Registry, season *models.Season, team *models.TeamSeason, remaining int) (*models.DraftableAsset, error)
}

// LowestIndexStrategy takes the affordable asset with the lowest pool index.
// It is deterministic, which keeps replays and tests reproducible.
type LowestIndexStrategy struct{}

// Select implements AutoPickStrategy
func (LowestIndexStrategy) Select(ctx context.Context, reg *pool.Registry, season *models.Season, _ *models.TeamSeason, remaining int) (*models.DraftableAsset, error) {
	return reg.LowestAffordable(ctx, season.ID, remaining)
}

// RandomStrategy picks uniformly among the affordable assets.
type RandomStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomStrategy constructs a RandomStrategy with its own seed.
func NewRandomStrategy() *RandomStrategy {
	src := rand.NewSource(time.Now().UnixNano())
	return &RandomStrategy{rng: rand.New(src)}
}

// Select implements AutoPickStrategy
func (s *RandomStrategy) Select(ctx context.Context, reg *pool.Registry, season *models.Season, team *models.TeamSeason, remaining int) (*models.DraftableAsset, error) {
	assets, err := reg.ListAvailable(ctx, season.ID, pool.Filter{MaxPoints: remaining})
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	// MaxPoints of zero means unbounded to the registry.
	affordable := assets[:0]
	for _, a := range assets {
		if a.PointValue <= remaining {
			affordable = append(affordable, a)
		}
	}
	if len(affordable) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	choice := affordable[s.rng.Intn(len(affordable))]
	s.mu.Unlock()

	log.Debug().
		Str("team_id", team.TeamID.String()).
		Str("asset_id", choice.ID.String()).
		Msg("auto-pick chose asset")
	return &choice, nil
}

// StrategyByName maps a configured strategy name to an implementation.
func StrategyByName(name string) (AutoPickStrategy, error) {
	switch name {
	case "", "lowest_index":
		return LowestIndexStrategy{}, nil
	case "random":
		return NewRandomStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown auto-pick strategy %q", name)
	}
}
