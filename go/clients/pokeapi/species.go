package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/clients"
)

// ErrUnknownSpecies is returned when no species matches a name.
var ErrUnknownSpecies = errors.New("unknown species")

type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Species struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Generation  NamedResource  `json:"generation"`
	IsLegendary bool           `json:"is_legendary"`
	IsMythical  bool           `json:"is_mythical"`
	EvolvesFrom *NamedResource `json:"evolves_from_species"`
}

// GenerationNumber is the numeric generation, parsed from e.g. "generation-iv".
func (s *Species) GenerationNumber() int {
	roman := strings.TrimPrefix(s.Generation.Name, "generation-")
	if n, ok := romanNumerals[roman]; ok {
		return n
	}
	// fall back to the trailing id of the resource URL
	parts := strings.Split(strings.TrimSuffix(s.Generation.URL, "/"), "/")
	n, _ := strconv.Atoi(parts[len(parts)-1])
	return n
}

var romanNumerals = map[string]int{
	"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5,
	"vi": 6, "vii": 7, "viii": 8, "ix": 9, "x": 10,
}

// Slug turns a display name into an API name: "Rotom-Wash" → "rotom-wash",
// "Mr. Mime" → "mr-mime".
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer(". ", "-", " ", "-", ".", "", "'", "", "’", "", ":", "").Replace(s)
	return s
}

// GetSpecies returns the species for a display name. Regional and battle
// forms such as "Rotom-Wash" fall back to their base species.
func (c *Client) GetSpecies(ctx context.Context, name string) (*Species, error) {
	slug := Slug(name)
	candidates := []string{slug}
	if i := strings.Index(slug, "-"); i > 0 {
		candidates = append(candidates, slug[:i])
	}

	for _, candidate := range candidates {
		body, err := c.Get(ctx, fmt.Sprintf("%s/%s", SpeciesEndpoint, candidate))
		var status *clients.StatusError
		if errors.As(err, &status) && status.StatusCode == http.StatusNotFound {
			log.Debug().Str("name", name).Str("candidate", candidate).Msg("species not found")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get species %s: %w", candidate, err)
		}

		var species Species
		if err := json.Unmarshal(body, &species); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return &species, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSpecies, name)
}

// Generation returns the generation a species was introduced in.
func (c *Client) Generation(ctx context.Context, name string) (int, error) {
	species, err := c.GetSpecies(ctx, name)
	if err != nil {
		return 0, err
	}
	return species.GenerationNumber(), nil
}
