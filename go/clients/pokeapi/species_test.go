package pokeapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newAPI(t *testing.T, species map[string]string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, SpeciesEndpoint+"/")
		body, ok := species[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Garchomp", "garchomp"},
		{"Rotom-Wash", "rotom-wash"},
		{"Mr. Mime", "mr-mime"},
		{"Farfetch'd", "farfetchd"},
		{" Type: Null ", "type-null"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slug(tt.in); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGeneration(t *testing.T) {
	api := newAPI(t, map[string]string{
		"garchomp": `{"id":445,"name":"garchomp","generation":{"name":"generation-iv","url":"https://pokeapi.co/api/v2/generation/4/"}}`,
		"rotom":    `{"id":479,"name":"rotom","generation":{"name":"generation-iv","url":"https://pokeapi.co/api/v2/generation/4/"}}`,
		"ho-oh":    `{"id":250,"name":"ho-oh","generation":{"name":"generation-ii","url":"https://pokeapi.co/api/v2/generation/2/"}}`,
		"newmon":   `{"id":9999,"name":"newmon","generation":{"name":"generation-xi","url":"https://pokeapi.co/api/v2/generation/11/"}}`,
	})

	tests := []struct {
		name string
		want int
	}{
		{"Garchomp", 4},
		{"Rotom-Wash", 4},
		{"Ho-Oh", 2},
		{"Newmon", 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := api.Generation(context.Background(), tt.name)
			if err != nil {
				t.Fatalf("Generation: %v", err)
			}
			if got != tt.want {
				t.Errorf("Generation(%q) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestUnknownSpecies(t *testing.T) {
	api := newAPI(t, nil)
	_, err := api.GetSpecies(context.Background(), "Missingno")
	if !errors.Is(err, ErrUnknownSpecies) {
		t.Fatalf("err = %v, want ErrUnknownSpecies", err)
	}
}
