package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/clients/pokeapi"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/config"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/freeagency"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/pool"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/season"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage/memory"
)

type server struct {
	url     string
	seasons *season.App
}

func newServer(t *testing.T) *server {
	t.Helper()
	store := memory.New()
	seasons := season.NewApp(store, season.WithDefaults(config.DefaultLeagueRules().Season()))

	mux := http.NewServeMux()
	mux.Handle(season.NewSeasonServiceHandler(season.NewService(seasons)))
	mux.Handle(draft.NewDraftServiceHandler(draft.NewService(draft.NewApp(store, nil))))
	mux.Handle(freeagency.NewFreeAgencyServiceHandler(freeagency.NewService(freeagency.NewApp(store, nil))))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &server{url: srv.URL, seasons: seasons}
}

// run executes draftctl against s and returns its output. Flag variables
// outlive a single Execute, so they are reset first.
func (s *server) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	adminFlag, teamFlag = false, ""
	createSeason, seasonPolicy, teamIDFlag, poolFilter = season.CreateSeasonRequest{}, "", "", pool.Filter{}
	lookupGens, pokeAPIURL = false, pokeapi.BaseURL
	createSession, draftType, draftPolicy, turnOrder, reason = draft.CreateSessionRequest{}, string(models.DraftTypeSnake), "", nil, ""
	addAsset, dropAsset, listLimit, openingBid = "", "", 0, 1

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--server", s.url}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func (s *server) mustRun(t *testing.T, out any, args ...string) {
	t.Helper()
	text, err := s.run(t, args...)
	if err != nil {
		t.Fatalf("draftctl %s: %v\n%s", strings.Join(args, " "), err, text)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("decode output of %s: %v\n%s", args[0], err, text)
		}
	}
}

func TestDraftRoomFromTheCommandLine(t *testing.T) {
	s := newServer(t)

	var created models.Season
	s.mustRun(t, &created, "season", "create", "Spring Cup", "--admin",
		"--budget", "60", "--min-roster", "1", "--max-roster", "2", "--teams", "2")
	if created.PointBudgetPerTeam != 60 || created.TeraBudget != 15 {
		t.Fatalf("season = %+v, want budget 60 and default tera budget", created)
	}
	seasonID := created.ID.String()

	teams := []uuid.UUID{uuid.New(), uuid.New()}
	for i, id := range teams {
		s.mustRun(t, nil, "season", "add-team", seasonID, []string{"Ashes", "Embers"}[i], "--team-id", id.String(), "--admin")
	}

	poolFile := filepath.Join(t.TempDir(), "pool.yaml")
	yamlPool := "- name: Garchomp\n  points: 15\n- name: Toxapex\n  points: 12\n- name: Quagsire\n  points: 3\n"
	if err := os.WriteFile(poolFile, []byte(yamlPool), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := s.run(t, "season", "import", seasonID, poolFile, "--admin")
	if err != nil || !strings.Contains(out, "imported 3 assets") {
		t.Fatalf("import: %v\n%s", err, out)
	}

	out, err = s.run(t, "season", "pool", seasonID, "--max-points", "12")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "Garchomp") || !strings.Contains(out, "Toxapex") || !strings.Contains(out, "Quagsire") {
		t.Fatalf("filtered pool:\n%s", out)
	}

	var session models.DraftSession
	s.mustRun(t, &session, "draft", "create", seasonID, "--admin", "--order", teams[0].String()+","+teams[1].String())
	s.mustRun(t, nil, "draft", "start", session.ID.String(), "--admin")

	assets, err := s.seasons.ListAvailableAssets(context.Background(), created.ID, pool.Filter{})
	if err != nil || len(assets) != 3 {
		t.Fatalf("assets = %v, %v", assets, err)
	}

	_, err = s.run(t, "draft", "pick", session.ID.String(), assets[0].ID.String(), "--team", teams[1].String())
	if !errors.Is(err, rejection.ErrNotYourTurn) {
		t.Fatalf("out of turn pick: got %v, want not your turn", err)
	}

	var pick models.DraftPick
	s.mustRun(t, &pick, "draft", "pick", session.ID.String(), assets[0].ID.String(), "--team", teams[0].String())
	if pick.PickNumber != 1 || pick.AssetID == nil || *pick.AssetID != assets[0].ID {
		t.Fatalf("pick = %+v", pick)
	}

	var state draft.SessionState
	s.mustRun(t, &state, "draft", "state", session.ID.String())
	if state.CurrentPickNumber != 2 || state.CurrentTeamID != teams[1] {
		t.Fatalf("state = %+v, want pick 2 for the second team", state)
	}

	var status freeagency.TeamStatus
	s.mustRun(t, &status, "fa", "status", seasonID, teams[0].String())
	if status.PointsSpent != 15 || status.RosterSize != 1 {
		t.Fatalf("status = %+v", status)
	}
}

func TestAdminCommandsNeedTheRole(t *testing.T) {
	s := newServer(t)
	if _, err := s.run(t, "season", "create", "No Role"); err == nil {
		t.Fatal("expected permission error without --admin")
	}
}

func TestInvalidIDsRejectedLocally(t *testing.T) {
	s := newServer(t)
	tests := []struct {
		name string
		args []string
	}{
		{"season", []string{"season", "get", "not-a-uuid"}},
		{"session", []string{"draft", "state", "42"}},
		{"team flag", []string{"fa", "list", uuid.New().String(), "--team", "bad"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), "invalid") {
				t.Fatalf("err = %v, want invalid id", err)
			}
		})
	}
}

func TestImportLooksUpGenerations(t *testing.T) {
	s := newServer(t)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pokeapi.SpeciesEndpoint+"/garchomp" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"id":445,"name":"garchomp","generation":{"name":"generation-iv","url":""}}`))
	}))
	defer api.Close()

	var created models.Season
	s.mustRun(t, &created, "season", "create", "Lookup", "--admin")

	poolFile := filepath.Join(t.TempDir(), "pool.yaml")
	yamlPool := "- name: Garchomp\n  points: 15\n- name: Fakemon\n  points: 2\n- name: Quagsire\n  points: 3\n  generation: 2\n"
	if err := os.WriteFile(poolFile, []byte(yamlPool), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := s.run(t, "season", "import", created.ID.String(), poolFile, "--admin",
		"--lookup-generations", "--pokeapi-url", api.URL)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, `no species for "Fakemon"`) {
		t.Errorf("expected a warning for the unknown species:\n%s", out)
	}

	assets, err := s.seasons.ListAvailableAssets(context.Background(), created.ID, pool.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"Garchomp": 4, "Fakemon": 0, "Quagsire": 2}
	for _, a := range assets {
		if a.Generation != want[a.Name] {
			t.Errorf("%s generation = %d, want %d", a.Name, a.Generation, want[a.Name])
		}
	}
}
