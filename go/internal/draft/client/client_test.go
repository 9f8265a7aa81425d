package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rpcutil"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage/memory"
)

type harness struct {
	url    string
	season uuid.UUID
	teams  []uuid.UUID
	assets []uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	h := &harness{season: uuid.New(), teams: []uuid.UUID{uuid.New(), uuid.New()}}
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Seasons().Create(ctx, &models.Season{ID: h.season, PointBudgetPerTeam: 100, MaxRosterSize: 4, DefaultPickTimeLimitSec: 60}); err != nil {
			return err
		}
		for _, id := range h.teams {
			if err := tx.Teams().Create(ctx, &models.TeamSeason{ID: uuid.New(), SeasonID: h.season, TeamID: id}); err != nil {
				return err
			}
		}
		for i := 0; i < 4; i++ {
			a := &models.DraftableAsset{ID: uuid.New(), SeasonID: h.season, Name: "asset", PointValue: 10, Status: models.AssetStatusAvailable, PoolIndex: i}
			if err := tx.Assets().Create(ctx, a); err != nil {
				return err
			}
			h.assets = append(h.assets, a.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle(draft.NewDraftServiceHandler(draft.NewService(draft.NewApp(store, nil))))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	h.url = srv.URL
	return h
}

func TestDraftOverRPC(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := New(http.DefaultClient, h.url, rpcutil.Caller{Admin: true})
	coachA := New(http.DefaultClient, h.url, rpcutil.Caller{TeamID: h.teams[0]})
	coachB := New(http.DefaultClient, h.url, rpcutil.Caller{TeamID: h.teams[1]})

	_, err := coachA.CreateSession(ctx, draft.CreateSessionRequest{SeasonID: h.season})
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Fatalf("coach create session: %v, want PermissionDenied", err)
	}

	s, err := admin.CreateSession(ctx, draft.CreateSessionRequest{SeasonID: h.season, TurnOrder: h.teams})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := admin.StartSession(ctx, s.ID); err != nil {
		t.Fatalf("start session: %v", err)
	}

	_, err = coachB.AttemptPick(ctx, s.ID, uuid.Nil, h.assets[0])
	if !errors.Is(err, rejection.ErrNotYourTurn) {
		t.Fatalf("out of turn pick: %v, want NotYourTurn", err)
	}
	_, err = coachB.AttemptPick(ctx, s.ID, h.teams[0], h.assets[0])
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Fatalf("pick for another team: %v, want PermissionDenied", err)
	}

	pick, err := coachA.AttemptPick(ctx, s.ID, uuid.Nil, h.assets[0])
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if pick.TeamID != h.teams[0] || pick.PickNumber != 1 {
		t.Fatalf("pick = %+v", pick)
	}
	_, err = coachA.AttemptPick(ctx, s.ID, uuid.Nil, h.assets[0])
	if !errors.Is(err, rejection.ErrAlreadyDrafted) {
		t.Fatalf("repeat pick: %v, want AlreadyDrafted", err)
	}

	state, err := coachA.GetSessionState(ctx, s.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.CurrentTeamID != h.teams[1] || state.PicksMade != 1 {
		t.Fatalf("state = %+v", state)
	}

	picks, err := coachB.ListPicks(ctx, s.ID)
	if err != nil || len(picks) != 1 {
		t.Fatalf("list picks = %d, %v", len(picks), err)
	}

	deadlines, err := admin.PendingDeadlines(ctx)
	if err != nil || len(deadlines) != 1 || deadlines[0].PickNumber != 2 {
		t.Fatalf("deadlines = %+v, %v", deadlines, err)
	}

	_, err = admin.GetSessionState(ctx, uuid.New())
	if connect.CodeOf(err) != connect.CodeNotFound && !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown session: %v, want NotFound", err)
	}
}
