package freeagency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage/memory"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	app    *App
	season *models.Season
	teams  []uuid.UUID

	mu  sync.Mutex
	evs []events.Envelope
}

func newFixture(t *testing.T, draft models.DraftStatus) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), store: memory.New()}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	f.app = NewApp(f.store, events.NotifierFunc(func(_ context.Context, env events.Envelope) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.evs = append(f.evs, env)
	}), WithClock(clock))

	f.season = &models.Season{
		ID:                        uuid.New(),
		PointBudgetPerTeam:        120,
		MinRosterSize:             1,
		MaxRosterSize:             3,
		MaxFreeAgencyTransactions: 10,
		FreeAgencyDeadline:        8,
		CurrentWeek:               3,
	}
	f.teams = []uuid.UUID{uuid.New(), uuid.New()}
	f.tx(func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Seasons().Create(ctx, f.season); err != nil {
			return err
		}
		for _, id := range f.teams {
			if err := tx.Teams().Create(ctx, &models.TeamSeason{ID: uuid.New(), SeasonID: f.season.ID, TeamID: id}); err != nil {
				return err
			}
		}
		if draft == "" {
			return nil
		}
		return tx.Sessions().Create(ctx, &models.DraftSession{ID: uuid.New(), SeasonID: f.season.ID, Status: draft, DraftType: models.DraftTypeSnake})
	})
	return f
}

func (f *fixture) tx(fn func(ctx context.Context, tx storage.Tx) error) {
	f.t.Helper()
	if err := f.store.WithinTx(f.ctx, fn); err != nil {
		f.t.Fatalf("store: %v", err)
	}
}

func (f *fixture) addAssets(values ...int) []uuid.UUID {
	f.t.Helper()
	ids := make([]uuid.UUID, len(values))
	f.tx(func(ctx context.Context, tx storage.Tx) error {
		for i, v := range values {
			a := &models.DraftableAsset{ID: uuid.New(), SeasonID: f.season.ID, Name: "asset", PointValue: v, Status: models.AssetStatusAvailable, PoolIndex: i}
			if err := tx.Assets().Create(ctx, a); err != nil {
				return err
			}
			ids[i] = a.ID
		}
		return nil
	})
	return ids
}

func (f *fixture) submit(req SubmitTransactionRequest) (*models.Transaction, *TeamStatus, error) {
	if req.SeasonID == uuid.Nil {
		req.SeasonID = f.season.ID
	}
	if req.TeamID == uuid.Nil {
		req.TeamID = f.teams[0]
	}
	return f.app.SubmitTransaction(f.ctx, req)
}

func (f *fixture) mustSubmit(req SubmitTransactionRequest) (*models.Transaction, *TeamStatus) {
	f.t.Helper()
	txn, status, err := f.submit(req)
	if err != nil {
		f.t.Fatalf("submit %s: %v", req.Kind, err)
	}
	return txn, status
}

func (f *fixture) asset(id uuid.UUID) *models.DraftableAsset {
	f.t.Helper()
	var out *models.DraftableAsset
	f.tx(func(ctx context.Context, tx storage.Tx) error {
		a, err := tx.Assets().Get(ctx, id)
		out = a
		return err
	})
	return out
}

func wantReason(t *testing.T, err error, want rejection.Reason) {
	t.Helper()
	got, ok := rejection.ReasonOf(err)
	if !ok || got != want {
		t.Fatalf("err = %v, want %s", err, want)
	}
}

func TestRequiresCompletedDraft(t *testing.T) {
	tests := []struct {
		name  string
		draft models.DraftStatus
	}{
		{"no session", ""},
		{"pending", models.DraftStatusPending},
		{"active", models.DraftStatusActive},
		{"halted", models.DraftStatusHalted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.draft)
			assets := f.addAssets(10)
			_, _, err := f.submit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[0]})
			wantReason(t, err, rejection.DraftNotCompleted)
		})
	}
}

func TestAddDropTrade(t *testing.T) {
	f := newFixture(t, models.DraftStatusCompleted)
	assets := f.addAssets(30, 20, 45)

	txn, status := f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[0]})
	if txn.AddedPoints != 30 || txn.PointDelta != 30 || txn.Week != 3 {
		t.Fatalf("add = %+v", txn)
	}
	if status.PointsSpent != 30 || status.PointsRemaining != 90 || status.TransactionsUsed != 1 || status.TransactionsRemaining != 9 {
		t.Fatalf("status after add = %+v", status)
	}
	if a := f.asset(assets[0]); a.Status != models.AssetStatusDrafted || *a.OwnerTeamID != f.teams[0] {
		t.Fatalf("added asset = %+v", a)
	}

	f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[1]})

	txn, status = f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindTrade, DropAssetID: assets[1], AddAssetID: assets[2]})
	if txn.RefundedPoints != 20 || txn.AddedPoints != 45 || txn.PointDelta != 25 {
		t.Fatalf("trade = %+v", txn)
	}
	if status.PointsSpent != 75 || status.RosterSize != 2 || status.TransactionsUsed != 3 {
		t.Fatalf("status after trade = %+v", status)
	}
	if status.Roster[1].AcquisitionType != models.AcquisitionTypeTrade {
		t.Fatalf("traded-in entry = %+v", status.Roster[1])
	}
	if a := f.asset(assets[1]); a.Status != models.AssetStatusAvailable || a.OwnerTeamID != nil {
		t.Fatalf("traded-away asset = %+v", a)
	}

	txn, status = f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindDrop, DropAssetID: assets[0]})
	if txn.RefundedPoints != 30 || txn.PointDelta != -30 {
		t.Fatalf("drop = %+v", txn)
	}
	if status.PointsSpent != 45 || status.RosterSize != 1 {
		t.Fatalf("status after drop = %+v", status)
	}

	_, _, err := f.submit(SubmitTransactionRequest{Kind: models.TransactionKindDrop, DropAssetID: assets[2]})
	wantReason(t, err, rejection.RosterBelowMinimum)

	txns, err := f.app.ListTransactions(f.ctx, ListTransactionsRequest{SeasonID: f.season.ID, TeamID: f.teams[0]})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 4 || txns[0].Kind != models.TransactionKindDrop {
		t.Fatalf("transactions = %+v", txns)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.evs) != 4 {
		t.Fatalf("published %d events, want 4", len(f.evs))
	}
	for i, env := range f.evs {
		if env.Type != events.EventTypeTransactionApplied || env.Sequence != int64(i+1) {
			t.Errorf("event %d = %s seq %d", i, env.Type, env.Sequence)
		}
	}
	last, err := events.Decode[events.TransactionAppliedPayload](f.evs[3])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if last.PointsSpent != 45 || len(last.RosterAssetIDs) != 1 || last.RosterAssetIDs[0] != assets[2].String() {
		t.Fatalf("last payload = %+v", last)
	}
}

func TestTradeBudgetIsNet(t *testing.T) {
	f := newFixture(t, models.DraftStatusCompleted)
	assets := f.addAssets(50, 60, 10, 21, 9)

	f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[0]})
	f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[1]})
	f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[2]})

	// Full roster, 120 spent. A straight add is refused; a trade only needs the net to fit.
	_, _, err := f.submit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[4]})
	wantReason(t, err, rejection.BudgetExceeded)
	_, _, err = f.submit(SubmitTransactionRequest{Kind: models.TransactionKindTrade, DropAssetID: assets[2], AddAssetID: assets[3]})
	wantReason(t, err, rejection.BudgetExceeded)

	_, status := f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindTrade, DropAssetID: assets[2], AddAssetID: assets[4]})
	if status.PointsSpent != 119 || status.RosterSize != 3 {
		t.Fatalf("status = %+v", status)
	}
	if a := f.asset(assets[3]); a.Status != models.AssetStatusAvailable {
		t.Fatalf("refused trade touched asset: %+v", a)
	}
}

func TestTransactionLimit(t *testing.T) {
	f := newFixture(t, models.DraftStatusCompleted)
	f.season.MinRosterSize = 0
	f.tx(func(ctx context.Context, tx storage.Tx) error { return tx.Seasons().Update(ctx, f.season) })
	asset := f.addAssets(10)[0]

	for i := 0; i < 10; i++ {
		kind := models.TransactionKindAdd
		req := SubmitTransactionRequest{Kind: kind, AddAssetID: asset}
		if i%2 == 1 {
			req = SubmitTransactionRequest{Kind: models.TransactionKindDrop, DropAssetID: asset}
		}
		f.mustSubmit(req)
	}

	_, _, err := f.submit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: asset})
	wantReason(t, err, rejection.TransactionLimitReached)

	status, err := f.app.GetTeamStatus(f.ctx, f.season.ID, f.teams[0])
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.TransactionsUsed != 10 || status.TransactionsRemaining != 0 || status.CanTransact {
		t.Fatalf("status = %+v", status)
	}
}

func TestDeadline(t *testing.T) {
	f := newFixture(t, models.DraftStatusCompleted)
	assets := f.addAssets(10, 10)

	_, _, err := f.submit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[0], Week: intPtr(9), Admin: true})
	wantReason(t, err, rejection.DeadlinePassed)

	txn, _ := f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[0], Week: intPtr(8), Admin: true})
	if txn.Week != 8 {
		t.Fatalf("week = %d, want 8", txn.Week)
	}

	f.season.CurrentWeek = 20
	f.tx(func(ctx context.Context, tx storage.Tx) error { return tx.Seasons().Update(ctx, f.season) })
	_, _, err = f.submit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[1]})
	wantReason(t, err, rejection.DeadlinePassed)
}

func TestOverridesNeedAdmin(t *testing.T) {
	f := newFixture(t, models.DraftStatusCompleted)
	f.season.CurrentWeek = 20
	f.tx(func(ctx context.Context, tx storage.Tx) error { return tx.Seasons().Update(ctx, f.season) })
	assets := f.addAssets(10)

	tests := []struct {
		name string
		req  SubmitTransactionRequest
	}{
		{"earlier week", SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[0], Week: intPtr(1)}},
		{"refund", SubmitTransactionRequest{Kind: models.TransactionKindDrop, DropAssetID: assets[0], RefundPoints: intPtr(5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.submit(tt.req)
			if !errors.Is(err, rejection.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
	if a := f.asset(assets[0]); a.Status != models.AssetStatusAvailable {
		t.Fatalf("asset = %+v", a)
	}
}

func TestRefundNeverExceedsPrice(t *testing.T) {
	f := newFixture(t, models.DraftStatusCompleted)
	assets := f.addAssets(60, 50, 1, 100)

	f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[0]})
	f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[1]})
	f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[2]})

	txn, status := f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindDrop, DropAssetID: assets[2], RefundPoints: intPtr(111), Admin: true})
	if txn.RefundedPoints != 1 || status.PointsSpent != 110 {
		t.Fatalf("drop refunded %d, spent %d; want 1 and 110", txn.RefundedPoints, status.PointsSpent)
	}

	_, _, err := f.submit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[3]})
	wantReason(t, err, rejection.BudgetExceeded)

	txn, status = f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindDrop, DropAssetID: assets[1], RefundPoints: intPtr(20), Admin: true})
	if txn.RefundedPoints != 20 || status.PointsSpent != 90 {
		t.Fatalf("partial settlement refunded %d, spent %d; want 20 and 90", txn.RefundedPoints, status.PointsSpent)
	}
}

func TestRejectedLegs(t *testing.T) {
	f := newFixture(t, models.DraftStatusCompleted)
	assets := f.addAssets(10, 10)
	f.mustSubmit(SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[0]})

	tests := []struct {
		name string
		team uuid.UUID
		req  SubmitTransactionRequest
		want rejection.Reason
	}{
		{"add drafted asset", f.teams[1], SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: assets[0]}, rejection.AlreadyDrafted},
		{"add unknown asset", f.teams[1], SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: uuid.New()}, rejection.AssetUnavailable},
		{"drop asset not owned", f.teams[1], SubmitTransactionRequest{Kind: models.TransactionKindDrop, DropAssetID: assets[0]}, rejection.AssetNotOnRoster},
		{"trade away asset not owned", f.teams[1], SubmitTransactionRequest{Kind: models.TransactionKindTrade, DropAssetID: assets[1], AddAssetID: assets[0]}, rejection.AssetNotOnRoster},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.TeamID = tt.team
			_, _, err := f.submit(tt.req)
			wantReason(t, err, tt.want)
		})
	}

	status, err := f.app.GetTeamStatus(f.ctx, f.season.ID, f.teams[1])
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.TransactionsUsed != 0 {
		t.Fatalf("refused transactions counted: %d", status.TransactionsUsed)
	}
}

func TestValidation(t *testing.T) {
	f := newFixture(t, models.DraftStatusCompleted)
	a, b := uuid.New(), uuid.New()
	tests := []struct {
		name string
		req  SubmitTransactionRequest
	}{
		{"unknown kind", SubmitTransactionRequest{Kind: "waiver", AddAssetID: a}},
		{"add without asset", SubmitTransactionRequest{Kind: models.TransactionKindAdd}},
		{"add with drop leg", SubmitTransactionRequest{Kind: models.TransactionKindAdd, AddAssetID: a, DropAssetID: b}},
		{"drop without asset", SubmitTransactionRequest{Kind: models.TransactionKindDrop}},
		{"trade missing leg", SubmitTransactionRequest{Kind: models.TransactionKindTrade, AddAssetID: a}},
		{"trade same asset", SubmitTransactionRequest{Kind: models.TransactionKindTrade, AddAssetID: a, DropAssetID: a}},
		{"negative refund", SubmitTransactionRequest{Kind: models.TransactionKindDrop, DropAssetID: a, RefundPoints: intPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.submit(tt.req)
			if !errors.Is(err, rejection.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestConcurrentAddsOfOneAsset(t *testing.T) {
	f := newFixture(t, models.DraftStatusCompleted)
	asset := f.addAssets(10)[0]

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []uuid.UUID
	)
	for _, team := range f.teams {
		wg.Add(1)
		go func(team uuid.UUID) {
			defer wg.Done()
			_, _, err := f.submit(SubmitTransactionRequest{TeamID: team, Kind: models.TransactionKindAdd, AddAssetID: asset})
			if err == nil {
				mu.Lock()
				wins = append(wins, team)
				mu.Unlock()
				return
			}
			if !errors.Is(err, rejection.ErrAlreadyDrafted) {
				t.Errorf("loser got %v, want AlreadyDrafted", err)
			}
		}(team)
	}
	wg.Wait()

	if len(wins) != 1 {
		t.Fatalf("%d teams acquired the asset, want 1", len(wins))
	}
	if a := f.asset(asset); *a.OwnerTeamID != wins[0] {
		t.Fatalf("owner = %s, want %s", *a.OwnerTeamID, wins[0])
	}
}

func intPtr(v int) *int { return &v }
