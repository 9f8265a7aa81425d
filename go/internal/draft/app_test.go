package draft

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

type recorder struct {
	mu  sync.Mutex
	evs []events.Envelope
}

func (r *recorder) Notify(_ context.Context, env events.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, env)
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.evs))
	for i, e := range r.evs {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	clock  *clockwork.FakeClock
	rec    *recorder
	app    *App
	season *models.Season
	teams  []uuid.UUID
}

func newFixture(t *testing.T, numTeams int, configure func(*models.Season)) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: memory.New(),
		clock: clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)),
		rec:   &recorder{},
	}
	f.app = NewApp(f.store, f.rec, WithClock(f.clock))

	f.season = &models.Season{
		ID:                        uuid.New(),
		Name:                      "Test Season",
		PointBudgetPerTeam:        120,
		MinRosterSize:             1,
		MaxRosterSize:             10,
		MaxFreeAgencyTransactions: 10,
		FreeAgencyDeadline:        12,
		TotalTeams:                numTeams,
		DefaultPickTimeLimitSec:   30,
	}
	if configure != nil {
		configure(f.season)
	}
	for i := 0; i < numTeams; i++ {
		f.teams = append(f.teams, uuid.New())
	}
	f.tx(func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Seasons().Create(ctx, f.season); err != nil {
			return err
		}
		for i, id := range f.teams {
			ts := &models.TeamSeason{ID: uuid.New(), TeamID: id, SeasonID: f.season.ID, TeamName: string(rune('A' + i))}
			if err := tx.Teams().Create(ctx, ts); err != nil {
				return err
			}
		}
		return nil
	})
	return f
}

func (f *fixture) tx(fn func(ctx context.Context, tx storage.Tx) error) {
	f.t.Helper()
	if err := f.store.WithinTx(f.ctx, fn); err != nil {
		f.t.Fatalf("store: %v", err)
	}
}

// addAssets creates one available asset per value, in pool index order.
func (f *fixture) addAssets(values ...int) []uuid.UUID {
	f.t.Helper()
	ids := make([]uuid.UUID, len(values))
	f.tx(func(ctx context.Context, tx storage.Tx) error {
		for i, v := range values {
			a := &models.DraftableAsset{
				ID:         uuid.New(),
				SeasonID:   f.season.ID,
				Name:       "asset-" + uuid.NewString()[:8],
				PointValue: v,
				Status:     models.AssetStatusAvailable,
				PoolIndex:  i,
			}
			if err := tx.Assets().Create(ctx, a); err != nil {
				return err
			}
			ids[i] = a.ID
		}
		return nil
	})
	return ids
}

func (f *fixture) start(req CreateSessionRequest) *models.DraftSession {
	f.t.Helper()
	req.SeasonID = f.season.ID
	if req.TurnOrder == nil {
		req.TurnOrder = f.teams
	}
	s, err := f.app.CreateSession(f.ctx, req)
	if err != nil {
		f.t.Fatalf("create session: %v", err)
	}
	s, err = f.app.StartSession(f.ctx, s.ID)
	if err != nil {
		f.t.Fatalf("start session: %v", err)
	}
	return s
}

func (f *fixture) team(id uuid.UUID) *models.TeamSeason {
	f.t.Helper()
	var out *models.TeamSeason
	f.tx(func(ctx context.Context, tx storage.Tx) error {
		ts, err := tx.Teams().Get(ctx, f.season.ID, id)
		out = ts
		return err
	})
	return out
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

func (f *fixture) state(sessionID uuid.UUID) *SessionState {
	f.t.Helper()
	st, err := f.app.GetSessionState(f.ctx, sessionID)
	if err != nil {
		f.t.Fatalf("get state: %v", err)
	}
	return st
}

func (f *fixture) pick(sessionID, teamID, assetID uuid.UUID) *models.DraftPick {
	f.t.Helper()
	p, err := f.app.AttemptPick(f.ctx, sessionID, teamID, assetID)
	if err != nil {
		f.t.Fatalf("pick by %s: %v", teamID, err)
	}
	return p
}

func wantReason(t *testing.T, err error, want rejection.Reason) {
	t.Helper()
	got, ok := rejection.ReasonOf(err)
	if !ok {
		t.Fatalf("expected rejection %s, got %v", want, err)
	}
	if got != want {
		t.Fatalf("rejection = %s, want %s (%v)", got, want, err)
	}
}

func TestSnakeDraftScenario(t *testing.T) {
	f := newFixture(t, 4, nil)
	assets := f.addAssets(20, 15, 12, 9, 8)
	a, b, c, d := f.teams[0], f.teams[1], f.teams[2], f.teams[3]

	s := f.start(CreateSessionRequest{DraftType: models.DraftTypeSnake})
	if s.CurrentTeamID != a || s.CurrentPickNumber != 1 || s.CurrentRound != 1 {
		t.Fatalf("session opened on pick %d round %d team %s", s.CurrentPickNumber, s.CurrentRound, s.CurrentTeamID)
	}

	f.pick(s.ID, a, assets[0])
	if got := f.team(a).PointsSpent; got != 20 {
		t.Fatalf("team A pointsSpent = %d, want 20", got)
	}
	f.pick(s.ID, b, assets[1])
	f.pick(s.ID, c, assets[2])
	p := f.pick(s.ID, d, assets[3])
	if p.PickNumber != 4 || p.Round != 1 {
		t.Fatalf("team D pick = %d round %d", p.PickNumber, p.Round)
	}

	st := f.state(s.ID)
	if st.CurrentPickNumber != 5 || st.CurrentRound != 2 {
		t.Fatalf("pointer at pick %d round %d, want 5/2", st.CurrentPickNumber, st.CurrentRound)
	}
	if st.CurrentTeamID != d {
		t.Fatalf("pick 5 belongs to %s, want team D %s", st.CurrentTeamID, d)
	}

	_, err := f.app.AttemptPick(f.ctx, s.ID, a, assets[4])
	wantReason(t, err, rejection.NotYourTurn)
}

func TestAttemptPickRejections(t *testing.T) {
	f := newFixture(t, 2, func(s *models.Season) { s.PointBudgetPerTeam = 30 })
	assets := f.addAssets(10, 40, 5)
	banned := f.addAssets(3)[0]
	f.tx(func(ctx context.Context, tx storage.Tx) error {
		a, err := tx.Assets().Get(ctx, banned)
		if err != nil {
			return err
		}
		a.Status = models.AssetStatusBanned
		return tx.Assets().UpdateStatus(ctx, a, models.AssetStatusAvailable)
	})

	foreign := uuid.New()
	f.tx(func(ctx context.Context, tx storage.Tx) error {
		return tx.Assets().Create(ctx, &models.DraftableAsset{ID: foreign, SeasonID: uuid.New(), Name: "elsewhere", PointValue: 5, Status: models.AssetStatusAvailable})
	})

	s := f.start(CreateSessionRequest{})
	a, b := f.teams[0], f.teams[1]

	tests := []struct {
		name  string
		team  uuid.UUID
		asset uuid.UUID
		want  rejection.Reason
	}{
		{"wrong team", b, assets[0], rejection.NotYourTurn},
		{"banned asset", a, banned, rejection.AssetUnavailable},
		{"unknown asset", a, uuid.New(), rejection.AssetUnavailable},
		{"asset from another season", a, foreign, rejection.AssetUnavailable},
		{"over budget", a, assets[1], rejection.BudgetExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.app.AttemptPick(f.ctx, s.ID, tt.team, tt.asset)
			wantReason(t, err, tt.want)
		})
	}

	if got := f.team(a).PointsSpent; got != 0 {
		t.Fatalf("rejected picks charged team A %d points", got)
	}
	if st := f.state(s.ID); st.CurrentPickNumber != 1 || st.PicksMade != 0 {
		t.Fatalf("rejected picks moved the pointer to %d", st.CurrentPickNumber)
	}
}

func TestAttemptPickOnPendingSession(t *testing.T) {
	f := newFixture(t, 2, nil)
	assets := f.addAssets(10)
	s, err := f.app.CreateSession(f.ctx, CreateSessionRequest{SeasonID: f.season.ID, TurnOrder: f.teams})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.app.AttemptPick(f.ctx, s.ID, f.teams[0], assets[0])
	wantReason(t, err, rejection.SessionNotActive)
}

func TestRepeatedPickIsAlreadyDrafted(t *testing.T) {
	f := newFixture(t, 2, nil)
	assets := f.addAssets(20, 10)
	s := f.start(CreateSessionRequest{})
	a := f.teams[0]

	f.pick(s.ID, a, assets[0])
	for i := 0; i < 2; i++ {
		_, err := f.app.AttemptPick(f.ctx, s.ID, a, assets[0])
		wantReason(t, err, rejection.AlreadyDrafted)
	}
	if got := f.team(a).PointsSpent; got != 20 {
		t.Fatalf("pointsSpent = %d after retries, want 20", got)
	}
}

func TestConcurrentPicksDraftOnce(t *testing.T) {
	f := newFixture(t, 3, nil)
	assets := f.addAssets(10, 11, 12)
	s := f.start(CreateSessionRequest{})
	a := f.teams[0]

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		refusals  = map[rejection.Reason]int{}
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.app.AttemptPick(f.ctx, s.ID, a, assets[0])
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			reason, ok := rejection.ReasonOf(err)
			if !ok {
				t.Errorf("infrastructure error: %v", err)
				return
			}
			refusals[reason]++
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("%d picks succeeded, want 1", successes)
	}
	if refusals[rejection.AlreadyDrafted] != callers-1 {
		t.Fatalf("refusals = %v, want %d AlreadyDrafted", refusals, callers-1)
	}
	if got := f.team(a).PointsSpent; got != 10 {
		t.Fatalf("pointsSpent = %d, want 10", got)
	}
	picks, err := f.app.ListPicks(f.ctx, s.ID)
	if err != nil {
		t.Fatalf("list picks: %v", err)
	}
	if len(picks) != 1 {
		t.Fatalf("pick log holds %d picks, want 1", len(picks))
	}
}

func TestCompletedSessionPickLog(t *testing.T) {
	f := newFixture(t, 3, func(s *models.Season) { s.MaxRosterSize = 2 })
	assets := f.addAssets(10, 10, 10, 10, 10, 10)
	s := f.start(CreateSessionRequest{})
	if s.TotalRounds != 2 {
		t.Fatalf("total rounds defaulted to %d, want max roster size 2", s.TotalRounds)
	}

	for _, id := range assets {
		st := f.state(s.ID)
		f.pick(s.ID, st.CurrentTeamID, id)
	}

	st := f.state(s.ID)
	if st.Status != models.DraftStatusCompleted {
		t.Fatalf("status = %s, want completed", st.Status)
	}
	if st.CurrentTeamID != uuid.Nil || st.PickDeadline != nil {
		t.Fatalf("completed session still points at %s", st.CurrentTeamID)
	}

	picks, err := f.app.ListPicks(f.ctx, s.ID)
	if err != nil {
		t.Fatalf("list picks: %v", err)
	}
	if len(picks) != 6 {
		t.Fatalf("pick log holds %d picks, want 6", len(picks))
	}
	for i, p := range picks {
		if p.PickNumber != i+1 || p.Sequence != i+1 {
			t.Errorf("pick %d has number %d sequence %d", i, p.PickNumber, p.Sequence)
		}
	}

	_, err = f.app.AttemptPick(f.ctx, s.ID, f.teams[0], uuid.New())
	wantReason(t, err, rejection.SessionNotActive)

	types := f.rec.types()
	if types[len(types)-1] != events.EventTypeSessionCompleted {
		t.Fatalf("last event = %s, want SessionCompleted", types[len(types)-1])
	}
}

func TestFullRosterIsSkipped(t *testing.T) {
	f := newFixture(t, 3, func(s *models.Season) { s.MaxRosterSize = 2 })
	assets := f.addAssets(10, 10, 10, 10, 10, 10)
	a, b, c := f.teams[0], f.teams[1], f.teams[2]

	// Team B arrives with one asset already rostered.
	f.tx(func(ctx context.Context, tx storage.Tx) error {
		ts, err := tx.Teams().Get(ctx, f.season.ID, b)
		if err != nil {
			return err
		}
		ts.Roster = append(ts.Roster, models.RosterEntry{AssetID: uuid.New(), PointsPaid: 5, AcquisitionType: models.AcquisitionTypeFreeAgent})
		ts.PointsSpent = 5
		return tx.Teams().Update(ctx, ts)
	})

	s := f.start(CreateSessionRequest{})
	f.pick(s.ID, a, assets[0]) // 1
	f.pick(s.ID, b, assets[1]) // 2, B is now full
	f.pick(s.ID, c, assets[2]) // 3
	f.pick(s.ID, c, assets[3]) // 4, round 2 reversed

	st := f.state(s.ID)
	if st.CurrentPickNumber != 6 || st.CurrentTeamID != a {
		t.Fatalf("pointer at pick %d team %s, want pick 6 team A", st.CurrentPickNumber, st.CurrentTeamID)
	}
	f.pick(s.ID, a, assets[4])

	picks, err := f.app.ListPicks(f.ctx, s.ID)
	if err != nil {
		t.Fatalf("list picks: %v", err)
	}
	want := []int{1, 2, 3, 4, 6}
	if len(picks) != len(want) {
		t.Fatalf("pick log holds %d picks, want %d", len(picks), len(want))
	}
	for i, p := range picks {
		if p.PickNumber != want[i] || p.Sequence != i+1 {
			t.Errorf("pick %d: number %d sequence %d, want %d/%d", i, p.PickNumber, p.Sequence, want[i], i+1)
		}
	}
	if st := f.state(s.ID); st.Status != models.DraftStatusCompleted {
		t.Fatalf("status = %s, want completed", st.Status)
	}
}

func TestResolveTimeoutAutoSkip(t *testing.T) {
	f := newFixture(t, 2, nil)
	f.addAssets(10, 10)
	s := f.start(CreateSessionRequest{TimeoutPolicy: models.TimeoutPolicyAutoSkip})
	a, b := f.teams[0], f.teams[1]

	_, err := f.app.ResolveTimeout(f.ctx, s.ID, 1)
	wantReason(t, err, rejection.NotYourTurn)

	f.clock.Advance(31 * time.Second)
	p, err := f.app.ResolveTimeout(f.ctx, s.ID, 1)
	if err != nil {
		t.Fatalf("resolve timeout: %v", err)
	}
	if p.Resolution != models.PickResolutionAutoSkip || !p.WasAutoResolved || p.AssetID != nil || p.TeamID != a {
		t.Fatalf("unexpected auto-skip pick %+v", p)
	}
	if got := f.team(a); got.PointsSpent != 0 || len(got.Roster) != 0 {
		t.Fatalf("auto-skip charged team A: %+v", got)
	}

	st := f.state(s.ID)
	if st.CurrentPickNumber != 2 || st.CurrentTeamID != b {
		t.Fatalf("pointer at pick %d team %s, want pick 2 team B", st.CurrentPickNumber, st.CurrentTeamID)
	}
	if want := f.clock.Now().Add(30 * time.Second); !st.PickDeadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", st.PickDeadline, want)
	}

	// The timer armed for pick 1 fires again after the turn moved on.
	_, err = f.app.ResolveTimeout(f.ctx, s.ID, 1)
	wantReason(t, err, rejection.NotYourTurn)
}

func TestResolveTimeoutAutoPick(t *testing.T) {
	f := newFixture(t, 2, func(s *models.Season) {
		s.PointBudgetPerTeam = 30
		s.MaxRosterSize = 2
		s.DefaultTimeoutPolicy = models.TimeoutPolicyAutoPick
	})
	assets := f.addAssets(25, 10, 4, 1)
	a, b := f.teams[0], f.teams[1]
	s := f.start(CreateSessionRequest{})
	if s.TimeoutPolicy != models.TimeoutPolicyAutoPick {
		t.Fatalf("policy = %s, want season default auto_pick", s.TimeoutPolicy)
	}

	expire := func(pickNumber int) *models.DraftPick {
		t.Helper()
		f.clock.Advance(31 * time.Second)
		p, err := f.app.ResolveTimeout(f.ctx, s.ID, pickNumber)
		if err != nil {
			t.Fatalf("resolve pick %d: %v", pickNumber, err)
		}
		return p
	}

	p := expire(1)
	if p.AssetID == nil || *p.AssetID != assets[0] || p.Resolution != models.PickResolutionAutoPick || !p.WasAutoResolved {
		t.Fatalf("pick 1 = %+v, want auto pick of lowest index asset", p)
	}
	f.pick(s.ID, b, assets[3])

	// Snake: pick 3 is B again, with 29 points left.
	if p := expire(3); p.TeamID != b || *p.AssetID != assets[1] {
		t.Fatalf("pick 3 = %+v, want B auto-picking asset index 1", p)
	}
	// A has 5 left; index 1 is gone, index 2 costs 4.
	if p := expire(4); p.TeamID != a || *p.AssetID != assets[2] {
		t.Fatalf("pick 4 = %+v, want A auto-picking asset index 2", p)
	}
	if got := f.team(a).PointsSpent; got != 29 {
		t.Fatalf("team A spent %d, want 29", got)
	}
	if st := f.state(s.ID); st.Status != models.DraftStatusCompleted {
		t.Fatalf("status = %s, want completed", st.Status)
	}
}

func TestAutoPickFallsBackToSkip(t *testing.T) {
	f := newFixture(t, 2, func(s *models.Season) { s.PointBudgetPerTeam = 5 })
	f.addAssets(50)
	s := f.start(CreateSessionRequest{TimeoutPolicy: models.TimeoutPolicyAutoPick})

	f.clock.Advance(time.Minute)
	p, err := f.app.ResolveTimeout(f.ctx, s.ID, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Resolution != models.PickResolutionAutoSkip || p.AssetID != nil {
		t.Fatalf("pick = %+v, want auto skip", p)
	}
}

func TestPauseAndResume(t *testing.T) {
	f := newFixture(t, 2, nil)
	assets := f.addAssets(10)
	s := f.start(CreateSessionRequest{})

	paused, err := f.app.PauseSession(f.ctx, s.ID, "connectivity")
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.Status != models.DraftStatusPaused || paused.PickDeadline != nil {
		t.Fatalf("paused session = %s deadline %v", paused.Status, paused.PickDeadline)
	}

	f.clock.Advance(time.Hour)
	_, err = f.app.ResolveTimeout(f.ctx, s.ID, 1)
	wantReason(t, err, rejection.SessionNotActive)
	_, err = f.app.AttemptPick(f.ctx, s.ID, f.teams[0], assets[0])
	wantReason(t, err, rejection.SessionNotActive)

	resumed, err := f.app.ResumeSession(f.ctx, s.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if want := f.clock.Now().Add(30 * time.Second); resumed.PickDeadline == nil || !resumed.PickDeadline.Equal(want) {
		t.Fatalf("resumed deadline = %v, want %v", resumed.PickDeadline, want)
	}
	f.pick(s.ID, f.teams[0], assets[0])

	_, err = f.app.ResumeSession(f.ctx, s.ID)
	wantReason(t, err, rejection.SessionNotActive)
}

func TestOneOpenSessionPerSeason(t *testing.T) {
	f := newFixture(t, 2, nil)
	first, err := f.app.CreateSession(f.ctx, CreateSessionRequest{SeasonID: f.season.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.app.CreateSession(f.ctx, CreateSessionRequest{SeasonID: f.season.ID})
	wantReason(t, err, rejection.SessionAlreadyActive)

	if _, err := f.app.CancelSession(f.ctx, first.ID, "redo"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.app.CreateSession(f.ctx, CreateSessionRequest{SeasonID: f.season.ID}); err != nil {
		t.Fatalf("create after cancel: %v", err)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t, 2, nil)
	tests := []struct {
		name string
		req  CreateSessionRequest
	}{
		{"missing season", CreateSessionRequest{}},
		{"bad draft type", CreateSessionRequest{SeasonID: f.season.ID, DraftType: "lottery"}},
		{"negative limit", CreateSessionRequest{SeasonID: f.season.ID, PickTimeLimitSeconds: -1}},
		{"unknown team in order", CreateSessionRequest{SeasonID: f.season.ID, TurnOrder: []uuid.UUID{uuid.New()}}},
		{"duplicate team in order", CreateSessionRequest{SeasonID: f.season.ID, TurnOrder: []uuid.UUID{f.teams[0], f.teams[0]}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.app.CreateSession(f.ctx, tt.req)
			if !errors.Is(err, rejection.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestAuctionLot(t *testing.T) {
	f := newFixture(t, 2, func(s *models.Season) { s.PointBudgetPerTeam = 50 })
	assets := f.addAssets(10, 10, 10)
	a, b := f.teams[0], f.teams[1]
	s := f.start(CreateSessionRequest{DraftType: models.DraftTypeAuction})

	st := f.state(s.ID)
	if st.Lot == nil || st.Lot.Phase != models.AuctionPhaseNominationOpen || st.Lot.NominatedBy != a {
		t.Fatalf("lot = %+v, want nomination open for A", st.Lot)
	}

	_, err := f.app.AttemptPick(f.ctx, s.ID, a, assets[0])
	wantReason(t, err, rejection.NotYourTurn)
	_, err = f.app.Nominate(f.ctx, s.ID, b, assets[0], 5)
	wantReason(t, err, rejection.NotYourTurn)
	_, err = f.app.PlaceBid(f.ctx, s.ID, b, 5)
	wantReason(t, err, rejection.NotYourTurn)
	_, err = f.app.Nominate(f.ctx, s.ID, a, assets[0], 60)
	wantReason(t, err, rejection.BudgetExceeded)

	lot, err := f.app.Nominate(f.ctx, s.ID, a, assets[0], 10)
	if err != nil {
		t.Fatalf("nominate: %v", err)
	}
	if lot.HighBid != 10 || lot.HighBidderID != a {
		t.Fatalf("lot after nomination = %+v", lot)
	}

	_, err = f.app.PlaceBid(f.ctx, s.ID, b, 10)
	wantReason(t, err, rejection.BidTooLow)
	_, err = f.app.PlaceBid(f.ctx, s.ID, b, 51)
	wantReason(t, err, rejection.BudgetExceeded)

	f.clock.Advance(20 * time.Second)
	lot, err = f.app.PlaceBid(f.ctx, s.ID, b, 15)
	if err != nil {
		t.Fatalf("bid: %v", err)
	}
	if want := f.clock.Now().Add(30 * time.Second); !lot.ClosesAt.Equal(want) {
		t.Fatalf("bid did not extend the lot: closes %v, want %v", lot.ClosesAt, want)
	}

	// 20s after the bid the original clock has run out but the extended one has not.
	f.clock.Advance(20 * time.Second)
	_, err = f.app.ResolveTimeout(f.ctx, s.ID, 1)
	wantReason(t, err, rejection.NotYourTurn)

	f.clock.Advance(11 * time.Second)
	_, err = f.app.PlaceBid(f.ctx, s.ID, a, 20)
	wantReason(t, err, rejection.NotYourTurn)

	p, err := f.app.ResolveTimeout(f.ctx, s.ID, 1)
	if err != nil {
		t.Fatalf("resolve lot: %v", err)
	}
	if p.Resolution != models.PickResolutionAuction || p.TeamID != b || p.PointValueAtPick != 15 || p.WasAutoResolved {
		t.Fatalf("auction pick = %+v", p)
	}
	if got := f.team(b); got.PointsSpent != 15 || got.Roster[0].AcquisitionType != models.AcquisitionTypeAuction {
		t.Fatalf("winner ledger = %+v", got)
	}
	if got := f.asset(assets[0]); got.Status != models.AssetStatusDrafted || *got.OwnerTeamID != b {
		t.Fatalf("asset = %+v, want drafted by B", got)
	}

	st = f.state(s.ID)
	if st.CurrentPickNumber != 2 || st.CurrentTeamID != b || st.Lot.Phase != models.AuctionPhaseNominationOpen {
		t.Fatalf("after lot: pick %d team %s lot %+v", st.CurrentPickNumber, st.CurrentTeamID, st.Lot)
	}

	want := []events.EventType{events.EventTypeLotNominated, events.EventTypeBidPlaced, events.EventTypeLotResolved, events.EventTypePickMade, events.EventTypePickStarted}
	types := f.rec.types()
	tail := types[len(types)-len(want):]
	for i := range want {
		if tail[i] != want[i] {
			t.Fatalf("event tail = %v, want %v", tail, want)
		}
	}
}

func TestAuctionUnusedNominationIsSkipped(t *testing.T) {
	f := newFixture(t, 2, nil)
	f.addAssets(10)
	s := f.start(CreateSessionRequest{DraftType: models.DraftTypeAuction, TimeoutPolicy: models.TimeoutPolicyAutoPick})

	f.clock.Advance(31 * time.Second)
	p, err := f.app.ResolveTimeout(f.ctx, s.ID, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Resolution != models.PickResolutionAutoSkip || p.TeamID != f.teams[0] {
		t.Fatalf("pick = %+v, want nominator skipped", p)
	}
	if st := f.state(s.ID); st.CurrentTeamID != f.teams[1] {
		t.Fatalf("nomination passed to %s, want team B", st.CurrentTeamID)
	}
}

func TestAdminResolveLot(t *testing.T) {
	f := newFixture(t, 2, nil)
	assets := f.addAssets(10)
	s := f.start(CreateSessionRequest{DraftType: models.DraftTypeAuction})

	_, err := f.app.ResolveLot(f.ctx, s.ID)
	wantReason(t, err, rejection.NotYourTurn)

	if _, err := f.app.Nominate(f.ctx, s.ID, f.teams[0], assets[0], 7); err != nil {
		t.Fatalf("nominate: %v", err)
	}
	p, err := f.app.ResolveLot(f.ctx, s.ID)
	if err != nil {
		t.Fatalf("resolve lot: %v", err)
	}
	if p.TeamID != f.teams[0] || p.PointValueAtPick != 7 {
		t.Fatalf("pick = %+v", p)
	}
}

func TestCorruptPickLogHaltsSession(t *testing.T) {
	f := newFixture(t, 2, nil)
	assets := f.addAssets(10, 10)
	s := f.start(CreateSessionRequest{})

	// A pick the session never recorded.
	f.tx(func(ctx context.Context, tx storage.Tx) error {
		return tx.Picks().Append(ctx, &models.DraftPick{ID: uuid.New(), SessionID: s.ID, Sequence: 1, Round: 1, PickNumber: 1, TeamID: f.teams[0]})
	})

	_, err := f.app.AttemptPick(f.ctx, s.ID, f.teams[0], assets[0])
	wantReason(t, err, rejection.InvariantViolation)

	st := f.state(s.ID)
	if st.Status != models.DraftStatusHalted || st.HaltReason == "" || st.PickDeadline != nil {
		t.Fatalf("session = %s (%q), want halted", st.Status, st.HaltReason)
	}
	if got := f.asset(assets[0]); got.Status != models.AssetStatusAvailable {
		t.Fatalf("asset = %s after refused pick", got.Status)
	}

	_, err = f.app.AttemptPick(f.ctx, s.ID, f.teams[0], assets[1])
	wantReason(t, err, rejection.SessionNotActive)
	_, err = f.app.ResumeSession(f.ctx, s.ID)
	wantReason(t, err, rejection.SessionNotActive)
	if _, err := f.app.CancelSession(f.ctx, s.ID, "corrupt log"); err != nil {
		t.Fatalf("cancel halted session: %v", err)
	}

	types := f.rec.types()
	if types[len(types)-2] != events.EventTypeSessionHalted {
		t.Fatalf("events = %v, want SessionHalted before SessionCancelled", types)
	}
}

func TestEventSequence(t *testing.T) {
	f := newFixture(t, 2, nil)
	assets := f.addAssets(10, 10)
	s := f.start(CreateSessionRequest{})
	f.pick(s.ID, f.teams[0], assets[0])

	want := []events.EventType{
		events.EventTypeSessionCreated,
		events.EventTypeSessionStarted,
		events.EventTypePickStarted,
		events.EventTypePickMade,
		events.EventTypePickStarted,
	}
	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	if len(f.rec.evs) != len(want) {
		t.Fatalf("got %d events, want %d", len(f.rec.evs), len(want))
	}
	for i, env := range f.rec.evs {
		if env.Type != want[i] {
			t.Errorf("event %d = %s, want %s", i, env.Type, want[i])
		}
		if env.Sequence != int64(i+1) || env.StreamID != s.ID {
			t.Errorf("event %d has stream %s sequence %d", i, env.StreamID, env.Sequence)
		}
	}

	unsent, err := f.store.FetchUnsent(f.ctx, 0)
	if err != nil {
		t.Fatalf("fetch outbox: %v", err)
	}
	if len(unsent) != len(want) {
		t.Fatalf("outbox holds %d records, want %d", len(unsent), len(want))
	}
}
