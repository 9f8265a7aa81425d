package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
)

func newTestSeason() *models.Season {
	return &models.Season{
		ID:                        uuid.New(),
		PointBudgetPerTeam:        120,
		MinRosterSize:             8,
		MaxRosterSize:             10,
		MaxFreeAgencyTransactions: 10,
		FreeAgencyDeadline:        6,
		TotalTeams:                4,
	}
}

func newTestTeam(t *testing.T, l *Ledger, costs ...int) *models.TeamSeason {
	t.Helper()
	ts := &models.TeamSeason{ID: uuid.New(), TeamID: uuid.New()}
	for _, c := range costs {
		if err := l.ApplyAcquisition(ts, uuid.New(), c, models.AcquisitionTypeDraft); err != nil {
			t.Fatalf("seed acquisition: %v", err)
		}
	}
	return ts
}

func TestApplyAcquisition(t *testing.T) {
	cases := []struct {
		name    string
		costs   []int
		price   int
		wantErr error
	}{
		{name: "fits budget", costs: []int{20}, price: 20},
		{name: "exactly at budget", costs: []int{100}, price: 20},
		{name: "over budget", costs: []int{101}, price: 20, wantErr: rejection.ErrBudgetExceeded},
		{name: "roster full", costs: []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, price: 1, wantErr: rejection.ErrRosterFull},
		{name: "budget checked before roster", costs: []int{12, 12, 12, 12, 12, 12, 12, 12, 12, 12}, price: 1, wantErr: rejection.ErrBudgetExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := New(newTestSeason())
			ts := newTestTeam(t, l, tc.costs...)
			before := ts.PointsSpent
			beforeLen := len(ts.Roster)

			err := l.ApplyAcquisition(ts, uuid.New(), tc.price, models.AcquisitionTypeDraft)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				if ts.PointsSpent != before || len(ts.Roster) != beforeLen {
					t.Fatalf("ledger mutated on refusal")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if ts.PointsSpent != before+tc.price {
				t.Fatalf("pointsSpent = %d", ts.PointsSpent)
			}
			if ts.PointsSpent > 120 {
				t.Fatalf("budget invariant broken")
			}
		})
	}
}

func TestApplyReleaseRefundsAndCaps(t *testing.T) {
	l := New(newTestSeason())
	ts := newTestTeam(t, l, 10, 15)
	first := ts.Roster[0].AssetID

	refunded, err := l.ApplyRelease(ts, first, 10)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if refunded != 10 || ts.PointsSpent != 15 || len(ts.Roster) != 1 {
		t.Fatalf("refunded=%d spent=%d roster=%d", refunded, ts.PointsSpent, len(ts.Roster))
	}

	second := ts.Roster[0].AssetID
	refunded, err = l.ApplyRelease(ts, second, 500)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if refunded != 15 || ts.PointsSpent != 0 {
		t.Fatalf("refund not capped: refunded=%d spent=%d", refunded, ts.PointsSpent)
	}

	if _, err := l.ApplyRelease(ts, second, 1); !errors.Is(err, rejection.ErrAssetNotOnRoster) {
		t.Fatalf("err = %v", err)
	}
}

func TestReleaseDoesNotAliasClones(t *testing.T) {
	l := New(newTestSeason())
	ts := newTestTeam(t, l, 1, 2, 3)
	snapshot := ts.Clone()

	if _, err := l.ApplyRelease(ts, ts.Roster[0].AssetID, 1); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(snapshot.Roster) != 3 || snapshot.Roster[0].PointsPaid != 1 {
		t.Fatalf("clone was modified: %+v", snapshot.Roster)
	}
}

func TestCanTransactDistinguishesCauses(t *testing.T) {
	cases := []struct {
		name    string
		used    int
		week    int
		wantErr error
	}{
		{name: "allowed", used: 9, week: 6},
		{name: "limit reached", used: 10, week: 1, wantErr: rejection.ErrTransactionLimitReached},
		{name: "deadline passed", used: 0, week: 7, wantErr: rejection.ErrDeadlinePassed},
		{name: "limit wins when both", used: 10, week: 9, wantErr: rejection.ErrTransactionLimitReached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := New(newTestSeason())
			ts := &models.TeamSeason{TransactionsUsed: tc.used}
			err := l.CanTransact(ts, tc.week)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	l := New(newTestSeason())
	ts := newTestTeam(t, l, 50, 50)
	if err := l.Verify(ts); err != nil {
		t.Fatalf("verify: %v", err)
	}
	ts.PointsSpent = 121
	if err := l.Verify(ts); !errors.Is(err, rejection.ErrInvariantViolation) {
		t.Fatalf("err = %v", err)
	}
}
