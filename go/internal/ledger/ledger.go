// Package ledger enforces a season's point budget, roster size and free
// agency limits on a team's TeamSeason row. All arithmetic is on integers.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
)

// Ledger applies a season's rules. It holds no state besides the season.
type Ledger struct {
	season *models.Season
	now    func() time.Time
}

// New returns a ledger for season.
func New(season *models.Season) *Ledger {
	return &Ledger{season: season, now: time.Now}
}

// WithClock overrides the timestamp source for roster entries.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Remaining returns the unspent budget.
func (l *Ledger) Remaining(ts *models.TeamSeason) int {
	return l.season.PointBudgetPerTeam - ts.PointsSpent
}

// CanAfford reports whether the team can pay pointValue.
func (l *Ledger) CanAfford(ts *models.TeamSeason, pointValue int) bool {
	return pointValue >= 0 && ts.PointsSpent+pointValue <= l.season.PointBudgetPerTeam
}

// HasRosterRoom reports whether one more asset fits on the roster.
func (l *Ledger) HasRosterRoom(ts *models.TeamSeason) bool {
	return len(ts.Roster) < l.season.MaxRosterSize
}

// CheckAcquisition returns the refusal ApplyAcquisition would produce, or nil.
func (l *Ledger) CheckAcquisition(ts *models.TeamSeason, pointValue int) error {
	if !l.CanAfford(ts, pointValue) {
		return rejection.New(rejection.BudgetExceeded, "%d spent + %d exceeds budget %d",
			ts.PointsSpent, pointValue, l.season.PointBudgetPerTeam)
	}
	if !l.HasRosterRoom(ts) {
		return rejection.New(rejection.RosterFull, "roster already holds %d of %d",
			len(ts.Roster), l.season.MaxRosterSize)
	}
	return nil
}

// ApplyAcquisition adds assetID to the roster and charges pointValue.
// ts is left untouched on refusal.
func (l *Ledger) ApplyAcquisition(ts *models.TeamSeason, assetID uuid.UUID, pointValue int, via models.AcquisitionType) error {
	if err := l.CheckAcquisition(ts, pointValue); err != nil {
		return err
	}
	if _, ok := ts.Entry(assetID); ok {
		return rejection.New(rejection.AlreadyDrafted, "asset %s already on roster", assetID)
	}
	ts.Roster = append(ts.Roster, models.RosterEntry{
		AssetID:         assetID,
		PointsPaid:      pointValue,
		AcquisitionType: via,
		AcquiredAt:      l.now().UTC(),
	})
	ts.PointsSpent += pointValue
	return nil
}

// ApplyRelease removes assetID and refunds refundPoints, capped at what has
// been spent so the balance never goes negative.
func (l *Ledger) ApplyRelease(ts *models.TeamSeason, assetID uuid.UUID, refundPoints int) (int, error) {
	idx := -1
	for i, e := range ts.Roster {
		if e.AssetID == assetID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, rejection.New(rejection.AssetNotOnRoster, "asset %s is not on the roster", assetID)
	}
	if refundPoints < 0 {
		refundPoints = 0
	}
	if refundPoints > ts.PointsSpent {
		refundPoints = ts.PointsSpent
	}
	ts.Roster = append(ts.Roster[:idx:idx], ts.Roster[idx+1:]...)
	ts.PointsSpent -= refundPoints
	return refundPoints, nil
}

// CanTransact reports whether a free agency transaction is allowed, and if
// not, which of the two limits blocked it.
func (l *Ledger) CanTransact(ts *models.TeamSeason, currentWeek int) error {
	if ts.TransactionsUsed >= l.season.MaxFreeAgencyTransactions {
		return rejection.New(rejection.TransactionLimitReached, "%d of %d transactions used",
			ts.TransactionsUsed, l.season.MaxFreeAgencyTransactions)
	}
	if currentWeek > l.season.FreeAgencyDeadline {
		return rejection.New(rejection.DeadlinePassed, "week %d is past deadline week %d",
			currentWeek, l.season.FreeAgencyDeadline)
	}
	return nil
}

// Verify checks the stored row against the season bounds.
func (l *Ledger) Verify(ts *models.TeamSeason) error {
	if ts.PointsSpent < 0 || ts.PointsSpent > l.season.PointBudgetPerTeam {
		return rejection.New(rejection.InvariantViolation, "team %s has spent %d of %d",
			ts.TeamID, ts.PointsSpent, l.season.PointBudgetPerTeam)
	}
	if len(ts.Roster) > l.season.MaxRosterSize {
		return rejection.New(rejection.InvariantViolation, "team %s holds %d assets, max %d",
			ts.TeamID, len(ts.Roster), l.season.MaxRosterSize)
	}
	if ts.TransactionsUsed < 0 || ts.TransactionsUsed > l.season.MaxFreeAgencyTransactions {
		return rejection.New(rejection.InvariantViolation, "team %s used %d transactions",
			ts.TeamID, ts.TransactionsUsed)
	}
	return nil
}
