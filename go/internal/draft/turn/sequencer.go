// Package turn maps a draft session's progress to the team entitled to act.
// Everything here is a pure function of the session; the caller persists the
// result.
package turn

import (
	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
)

// TeamIndex returns the index into the turn order of the team holding
// pickNumber. Auction nominations follow the linear rule.
func TeamIndex(draftType models.DraftType, totalTeams, round, pickNumber int) int {
	if totalTeams <= 0 || pickNumber <= 0 {
		return 0
	}
	posInRound := (pickNumber - 1) % totalTeams
	if draftType == models.DraftTypeSnake && round%2 == 0 {
		// Even rounds are reversed in snake
		return totalTeams - 1 - posInRound
	}
	return posInRound
}

// RoundOf returns the 1-indexed round a pick number belongs to.
func RoundOf(totalTeams, pickNumber int) int {
	if totalTeams <= 0 || pickNumber <= 0 {
		return 1
	}
	return 1 + (pickNumber-1)/totalTeams
}

// CurrentTeam returns the team id holding the session's current pick.
func CurrentTeam(s *models.DraftSession) uuid.UUID {
	if len(s.TurnOrder) == 0 {
		return uuid.Nil
	}
	idx := TeamIndex(s.DraftType, len(s.TurnOrder), RoundOf(len(s.TurnOrder), s.CurrentPickNumber), s.CurrentPickNumber)
	return s.TurnOrder[idx]
}

// Eligible reports whether a team can still be handed a turn. Teams whose
// roster is already full are passed over.
type Eligible func(teamID uuid.UUID) bool

// Pointer is the outcome of moving a session to its next live slot.
type Pointer struct {
	Round      int
	PickNumber int
	TeamID     uuid.UUID
	Done       bool
	Skipped    []int // slot numbers passed over because the team was ineligible
}

// Seek finds the first slot at or after from whose team is eligible.
func Seek(s *models.DraftSession, from int, eligible Eligible) Pointer {
	total := s.TotalSlots()
	n := len(s.TurnOrder)
	var skipped []int
	for p := from; p <= total; p++ {
		round := RoundOf(n, p)
		team := s.TurnOrder[TeamIndex(s.DraftType, n, round, p)]
		if eligible == nil || eligible(team) {
			return Pointer{Round: round, PickNumber: p, TeamID: team, Skipped: skipped}
		}
		skipped = append(skipped, p)
	}
	return Pointer{Round: s.CurrentRound, PickNumber: total + 1, Done: true, Skipped: skipped}
}

// First positions a freshly started session on its first live slot.
func First(s *models.DraftSession, eligible Eligible) Pointer {
	return Seek(s, 1, eligible)
}

// Advance moves past the current slot.
func Advance(s *models.DraftSession, eligible Eligible) Pointer {
	return Seek(s, s.CurrentPickNumber+1, eligible)
}

// Apply writes p into the session. A finished pointer completes the session
// instead of moving the round.
func Apply(s *models.DraftSession, p Pointer) {
	s.CurrentPickNumber = p.PickNumber
	if p.Done {
		s.Status = models.DraftStatusCompleted
		s.CurrentTeamID = uuid.Nil
		s.PickDeadline = nil
		return
	}
	s.CurrentRound = p.Round
	s.CurrentTeamID = p.TeamID
}

// Slot is one entry of a precomputed order.
type Slot struct {
	Round      int       `json:"round"`
	PickNumber int       `json:"pick_number"`
	TeamID     uuid.UUID `json:"team_id"`
}

// Order lists every slot of a session in pick order, ignoring roster state.
func Order(draftType models.DraftType, order []uuid.UUID, rounds int) []Slot {
	n := len(order)
	slots := make([]Slot, 0, n*rounds)
	for p := 1; p <= n*rounds; p++ {
		round := RoundOf(n, p)
		slots = append(slots, Slot{
			Round:      round,
			PickNumber: p,
			TeamID:     order[TeamIndex(draftType, n, round, p)],
		})
	}
	return slots
}
