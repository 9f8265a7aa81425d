package draft

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/turn"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

// verifyPointer checks the stored pointer against the pick log before a
// turn is resolved. A mismatch means the stored state is corrupt; it is
// reported, never repaired.
func (a *App) verifyPointer(ctx context.Context, u *unit) error {
	s := u.session
	last, err := u.tx.Picks().Last(ctx, s.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if s.PicksMade != 0 {
			return rejection.New(rejection.InvariantViolation, "session counts %d picks but the log is empty", s.PicksMade)
		}
	case err != nil:
		return fmt.Errorf("failed to load last pick: %w", err)
	default:
		if last.Sequence != s.PicksMade {
			return rejection.New(rejection.InvariantViolation, "pick log ends at sequence %d, session counts %d", last.Sequence, s.PicksMade)
		}
		if last.PickNumber >= s.CurrentPickNumber {
			return rejection.New(rejection.InvariantViolation, "pick %d already recorded but session is on pick %d", last.PickNumber, s.CurrentPickNumber)
		}
	}

	if s.CurrentPickNumber < 1 || s.CurrentPickNumber > s.TotalSlots() {
		return rejection.New(rejection.InvariantViolation, "pick number %d outside 1..%d", s.CurrentPickNumber, s.TotalSlots())
	}
	if want := turn.CurrentTeam(s); want != s.CurrentTeamID {
		return rejection.New(rejection.InvariantViolation, "pick %d belongs to %s but session points at %s", s.CurrentPickNumber, want, s.CurrentTeamID)
	}
	return nil
}

// halt parks a session whose stored state broke an invariant. Only an admin
// cancel moves it on. Called with the session lock held.
func (a *App) halt(ctx context.Context, sessionID uuid.UUID, cause error) {
	_, evs, err := a.runUnit(ctx, sessionID, func(ctx context.Context, u *unit) error {
		s := u.session
		if err := validateStatusTransition(s.Status, models.DraftStatusHalted); err != nil {
			return err
		}
		s.Status = models.DraftStatusHalted
		s.HaltReason = cause.Error()
		s.PickDeadline = nil
		return u.emit(events.EventTypeSessionHalted, u.sessionPayload(s.HaltReason))
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			AnErr("cause", cause).
			Msg("failed to halt session")
		return
	}
	a.publish(ctx, evs)
	log.Error().
		Str("session_id", sessionID.String()).
		AnErr("cause", cause).
		Msg("invariant violation, session halted")
}
