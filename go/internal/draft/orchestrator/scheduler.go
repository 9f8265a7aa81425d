package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// job identifies one turn's timeout.
type job struct {
	sessionID  uuid.UUID
	pickNumber int
}

type task struct {
	job
	attempt int
}

type armed struct {
	pickNumber int
	deadline   time.Time
	attempt    int
	gen        uint64
	timer      clockwork.Timer
	stop       chan struct{}
}

func (a *armed) halt() {
	stopAndDrainTimer(a.timer)
	close(a.stop)
}

// arm replaces the session's timer. A timer for an earlier pick than the one
// armed is stale and ignored; the same pick and deadline is a no-op.
func (o *Orchestrator) arm(sessionID uuid.UUID, pickNumber int, deadline time.Time, attempt int) {
	o.timersMu.Lock()
	if cur, ok := o.timers[sessionID]; ok {
		switch {
		case pickNumber < cur.pickNumber:
			o.timersMu.Unlock()
			log.Debug().
				Str("session_id", sessionID.String()).
				Int("pick_number", pickNumber).
				Int("armed_pick", cur.pickNumber).
				Msg("ignoring timer for an earlier pick")
			return
		case pickNumber == cur.pickNumber && deadline.Equal(cur.deadline):
			o.timersMu.Unlock()
			return
		}
		cur.halt()
	}
	o.nextGen++
	a := &armed{
		pickNumber: pickNumber,
		deadline:   deadline,
		attempt:    attempt,
		gen:        o.nextGen,
		timer:      o.clock.NewTimer(deadline.Sub(o.clock.Now())),
		stop:       make(chan struct{}),
	}
	o.timers[sessionID] = a
	o.timersMu.Unlock()

	log.Debug().
		Str("session_id", sessionID.String()).
		Int("pick_number", pickNumber).
		Time("deadline", deadline).
		Int("attempt", attempt).
		Msg("pick timer armed")

	go o.wait(sessionID, a)
}

// wait hands the turn to the worker pool when a fires.
func (o *Orchestrator) wait(sessionID uuid.UUID, a *armed) {
	select {
	case <-a.timer.Chan():
	case <-a.stop:
		return
	case <-o.done:
		return
	}

	o.timersMu.Lock()
	if cur, ok := o.timers[sessionID]; ok && cur.gen == a.gen {
		delete(o.timers, sessionID)
	}
	o.timersMu.Unlock()

	t := task{job: job{sessionID: sessionID, pickNumber: a.pickNumber}, attempt: a.attempt}
	select {
	case o.workCh <- t:
		log.Debug().
			Str("session_id", sessionID.String()).
			Int("pick_number", a.pickNumber).
			Msg("timer fired - enqueued for processing")
	case <-o.done:
	}
}

// cancel stops the session's timer, if any.
func (o *Orchestrator) cancel(sessionID uuid.UUID) {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	if a, ok := o.timers[sessionID]; ok {
		a.halt()
		delete(o.timers, sessionID)
		log.Debug().Str("session_id", sessionID.String()).Msg("cancelled pick timer")
	}
}

// superseded reports whether a timer was armed for the session after the
// one that fired.
func (o *Orchestrator) superseded(sessionID uuid.UUID) bool {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()
	_, ok := o.timers[sessionID]
	return ok
}

func (o *Orchestrator) cancelAll() {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()
	for id, a := range o.timers {
		a.halt()
		delete(o.timers, id)
	}
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
