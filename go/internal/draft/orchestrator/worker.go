package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

// Start recovers armed clocks and starts the worker pool. Workers stop when
// ctx is cancelled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator is already running")
	}
	o.running = true
	o.mu.Unlock()

	for i := 0; i < o.numWorkers; i++ {
		o.wg.Add(1)
		go o.worker(ctx, i)
	}

	log.Info().
		Str("instance", o.instanceID).
		Int("workers", o.numWorkers).
		Msg("orchestrator started")

	if _, err := o.Recover(ctx); err != nil {
		log.Error().Err(err).Str("instance", o.instanceID).Msg("failed to recover pick clocks")
	}
	return nil
}

// Stop cancels every timer and waits for the workers to finish.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	o.mu.Unlock()

	log.Info().Str("instance", o.instanceID).Msg("shutting down workers")
	close(o.done)
	o.cancelAll()
	o.wg.Wait()
	log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
}

// worker processes timeouts from the work channel
func (o *Orchestrator) worker(ctx context.Context, workerID int) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.done:
			return
		case t := <-o.workCh:
			o.handle(ctx, workerID, t)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, workerID int, t task) {
	if !o.claim(t.job) {
		log.Debug().
			Str("session_id", t.sessionID.String()).
			Int("pick_number", t.pickNumber).
			Msg("skipping timeout already in flight")
		return
	}
	defer o.release(t.job)

	logger := log.With().
		Str("session_id", t.sessionID.String()).
		Int("pick_number", t.pickNumber).
		Int("attempt", t.attempt).
		Int("worker_id", workerID).
		Logger()

	pick, err := o.resolver.ResolveTimeout(ctx, t.sessionID, t.pickNumber)
	switch {
	case err == nil:
		logger.Info().
			Str("team_id", pick.TeamID.String()).
			Str("resolution", string(pick.Resolution)).
			Msg("timeout resolved")
		return
	case errors.Is(err, rejection.ErrSessionNotActive),
		errors.Is(err, rejection.ErrInvariantViolation),
		errors.Is(err, storage.ErrNotFound):
		logger.Debug().Err(err).Msg("timeout dropped")
		return
	}

	if o.superseded(t.sessionID) {
		logger.Debug().Err(err).Msg("timeout superseded by a newer timer")
		return
	}
	if t.attempt >= o.maxAttempts {
		logger.Warn().Err(err).Msg("giving up on timeout")
		return
	}
	logger.Warn().Err(err).Dur("retry_in", o.retryDelay).Msg("timeout refused, retrying")
	o.arm(t.sessionID, t.pickNumber, o.clock.Now().Add(o.retryDelay), t.attempt+1)
}

func (o *Orchestrator) claim(j job) bool {
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()
	if o.inFlight[j] {
		return false
	}
	o.inFlight[j] = true
	return true
}

func (o *Orchestrator) release(j job) {
	o.inFlightMu.Lock()
	delete(o.inFlight, j)
	o.inFlightMu.Unlock()
}
