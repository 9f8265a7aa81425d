// Package orchestrator owns the pick clocks. It arms one timer per session
// from the events the core emits and, when a timer fires, hands the turn to
// ResolveTimeout on a worker. The core decides; a stale or early timer is
// simply refused there.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
)

const (
	defaultWorkers     = 4
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
)

// Resolver is what the orchestrator needs from the draft core. Both
// *draft.App and the RPC client satisfy it.
type Resolver interface {
	ResolveTimeout(ctx context.Context, sessionID uuid.UUID, expectedPickNumber int) (*models.DraftPick, error)
	PendingDeadlines(ctx context.Context) ([]draft.Deadline, error)
}

var _ events.Notifier = (*Orchestrator)(nil)

// Orchestrator arms pick timers and resolves expired turns.
type Orchestrator struct {
	resolver    Resolver
	clock       clockwork.Clock
	numWorkers  int
	maxAttempts int
	retryDelay  time.Duration
	instanceID  string

	workCh chan task
	done   chan struct{}

	// One armed timer per session
	timers   map[uuid.UUID]*armed
	nextGen  uint64
	timersMu sync.Mutex

	// Highest sequence seen per session stream
	lastSequence map[uuid.UUID]int64

	// Track in-flight work to prevent duplicate processing
	inFlight   map[job]bool
	inFlightMu sync.Mutex

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithWorkers sets the size of the worker pool.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.numWorkers = n
		}
	}
}

// WithRetry sets how often and how far apart a refused or failed timeout is
// retried while no newer timer exists for the session.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(o *Orchestrator) {
		o.maxAttempts = maxAttempts
		o.retryDelay = delay
	}
}

// New creates an orchestrator resolving through r.
func New(r Resolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver:     r,
		clock:        clockwork.NewRealClock(),
		numWorkers:   defaultWorkers,
		maxAttempts:  defaultMaxAttempts,
		retryDelay:   defaultRetryDelay,
		instanceID:   uuid.New().String()[:8],
		done:         make(chan struct{}),
		timers:       make(map[uuid.UUID]*armed),
		lastSequence: make(map[uuid.UUID]int64),
		inFlight:     make(map[job]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.workCh = make(chan task, o.numWorkers*2)
	return o
}

// Notify arms, re-arms or cancels the session's timer. It never blocks on
// the resolver, so the core may call it while holding the session lock.
func (o *Orchestrator) Notify(_ context.Context, env events.Envelope) {
	if env.SessionID == uuid.Nil || !o.accept(env) {
		return
	}

	switch env.Type {
	case events.EventTypePickStarted:
		p, err := events.Decode[events.PickStartedPayload](env)
		if err != nil {
			log.Error().Err(err).Msg("failed to decode PickStarted")
			return
		}
		o.arm(env.SessionID, p.PickNumber, p.TimeoutAt, 1)

	case events.EventTypeLotNominated, events.EventTypeBidPlaced:
		p, err := events.Decode[events.LotPayload](env)
		if err != nil {
			log.Error().Err(err).Str("event_type", string(env.Type)).Msg("failed to decode lot event")
			return
		}
		o.arm(env.SessionID, p.PickNumber, p.ClosesAt, 1)

	case events.EventTypeSessionPaused,
		events.EventTypeSessionCancelled,
		events.EventTypeSessionCompleted,
		events.EventTypeSessionHalted:
		o.cancel(env.SessionID)
	}
}

func (o *Orchestrator) accept(env events.Envelope) bool {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	if last, ok := o.lastSequence[env.StreamID]; ok && env.Sequence <= last {
		return false
	}
	o.lastSequence[env.StreamID] = env.Sequence
	return true
}

// Recover re-arms the clocks of every active session, for a restarted
// process that missed the events that armed them.
func (o *Orchestrator) Recover(ctx context.Context) (int, error) {
	deadlines, err := o.resolver.PendingDeadlines(ctx)
	if err != nil {
		return 0, err
	}
	for _, d := range deadlines {
		o.arm(d.SessionID, d.PickNumber, d.Deadline, 1)
	}
	log.Info().
		Str("instance", o.instanceID).
		Int("armed", len(deadlines)).
		Msg("recovered pick clocks")
	return len(deadlines), nil
}

// Stats is a snapshot of the orchestrator's state.
type Stats struct {
	Running     bool `json:"running"`
	ArmedTimers int  `json:"armed_timers"`
	InFlight    int  `json:"in_flight"`
	Workers     int  `json:"workers"`
}

// Stats returns a snapshot of the orchestrator's state.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	running := o.running
	o.mu.Unlock()
	o.timersMu.Lock()
	armedTimers := len(o.timers)
	o.timersMu.Unlock()
	o.inFlightMu.Lock()
	inFlight := len(o.inFlight)
	o.inFlightMu.Unlock()
	return Stats{Running: running, ArmedTimers: armedTimers, InFlight: inFlight, Workers: o.numWorkers}
}
