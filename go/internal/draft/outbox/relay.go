package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	RetryDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   200 * time.Millisecond,
	}
}

// Relay drains unsent outbox rows into a Publisher. It polls on an interval
// and can be woken early with Wake or handed a single row with Handle.
type Relay struct {
	reader    storage.OutboxReader
	publisher Publisher
	metrics   MetricsCollector
	config    Config
	clock     clockwork.Clock

	wake chan struct{}

	mu        sync.Mutex
	running   bool
	processed uint64
	lastEvent time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

type RelayOption func(*Relay)

func WithClock(c clockwork.Clock) RelayOption {
	return func(r *Relay) { r.clock = c }
}

func WithMetrics(m MetricsCollector) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

func NewRelay(reader storage.OutboxReader, publisher Publisher, cfg Config, opts ...RelayOption) *Relay {
	r := &Relay{
		reader:    reader,
		publisher: publisher,
		metrics:   NoOpMetricsCollector{},
		config:    cfg,
		clock:     clockwork.NewRealClock(),
		wake:      make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("outbox relay already running")
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)

	log.Info().
		Dur("poll_interval", r.config.PollInterval).
		Int("batch_size", r.config.BatchSize).
		Msg("outbox relay started")
	return nil
}

func (r *Relay) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("outbox relay not running")
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()

	log.Info().Msg("outbox relay stopped")
	return nil
}

// Running reports whether the poll loop is active.
func (r *Relay) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Wake asks the loop to drain now instead of at the next tick.
func (r *Relay) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Stats returns how many rows were published and when the last one was.
func (r *Relay) Stats() (uint64, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed, r.lastEvent
}

func (r *Relay) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := r.clock.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on start
	r.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-r.wake:
			r.drain(ctx)
		case <-ticker.Chan():
			r.drain(ctx)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	if _, err := r.ProcessUnsent(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("failed to process unsent outbox events")
	}
}

// ProcessUnsent publishes one batch of unsent rows in outbox order. A row
// that fails to publish stops the batch so later rows of the same stream are
// not published ahead of it.
func (r *Relay) ProcessUnsent(ctx context.Context) (int, error) {
	start := r.clock.Now()
	unsent, err := r.reader.FetchUnsent(ctx, r.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	r.metrics.RecordOutboxLag(len(unsent))

	sent := 0
	for _, rec := range unsent {
		if err := r.publishWithRetry(ctx, rec); err != nil {
			r.metrics.RecordBatchProcessed(sent, r.clock.Since(start))
			return sent, fmt.Errorf("event %s: %w", rec.ID, err)
		}
		sent++
	}
	if sent > 0 {
		log.Debug().Int("count", sent).Msg("outbox batch published")
	}
	r.metrics.RecordBatchProcessed(sent, r.clock.Since(start))
	return sent, nil
}

// Handle publishes a single row, typically named by a NOTIFY payload. Rows
// already marked sent are ignored.
func (r *Relay) Handle(ctx context.Context, id uuid.UUID) error {
	rec, err := r.reader.FetchByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	if rec.SentAt != nil {
		return nil
	}
	return r.publishWithRetry(ctx, *rec)
}

// publishWithRetry attempts to publish an outbox event with a given retry delay and max retries.
func (r *Relay) publishWithRetry(ctx context.Context, rec storage.OutboxRecord) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.config.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(delay):
			}
		}

		started := r.clock.Now()
		err := r.publisher.Publish(ctx, rec)
		r.metrics.RecordPublishAttempt(rec.EventType, attempt+1, err == nil)
		if err != nil {
			lastErr = err
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", rec.ID.String()).
				Str("event_type", rec.EventType).
				Msg("failed to publish, retrying")
			continue
		}
		r.metrics.RecordEventProcessed(rec.EventType, true, r.clock.Since(started))

		if err := r.reader.MarkSent(ctx, rec.ID); err != nil {
			log.Error().Err(err).Str("event_id", rec.ID.String()).Msg("failed to mark outbox event as sent")
			return err
		}

		r.mu.Lock()
		r.processed++
		r.lastEvent = r.clock.Now()
		r.mu.Unlock()

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", rec.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	r.metrics.RecordEventProcessed(rec.EventType, false, 0)
	return fmt.Errorf("publish failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}
