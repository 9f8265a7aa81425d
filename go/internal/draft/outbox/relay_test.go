package outbox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage/memory"
)

type capture struct {
	mu       sync.Mutex
	got      []storage.OutboxRecord
	failures int // publish calls to fail before succeeding
}

func (c *capture) Publish(ctx context.Context, rec storage.OutboxRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("bus unavailable")
	}
	c.got = append(c.got, rec)
	return nil
}

func (c *capture) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.got))
	for i, r := range c.got {
		out[i] = r.EventType
	}
	return out
}

func testConfig() Config {
	return Config{PollInterval: time.Hour, BatchSize: 10, MaxRetries: 2, RetryDelay: time.Millisecond}
}

func insertEvents(t *testing.T, store *memory.Store, types ...events.EventType) []uuid.UUID {
	t.Helper()
	seasonID, sessionID := uuid.New(), uuid.New()
	var ids []uuid.UUID
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		for i, et := range types {
			env, err := events.New(et, seasonID, sessionID, sessionID, int64(i+1), time.Now(), map[string]int{"n": i})
			if err != nil {
				return err
			}
			rec, err := env.Record()
			if err != nil {
				return err
			}
			if err := tx.Outbox().Insert(ctx, rec); err != nil {
				return err
			}
			ids = append(ids, rec.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert events: %v", err)
	}
	return ids
}

func TestProcessUnsentPublishesInOrderAndMarksSent(t *testing.T) {
	store := memory.New()
	insertEvents(t, store, events.EventTypeSessionStarted, events.EventTypePickStarted, events.EventTypePickMade)
	pub := &capture{}
	counters := NewCounters()
	relay := NewRelay(store, pub, testConfig(), WithMetrics(counters))

	n, err := relay.ProcessUnsent(context.Background())
	if err != nil {
		t.Fatalf("ProcessUnsent: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 published, got %d", n)
	}
	want := []string{"SessionStarted", "PickStarted", "PickMade"}
	for i, typ := range pub.types() {
		if typ != want[i] {
			t.Errorf("event %d: got %s, want %s", i, typ, want[i])
		}
	}

	unsent, err := store.FetchUnsent(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchUnsent: %v", err)
	}
	if len(unsent) != 0 {
		t.Errorf("expected outbox drained, %d left", len(unsent))
	}

	n, err = relay.ProcessUnsent(context.Background())
	if err != nil || n != 0 {
		t.Errorf("second pass: n=%d err=%v", n, err)
	}

	processed, last := relay.Stats()
	if processed != 3 || last.IsZero() {
		t.Errorf("unexpected stats %d %v", processed, last)
	}
	snap := counters.Snapshot()
	if snap.Published["PickMade"] != 1 || snap.LastBatch != 0 {
		t.Errorf("unexpected counters %+v", snap)
	}
}

func TestPublishRetriesThenSucceeds(t *testing.T) {
	store := memory.New()
	insertEvents(t, store, events.EventTypeSessionCreated)
	pub := &capture{failures: 2}
	counters := NewCounters()
	relay := NewRelay(store, pub, testConfig(), WithMetrics(counters))

	n, err := relay.ProcessUnsent(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected one published after retries, n=%d err=%v", n, err)
	}
	if snap := counters.Snapshot(); snap.Retries != 2 {
		t.Errorf("expected 2 retries recorded, got %d", snap.Retries)
	}
}

func TestFailedPublishStopsBatch(t *testing.T) {
	store := memory.New()
	insertEvents(t, store, events.EventTypePickStarted, events.EventTypePickMade)
	pub := &capture{failures: 3} // one more than the attempts allowed
	relay := NewRelay(store, pub, testConfig())

	n, err := relay.ProcessUnsent(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 0 || len(pub.types()) != 0 {
		t.Fatalf("nothing should be published past a failed row, got %v", pub.types())
	}
	unsent, _ := store.FetchUnsent(context.Background(), 0)
	if len(unsent) != 2 {
		t.Fatalf("expected both rows still unsent, got %d", len(unsent))
	}

	n, err = relay.ProcessUnsent(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("recovered pass: n=%d err=%v", n, err)
	}
}

func TestHandleSkipsSentRows(t *testing.T) {
	store := memory.New()
	ids := insertEvents(t, store, events.EventTypeBidPlaced)
	pub := &capture{}
	relay := NewRelay(store, pub, testConfig())
	ctx := context.Background()

	if err := relay.Handle(ctx, ids[0]); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := relay.Handle(ctx, ids[0]); err != nil {
		t.Fatalf("Handle again: %v", err)
	}
	if len(pub.types()) != 1 {
		t.Errorf("expected a single publish, got %d", len(pub.types()))
	}
	if err := relay.Handle(ctx, uuid.New()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRelayLoopDrainsOnWake(t *testing.T) {
	store := memory.New()
	pub := &capture{}
	relay := NewRelay(store, pub, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := relay.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := relay.Start(ctx); err == nil {
		t.Error("expected error starting twice")
	}

	insertEvents(t, store, events.EventTypeLotNominated)
	relay.Wake()

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.types()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(pub.types()) != 1 {
		t.Fatalf("expected wake to publish the row, got %v", pub.types())
	}
	if err := relay.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if relay.Running() {
		t.Error("relay still running after Stop")
	}
}

func TestNotifierPublisherDecodesEnvelope(t *testing.T) {
	store := memory.New()
	insertEvents(t, store, events.EventTypePickMade)
	var got []events.Envelope
	pub := NotifierPublisher{Notifier: events.NotifierFunc(func(_ context.Context, env events.Envelope) {
		got = append(got, env)
	})}
	relay := NewRelay(store, pub, testConfig())

	if _, err := relay.ProcessUnsent(context.Background()); err != nil {
		t.Fatalf("ProcessUnsent: %v", err)
	}
	if len(got) != 1 || got[0].Type != events.EventTypePickMade || got[0].Sequence != 1 {
		t.Fatalf("unexpected envelopes %+v", got)
	}

	// malformed rows are dropped rather than wedging the outbox
	if err := pub.Publish(context.Background(), storage.OutboxRecord{ID: uuid.New(), Payload: []byte("{")}); err != nil {
		t.Errorf("expected malformed row to be skipped, got %v", err)
	}
}

func TestHealthChecker(t *testing.T) {
	store := memory.New()
	insertEvents(t, store, events.EventTypePickMade)
	relay := NewRelay(store, &capture{}, testConfig())
	counters := NewCounters()

	t.Run("idle relay is unhealthy", func(t *testing.T) {
		h := NewHealthChecker(relay, store, time.Minute, WithCounters(counters))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		status := h.Check(context.Background())
		if status.PendingEvents != 1 || status.RelayActive {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("listener liveness", func(t *testing.T) {
		h := NewHealthChecker(relay, store, time.Minute, WithActive(func() bool { return true }))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		prom := httptest.NewRecorder()
		h.PrometheusHandler().ServeHTTP(prom, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if body := prom.Body.String(); !strings.Contains(body, "\noutbox_pending_events 1\n") {
			t.Errorf("missing pending gauge in %q", body)
		}
	})
}
