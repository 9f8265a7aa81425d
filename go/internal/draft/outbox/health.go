package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	LastEventTime     time.Time `json:"last_event_time"`
	EventsProcessed   uint64    `json:"events_processed"`
	PendingEvents     int       `json:"pending_events"`
	DatabaseConnected bool      `json:"database_connected"`
	NATSConnected     bool      `json:"nats_connected"`
	RelayActive       bool      `json:"relay_active"`
	Metrics           *Snapshot `json:"metrics,omitempty"`
	Errors            []string  `json:"errors"`
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthChecker reports whether the relay is keeping up with the outbox.
type HealthChecker struct {
	relay     *Relay
	reader    storage.OutboxReader
	db        Pinger
	natsConn  *nats.Conn
	counters  *Counters
	active    func() bool
	clock     clockwork.Clock
	threshold time.Duration // How long without events before unhealthy
}

type HealthOption func(*HealthChecker)

func WithDatabase(db Pinger) HealthOption {
	return func(h *HealthChecker) { h.db = db }
}

func WithNATS(nc *nats.Conn) HealthOption {
	return func(h *HealthChecker) { h.natsConn = nc }
}

func WithCounters(c *Counters) HealthOption {
	return func(h *HealthChecker) { h.counters = c }
}

// WithActive overrides how liveness is judged, e.g. by a Listener.
func WithActive(fn func() bool) HealthOption {
	return func(h *HealthChecker) { h.active = fn }
}

func WithHealthClock(c clockwork.Clock) HealthOption {
	return func(h *HealthChecker) { h.clock = c }
}

func NewHealthChecker(relay *Relay, reader storage.OutboxReader, threshold time.Duration, opts ...HealthOption) *HealthChecker {
	h := &HealthChecker{
		relay:     relay,
		reader:    reader,
		active:    relay.Running,
		clock:     clockwork.NewRealClock(),
		threshold: threshold,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// pendingProbe caps how many unsent rows a health check reads.
const pendingProbe = 1001

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:           true,
		DatabaseConnected: true,
		Errors:            []string{},
	}

	status.EventsProcessed, status.LastEventTime = h.relay.Stats()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			status.DatabaseConnected = false
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
		}
	}

	if h.natsConn != nil {
		status.NATSConnected = h.natsConn.IsConnected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	status.RelayActive = h.active()
	if !status.RelayActive {
		status.Healthy = false
		status.Errors = append(status.Errors, "relay not active")
	}

	if status.DatabaseConnected {
		pending, err := h.reader.FetchUnsent(ctx, pendingProbe)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		} else {
			status.PendingEvents = len(pending)
			if len(pending) >= pendingProbe-1 {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", len(pending)))
			}
		}
	}

	// stalled: work is waiting and nothing was published for too long
	if status.PendingEvents > 0 && !status.LastEventTime.IsZero() {
		since := h.clock.Since(status.LastEventTime)
		if since > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no events processed for %s", since))
		}
	}

	if h.counters != nil {
		snap := h.counters.Snapshot()
		status.Metrics = &snap
	}
	return status
}

// HTTP handler helper
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// PrometheusHandler serves the health status in the Prometheus text format.
func (h *HealthChecker) PrometheusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(w, `# HELP outbox_healthy Whether the outbox relay is healthy
# TYPE outbox_healthy gauge
outbox_healthy %d

# HELP outbox_events_processed_total Total number of events published
# TYPE outbox_events_processed_total counter
outbox_events_processed_total %d

# HELP outbox_pending_events Current number of unsent events
# TYPE outbox_pending_events gauge
outbox_pending_events %d

# HELP outbox_database_connected Whether the database is reachable
# TYPE outbox_database_connected gauge
outbox_database_connected %d

# HELP outbox_nats_connected Whether NATS is connected
# TYPE outbox_nats_connected gauge
outbox_nats_connected %d

# HELP outbox_last_event_timestamp Unix timestamp of last published event
# TYPE outbox_last_event_timestamp gauge
outbox_last_event_timestamp %d
`,
			b2i(status.Healthy),
			status.EventsProcessed,
			status.PendingEvents,
			b2i(status.DatabaseConnected),
			b2i(status.NATSConnected),
			status.LastEventTime.Unix(),
		)
	})
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
