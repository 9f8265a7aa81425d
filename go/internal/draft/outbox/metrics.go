package outbox

import (
	"sync"
	"time"
)

// MetricsCollector defines the interface for collecting outbox metrics
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
	RecordBatchProcessed(count int, duration time.Duration)
	RecordOutboxLag(lag int)
	RecordPublishAttempt(eventType string, attempt int, success bool)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventProcessed(eventType string, success bool, duration time.Duration) {}
func (NoOpMetricsCollector) RecordBatchProcessed(count int, duration time.Duration)                      {}
func (NoOpMetricsCollector) RecordOutboxLag(lag int)                                                     {}
func (NoOpMetricsCollector) RecordPublishAttempt(eventType string, attempt int, success bool)            {}

// Counters is an in-process MetricsCollector read by the health endpoint.
type Counters struct {
	mu             sync.Mutex
	published      map[string]uint64
	failed         map[string]uint64
	retries        uint64
	lastLag        int
	lastBatch      int
	lastBatchTook  time.Duration
	publishLatency time.Duration
}

func NewCounters() *Counters {
	return &Counters{
		published: make(map[string]uint64),
		failed:    make(map[string]uint64),
	}
}

func (c *Counters) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if success {
		c.published[eventType]++
		c.publishLatency = duration
		return
	}
	c.failed[eventType]++
}

func (c *Counters) RecordBatchProcessed(count int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastBatch = count
	c.lastBatchTook = duration
}

func (c *Counters) RecordOutboxLag(lag int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastLag = lag
}

func (c *Counters) RecordPublishAttempt(eventType string, attempt int, success bool) {
	if attempt <= 1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retries++
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Published      map[string]uint64 `json:"published"`
	Failed         map[string]uint64 `json:"failed"`
	Retries        uint64            `json:"retries"`
	Lag            int               `json:"lag"`
	LastBatch      int               `json:"last_batch"`
	LastBatchTook  time.Duration     `json:"last_batch_took_ns"`
	PublishLatency time.Duration     `json:"publish_latency_ns"`
}

func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Published:      make(map[string]uint64, len(c.published)),
		Failed:         make(map[string]uint64, len(c.failed)),
		Retries:        c.retries,
		Lag:            c.lastLag,
		LastBatch:      c.lastBatch,
		LastBatchTook:  c.lastBatchTook,
		PublishLatency: c.publishLatency,
	}
	for k, v := range c.published {
		s.Published[k] = v
	}
	for k, v := range c.failed {
		s.Failed[k] = v
	}
	return s
}
