package common

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats holds atomic counters updated on the hot path without a mutex,
// grounded on shockwave/pkg/shockwave/server.Stats's atomic.Uint64 /
// atomic.Int64 field style (spec.md §5: "Metrics counters are updated
// with atomic increments").
type Stats struct {
	TotalConnections  atomic.Uint64
	ActiveConnections atomic.Int64
	TotalRequests     atomic.Uint64
	RejectedRequests  atomic.Uint64
	ConnectionErrors  atomic.Uint64
	StartedAt         time.Time

	// latencyHist is a pack-library (prometheus) histogram rather than a
	// hand-rolled reservoir sampler, updated off the hot path's critical
	// section (Observe is lock-free internally).
	latencyHist prometheus.Histogram
}

// NewStats constructs a Stats block and registers its Prometheus
// collectors under name (used as a metric-name prefix so Threaded,
// Hybrid, and EventLoop each get distinguishable series when run
// side-by-side, as the benchmark harness does).
func NewStats(engineName string, reg prometheus.Registerer) *Stats {
	s := &Stats{StartedAt: time.Now()}
	s.latencyHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "triad",
		Subsystem: engineName,
		Name:      "request_duration_seconds",
		Help:      "Handler latency, start-of-parse to end-of-write.",
		Buckets:   prometheus.DefBuckets,
	})
	if reg != nil {
		reg.MustRegister(s.latencyHist)
	}
	return s
}

// ObserveLatency records one request's end-to-end latency.
func (s *Stats) ObserveLatency(d time.Duration) {
	s.latencyHist.Observe(d.Seconds())
}

// Snapshot is the JSON-serialisable view of Stats used by /health and
// /metrics (spec.md §6).
type Snapshot struct {
	Status            string  `json:"status"`
	Timestamp         string  `json:"timestamp"`
	ActiveConnections int64   `json:"activeConnections"`
	TotalConnections  uint64  `json:"totalConnections"`
	TotalRequests     uint64  `json:"totalRequests"`
	RejectedRequests  uint64  `json:"rejectedRequests"`
	ConnectionErrors  uint64  `json:"connectionErrors"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`
}

// Snapshot captures the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Status:            "ok",
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		ActiveConnections: s.ActiveConnections.Load(),
		TotalConnections:  s.TotalConnections.Load(),
		TotalRequests:     s.TotalRequests.Load(),
		RejectedRequests:  s.RejectedRequests.Load(),
		ConnectionErrors:  s.ConnectionErrors.Load(),
		UptimeSeconds:     time.Since(s.StartedAt).Seconds(),
	}
}
