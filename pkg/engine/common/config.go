// Package common holds the configuration, statistics, and management
// endpoints shared by all three engines (spec.md §6), following
// shockwave/pkg/shockwave/server.Config's field-for-field doc-comment
// style: every field states its default in its own comment, and
// DefaultConfig is the single source of truth for those defaults.
package common

import "time"

// Config holds the options recognised across all three engines (spec.md
// §6). Engine-specific fields (HybridDeadline, OffloadPoolSize) are
// harmless no-ops on engines that don't use them.
type Config struct {
	// Addr is the TCP address to listen on.
	// Default: ":8080"
	Addr string

	// WorkerCap is the maximum worker-pool size (Threaded's bounded pool
	// size; Hybrid's I/O-pool ceiling).
	// Default: max(10, runtime.NumCPU()*4)
	WorkerCap int

	// Backlog is the configured accept backlog. It is reported by /info;
	// the engines' listeners do not pass it to the OS, which applies its
	// own default backlog.
	// Default: 50
	Backlog int

	// MaxConnections is the concurrent-connection ceiling.
	// Default: 1000
	MaxConnections int

	// MonitoringEnabled toggles the /metrics/prom endpoint and the
	// Prometheus registry behind it; /metrics (JSON) is always mounted.
	// Default: true
	MonitoringEnabled bool

	// ReadTimeout is the per-connection socket read deadline.
	// Default: 30s
	ReadTimeout time.Duration

	// ShutdownDrainTimeout bounds how long Shutdown waits for in-flight
	// connections before forcing closure.
	// Default: 30s
	ShutdownDrainTimeout time.Duration

	// HybridDeadline is the Hybrid engine's per-request handler deadline
	// before timeout escalation (spec.md §4.5).
	// Default: 10s
	HybridDeadline time.Duration

	// OffloadPoolSize is the EventLoop engine's offload-pool worker count.
	// Default: runtime.NumCPU()
	OffloadPoolSize int
}

// DefaultConfig returns the configuration used when no option is
// overridden, per spec.md §6's recognised-options table.
func DefaultConfig() Config {
	return Config{
		Addr:                 ":8080",
		WorkerCap:            defaultWorkerCap(),
		Backlog:              50,
		MaxConnections:       1000,
		MonitoringEnabled:    true,
		ReadTimeout:          30 * time.Second,
		ShutdownDrainTimeout: 30 * time.Second,
		HybridDeadline:       10 * time.Second,
		OffloadPoolSize:      NumCPU(),
	}
}
