package threaded

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/watt-labs/triad/pkg/engine/common"
	"github.com/watt-labs/triad/pkg/router"
)

// Engine is the thread-per-connection architecture (spec.md §4.4): a
// bounded worker pool behind an accept loop, with a connection-count
// semaphore as an independent admission ceiling. Grounded on
// shockwave/pkg/shockwave/server/server_shockwave.go's accept loop,
// with goroutine-per-connection replaced by pool.Submit (see DESIGN.md).
type Engine struct {
	cfg    common.Config
	router *router.Router
	stats  *common.Stats

	pool *pool
	sem  *semaphore.Weighted

	listener net.Listener

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	stopping bool
}

// New constructs a Threaded Engine. The worker pool keeps
// max(10, WorkerCap/4) core workers (capped at WorkerCap) and grows to
// WorkerCap under load.
func New(cfg common.Config, rt *router.Router, stats *common.Stats) *Engine {
	core := cfg.WorkerCap / 4
	if core < 10 {
		core = 10
	}
	if core > cfg.WorkerCap {
		core = cfg.WorkerCap
	}
	return &Engine{
		cfg:    cfg,
		router: rt,
		stats:  stats,
		pool:   newPool(core, cfg.WorkerCap, cfg.WorkerCap*2),
		sem:    semaphore.NewWeighted(int64(cfg.MaxConnections)),
		conns:  make(map[net.Conn]struct{}),
	}
}

// Name identifies this architecture for /info and the benchmark harness.
func (e *Engine) Name() string { return "threaded" }

// Serve binds cfg.Addr and runs the accept loop until Shutdown is called
// or Serve itself returns an error binding the listener.
func (e *Engine) Serve() error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", e.cfg.Addr)
	if err != nil {
		return fmt.Errorf("threaded: listen %s: %w", e.cfg.Addr, err)
	}
	e.mu.Lock()
	e.listener = ln
	e.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			e.mu.Lock()
			stopping := e.stopping
			e.mu.Unlock()
			if stopping {
				return nil
			}
			log.Printf("threaded: accept: %v", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		err = e.sem.Acquire(ctx, 1)
		cancel()
		if err != nil {
			// Admission ceiling reached within the grace window; reject
			// this connection rather than block the accept loop
			// indefinitely (spec.md §4.4's 100ms retry policy).
			e.stats.RejectedRequests.Add(1)
			_ = conn.Close()
			continue
		}

		e.mu.Lock()
		e.conns[conn] = struct{}{}
		e.mu.Unlock()

		e.pool.Submit(func() {
			defer e.sem.Release(1)
			defer e.untrack(conn)
			handleConn(context.Background(), conn, e.router, &e.cfg, e.stats)
		})
	}
}

func (e *Engine) untrack(conn net.Conn) {
	e.mu.Lock()
	delete(e.conns, conn)
	e.mu.Unlock()
}

// Shutdown stops accepting new connections, waits up to
// ShutdownDrainTimeout for in-flight connections to finish on their own,
// force-closes whatever remains, then waits a second, equal budget for
// the worker pool itself to drain (spec.md §4.4: "two 30s budgets").
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.stopping = true
	e.mu.Unlock()

	e.mu.Lock()
	ln := e.listener
	e.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}

	deadline := time.Now().Add(e.cfg.ShutdownDrainTimeout)
	for time.Now().Before(deadline) {
		e.mu.Lock()
		n := len(e.conns)
		e.mu.Unlock()
		if n == 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	e.mu.Lock()
	remaining := make([]net.Conn, 0, len(e.conns))
	for c := range e.conns {
		remaining = append(remaining, c)
	}
	e.mu.Unlock()
	for _, c := range remaining {
		_ = c.Close()
	}

	if !e.pool.Stop(e.cfg.ShutdownDrainTimeout) {
		return fmt.Errorf("threaded: worker pool did not drain within %s", e.cfg.ShutdownDrainTimeout)
	}
	return nil
}

// Stats exposes the shared counters for management endpoints and the
// benchmark harness.
func (e *Engine) Stats() *common.Stats { return e.stats }

// Addr returns the listener's bound address once Serve has started, or
// "" before then — useful when cfg.Addr requested an ephemeral port
// (":0") and the caller needs to know what actually got bound.
func (e *Engine) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return ""
	}
	return e.listener.Addr().String()
}
