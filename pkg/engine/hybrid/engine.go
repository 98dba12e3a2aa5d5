package hybrid

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/watt-labs/triad/pkg/engine/common"
	"github.com/watt-labs/triad/pkg/router"
	"github.com/watt-labs/triad/pkg/wire"
)

// Engine is the Hybrid architecture: a future-chain pipeline split across
// a bounded I/O pool and a bounded CPU pool, grounded on the same
// connection shape as the Threaded engine but rebuilt around
// future.Future chains per spec.md §4.5.
type Engine struct {
	cfg    common.Config
	router *router.Router
	stats  *common.Stats

	ioPool  *fixedPool
	cpuPool *fixedPool
	sem     *semaphore.Weighted

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	stopping bool

	wg sync.WaitGroup
}

// New constructs a Hybrid Engine. The I/O pool is sized to cfg.WorkerCap
// (parse/write is blocking socket work, same ceiling Threaded uses for
// its whole pool); the CPU pool is fixed at common.NumCPU(), since routing and
// handler execution is the CPU-bound stage spec.md §4.5 isolates.
func New(cfg common.Config, rt *router.Router, stats *common.Stats) *Engine {
	return &Engine{
		cfg:     cfg,
		router:  rt,
		stats:   stats,
		ioPool:  newFixedPool(cfg.WorkerCap, cfg.WorkerCap*2),
		cpuPool: newFixedPool(common.NumCPU(), common.NumCPU()*2),
		sem:     semaphore.NewWeighted(int64(cfg.MaxConnections)),
		conns:   make(map[net.Conn]struct{}),
	}
}

func (e *Engine) Name() string { return "hybrid" }

// Serve binds cfg.Addr and accepts connections until Shutdown closes the
// listener.
func (e *Engine) Serve() error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", e.cfg.Addr)
	if err != nil {
		return fmt.Errorf("hybrid: listen %s: %w", e.cfg.Addr, err)
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
			log.Printf("hybrid: accept: %v", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		err = e.sem.Acquire(ctx, 1)
		cancel()
		if err != nil {
			e.stats.RejectedRequests.Add(1)
			writeRejection(conn)
			continue
		}

		e.mu.Lock()
		e.conns[conn] = struct{}{}
		e.mu.Unlock()

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			defer e.sem.Release(1)
			defer e.untrack(conn)
			e.processConn(conn)
		}()
	}
}

// writeRejection responds 503 to a connection turned away because the
// connection-count semaphore could not be acquired within its timeout
// (spec.md §7 ResourceExhausted: "in the others, respond 503"), then
// closes it.
func writeRejection(conn net.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(1 * time.Second))
	w := bufio.NewWriter(conn)
	_ = wire.Serialise(wire.NewResponse(503, []byte(`{"error":"connection limit reached"}`)), w)
	_ = conn.Close()
}

func (e *Engine) untrack(conn net.Conn) {
	e.mu.Lock()
	delete(e.conns, conn)
	e.mu.Unlock()
}

// Shutdown stops accepting, waits for in-flight connections to drain
// (best-effort, ShutdownDrainTimeout budget), force-closes the rest, and
// stops both pools.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.stopping = true
	ln := e.listener
	e.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(e.cfg.ShutdownDrainTimeout):
		e.mu.Lock()
		remaining := make([]net.Conn, 0, len(e.conns))
		for c := range e.conns {
			remaining = append(remaining, c)
		}
		e.mu.Unlock()
		for _, c := range remaining {
			_ = c.Close()
		}
	}

	e.ioPool.Stop()
	e.cpuPool.Stop()
	return nil
}

func (e *Engine) Stats() *common.Stats { return e.stats }

// Addr returns the listener's bound address once Serve has started, or
// "" before then.
func (e *Engine) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return ""
	}
	return e.listener.Addr().String()
}
