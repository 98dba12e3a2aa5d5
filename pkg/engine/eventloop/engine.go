package eventloop

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/watt-labs/triad/pkg/engine/common"
	"github.com/watt-labs/triad/pkg/router"
)

// Engine is the single-reactor architecture (spec.md §4.6). See
// reactor.go for the event loop itself and offload.go for the Offload
// primitive blocking handler work uses to avoid stalling the reactor.
type Engine struct {
	cfg    common.Config
	router *router.Router
	stats  *common.Stats

	offloadPool *offloadPool

	events   chan event
	accepted chan net.Conn
	stop     chan struct{}

	// records is touched only inside runReactor's goroutine.
	records map[net.Conn]*connRecord

	reactorRestarted bool

	mu       sync.Mutex
	listener net.Listener
	stopping bool
	active   int // mirrors len(records), read by the accept loop for watermarks

	exitFunc func(code int)
}

// New constructs an EventLoop Engine. The offload pool is sized to
// cfg.OffloadPoolSize (default common.NumCPU(), per common.DefaultConfig).
func New(cfg common.Config, rt *router.Router, stats *common.Stats) *Engine {
	return &Engine{
		cfg:         cfg,
		router:      rt,
		stats:       stats,
		offloadPool: newOffloadPool(cfg.OffloadPoolSize, cfg.OffloadPoolSize*4),
		events:      make(chan event, 1024),
		accepted:    make(chan net.Conn, 64),
		stop:        make(chan struct{}),
		records:     make(map[net.Conn]*connRecord),
		exitFunc:    os.Exit,
	}
}

func (e *Engine) Name() string { return "eventloop" }

// watermarks implements spec.md §4.6's "high/low water-mark read
// back-pressure": the accept loop pauses once active connections reach
// 90% of MaxConnections, and resumes only once they fall back to 70% —
// the hysteresis gap avoids the accept loop thrashing pause/resume at
// the boundary.
func (e *Engine) watermarks() (high, low int) {
	high = e.cfg.MaxConnections * 9 / 10
	low = e.cfg.MaxConnections * 7 / 10
	if high < 1 {
		high = 1
	}
	if low < 0 {
		low = 0
	}
	return high, low
}

// Serve binds cfg.Addr, starts the reactor goroutine, and runs the accept
// loop until Shutdown closes the listener.
func (e *Engine) Serve() error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", e.cfg.Addr)
	if err != nil {
		return fmt.Errorf("eventloop: listen %s: %w", e.cfg.Addr, err)
	}
	e.mu.Lock()
	e.listener = ln
	e.mu.Unlock()

	go e.runReactor()

	high, low := e.watermarks()
	paused := false

	for {
		e.mu.Lock()
		active := e.active
		e.mu.Unlock()

		if !paused && active >= high {
			paused = true
		}
		if paused {
			for active >= low {
				time.Sleep(10 * time.Millisecond)
				e.mu.Lock()
				stopping := e.stopping
				e.mu.Unlock()
				if stopping {
					return nil
				}
				e.mu.Lock()
				active = e.active
				e.mu.Unlock()
			}
			paused = false
		}

		conn, err := ln.Accept()
		if err != nil {
			e.mu.Lock()
			stopping := e.stopping
			e.mu.Unlock()
			if stopping {
				return nil
			}
			log.Printf("eventloop: accept: %v", err)
			continue
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
			_ = tc.SetKeepAlive(true)
		}

		e.mu.Lock()
		e.active++
		e.mu.Unlock()
		e.accepted <- conn
	}
}

// accountClosed is called by the reactor (via a small bridge, see
// reactor.go's evWriteDone handling) whenever a connection's record is
// removed, so the accept loop's watermark check stays accurate without
// reaching into the reactor-owned records map itself.
func (e *Engine) accountClosed() {
	e.mu.Lock()
	e.active--
	e.mu.Unlock()
}

// fatal implements the "restart once, then exit" reactor panic policy's
// terminal branch (spec.md §7).
func (e *Engine) fatal(cause any) {
	log.Printf("eventloop: fatal reactor failure: %v", cause)
	e.exitFunc(1)
}

// Shutdown stops accepting, waits up to ShutdownDrainTimeout for the
// active connection count to reach zero (every connection is already
// mid-flight toward exactly one response, since there is no keep-alive,
// per DESIGN.md), then signals the reactor to stop and stops the offload
// pool. Connections still open when the budget runs out are not closed
// here.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.stopping = true
	ln := e.listener
	e.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}

	deadline := time.Now().Add(e.cfg.ShutdownDrainTimeout)
	for time.Now().Before(deadline) {
		e.mu.Lock()
		n := e.active
		e.mu.Unlock()
		if n == 0 {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}

	close(e.stop)
	e.offloadPool.Stop()
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
