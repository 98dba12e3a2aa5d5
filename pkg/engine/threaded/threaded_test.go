package threaded

import (
	"context"
	"net"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/watt-labs/triad/pkg/engine/common"
	"github.com/watt-labs/triad/pkg/handler"
	"github.com/watt-labs/triad/pkg/router"
	"github.com/watt-labs/triad/pkg/wire"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := common.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.WorkerCap = 10
	cfg.MaxConnections = 20
	cfg.ShutdownDrainTimeout = 2 * time.Second

	rt := router.New()
	rt.Add(wire.MethodGET, "/ping", handler.Sync(func(_ *wire.Request) *wire.Response {
		return wire.NewResponse(200, []byte("pong"))
	}))

	reg := prometheus.NewRegistry()
	stats := common.NewStats("test", reg)
	return New(cfg, rt, stats)
}

// listenAndServe starts e.Serve on an ephemeral port in the background
// and returns once the listener is bound, so callers can dial immediately.
func listenAndServe(t *testing.T, e *Engine) string {
	t.Helper()
	go func() {
		if err := e.Serve(); err != nil {
			t.Logf("serve: %v", err)
		}
	}()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := e.Addr(); addr != "" {
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("engine never bound a listener")
	return ""
}

func TestEndToEndRequestResponse(t *testing.T) {
	e := newTestEngine(t)
	addr := listenAndServe(t, e)
	defer e.Shutdown(context.Background())

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(buf[:n])
	if !contains(got, "200") || !contains(got, "pong") {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestNoGoroutineLeakAcrossCycles(t *testing.T) {
	before := runtime.NumGoroutine()
	for i := 0; i < 10; i++ {
		e := newTestEngine(t)
		addr := listenAndServe(t, e)

		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatalf("cycle %d dial: %v", i, err)
		}
		conn.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\n\r\n"))
		buf := make([]byte, 4096)
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		conn.Read(buf)
		conn.Close()

		if err := e.Shutdown(context.Background()); err != nil {
			t.Fatalf("cycle %d shutdown: %v", i, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if after := runtime.NumGoroutine(); after > before {
		t.Fatalf("goroutines = %d after 10 cycles, want <= %d", after, before)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
