package eventloop

import (
	"context"
	"net"
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
	cfg.MaxConnections = 50
	cfg.OffloadPoolSize = 4
	cfg.ShutdownDrainTimeout = 2 * time.Second

	rt := router.New()
	rt.Add(wire.MethodGET, "/ping", handler.Sync(func(_ *wire.Request) *wire.Response {
		return wire.NewResponse(200, []byte("pong"))
	}))

	reg := prometheus.NewRegistry()
	stats := common.NewStats("test-eventloop", reg)
	return New(cfg, rt, stats)
}

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
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(buf[:n])
	if !contains(got, "200") || !contains(got, "pong") {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestOffloadCompletesAndDeliversResult(t *testing.T) {
	e := newTestEngine(t)
	fut := Offload(e, func() (int, error) {
		return 42, nil
	})
	v, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if v != 42 {
		t.Fatalf("v = %d, want 42", v)
	}
}

func TestConcurrentRequestsEachGetExactlyOneResponse(t *testing.T) {
	e := newTestEngine(t)
	addr := listenAndServe(t, e)
	defer e.Shutdown(context.Background())

	const n = 20
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				results <- ""
				return
			}
			defer conn.Close()
			conn.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\n\r\n"))
			conn.SetReadDeadline(time.Now().Add(3 * time.Second))
			buf := make([]byte, 4096)
			nRead, err := conn.Read(buf)
			if err != nil {
				results <- ""
				return
			}
			results <- string(buf[:nRead])
		}()
	}
	ok := 0
	for i := 0; i < n; i++ {
		if r := <-results; contains(r, "200") {
			ok++
		}
	}
	if ok != n {
		t.Fatalf("got %d/%d successful responses", ok, n)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
