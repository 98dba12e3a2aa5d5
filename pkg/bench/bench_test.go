package bench

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/watt-labs/triad/pkg/engine/common"
	"github.com/watt-labs/triad/pkg/engine/threaded"
	"github.com/watt-labs/triad/pkg/router"
)

// TestRunAgainstLiveThreadedEngine exercises the harness end-to-end
// against a real Threaded engine instance, confirming Run produces a
// sane TestResult without needing a separately running server process.
func TestRunAgainstLiveThreadedEngine(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.WorkerCap = 20
	cfg.MaxConnections = 100
	cfg.ShutdownDrainTimeout = 2 * time.Second

	rt := router.New()
	MountScenarioEndpoints(rt, nil)

	reg := prometheus.NewRegistry()
	stats := common.NewStats("bench-threaded", reg)
	engine := threaded.New(cfg, rt, stats)

	go func() {
		_ = engine.Serve()
	}()
	defer engine.Shutdown(context.Background())

	var addr string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a := engine.Addr(); a != "" {
			addr = a
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if addr == "" {
		t.Fatal("engine never bound a listener")
	}

	profile := Profile{
		Scenario:         Basic,
		Path:             "/bench/basic",
		Concurrency:      5,
		Duration:         200 * time.Millisecond,
		ReferenceTPS:     100,
		ReferenceLatency: 50 * time.Millisecond,
	}
	res, err := Run(context.Background(), "threaded", profile, "http://"+addr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Total == 0 {
		t.Fatalf("expected at least one request to complete")
	}
	if res.CompositeScore < 0 || res.CompositeScore > 100 {
		t.Fatalf("composite score out of range: %v", res.CompositeScore)
	}
}
