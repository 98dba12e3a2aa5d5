// Command triad runs one of the three comparative HTTP/1.1 server
// architectures (Threaded, Hybrid, EventLoop) behind the shared handler
// contract in pkg/handler, mounting both the built-in management
// endpoints (pkg/engine/common) and the benchmark harness's scenario
// endpoints (pkg/bench) so the running process can be driven directly by
// pkg/bench.Run without a separate fixture binary.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/watt-labs/triad/pkg/bench"
	"github.com/watt-labs/triad/pkg/engine/common"
	"github.com/watt-labs/triad/pkg/engine/eventloop"
	"github.com/watt-labs/triad/pkg/engine/hybrid"
	"github.com/watt-labs/triad/pkg/engine/threaded"
	"github.com/watt-labs/triad/pkg/future"
	"github.com/watt-labs/triad/pkg/router"
	"github.com/watt-labs/triad/pkg/wire"
)

// server is the narrow interface all three engines satisfy, letting
// main stay engine-agnostic past the single selection switch below.
type server interface {
	Serve() error
	Shutdown(ctx context.Context) error
	Stats() *common.Stats
	Name() string
}

func main() {
	cfgResult, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("triad: config: %v", err)
	}

	rt := router.New()

	// promReg stays a concrete *prometheus.Registry (for common.Mount,
	// which checks it for nil directly) while registerer is a genuinely
	// nil interface when monitoring is disabled — passing promReg
	// straight into a prometheus.Registerer parameter would instead
	// produce a non-nil interface wrapping a nil pointer.
	var promReg *prometheus.Registry
	var registerer prometheus.Registerer
	if cfgResult.cfg.MonitoringEnabled {
		promReg = prometheus.NewRegistry()
		registerer = promReg
	}
	stats := common.NewStats(cfgResult.engineName, registerer)

	srv, err := buildEngine(cfgResult.engineName, cfgResult.cfg, rt, stats)
	if err != nil {
		log.Fatalf("triad: %v", err)
	}

	// Route registration happens after the engine is built (but before it
	// serves anything — Router.Add is safe up to that point) so the
	// EventLoop case can thread its engine's Offload primitive through the
	// benchmark endpoints. Mounting the same blocking handlers unguarded
	// under EventLoop would block its single reactor goroutine.
	bench.MountScenarioEndpoints(rt, offloadHookFor(srv))

	common.Mount(rt, stats, infoProvider(cfgResult), promReg)

	log.Printf("triad: starting %s engine on %s", srv.Name(), cfgResult.cfg.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("triad: serve: %v", err)
		}
	case sig := <-sigCh:
		log.Printf("triad: received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), cfgResult.cfg.ShutdownDrainTimeout+5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("triad: shutdown: %v", err)
		}
	}
}

func buildEngine(name string, cfg common.Config, rt *router.Router, stats *common.Stats) (server, error) {
	switch name {
	case "threaded":
		return threaded.New(cfg, rt, stats), nil
	case "hybrid":
		return hybrid.New(cfg, rt, stats), nil
	case "eventloop":
		return eventloop.New(cfg, rt, stats), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want threaded, hybrid, or eventloop)", name)
	}
}

// offloadHookFor returns a bench.OffloadFunc backed by srv's Offload
// primitive when srv is an EventLoop engine, or nil for the other two
// (which mount the blocking benchmark handlers unguarded, since blocking
// there does not stall a shared reactor goroutine).
func offloadHookFor(srv server) bench.OffloadFunc {
	el, ok := srv.(*eventloop.Engine)
	if !ok {
		return nil
	}
	return func(fn func() (*wire.Response, error)) *future.Future[*wire.Response] {
		return eventloop.Offload(el, fn)
	}
}

func infoProvider(r resolved) common.InfoProvider {
	return func() map[string]any {
		return map[string]any{
			"engine":            r.engineName,
			"addr":              r.cfg.Addr,
			"workerCap":         r.cfg.WorkerCap,
			"backlog":           r.cfg.Backlog,
			"maxConnections":    r.cfg.MaxConnections,
			"monitoringEnabled": r.cfg.MonitoringEnabled,
			"hybridDeadlineMs":  r.cfg.HybridDeadline.Milliseconds(),
			"offloadPoolSize":   r.cfg.OffloadPoolSize,
		}
	}
}
