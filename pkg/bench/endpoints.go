package bench

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/watt-labs/triad/pkg/cache"
	"github.com/watt-labs/triad/pkg/future"
	"github.com/watt-labs/triad/pkg/handler"
	"github.com/watt-labs/triad/pkg/router"
	"github.com/watt-labs/triad/pkg/wire"
)

// cpuLoopIterations is the fixed compute-loop size backing
// /bench/cpu — deterministic per spec.md §4.7 ("a deterministic compute
// loop of fixed size per request").
const cpuLoopIterations = 2_000_000

// ioSimulatedDelay is the downstream-call simulation /bench/io sleeps
// for, meeting spec.md §4.7's "blocks >= 100ms" requirement.
const ioSimulatedDelay = 120 * time.Millisecond

// memoryResponseSize is the response body size /bench/memory returns,
// large enough to exercise allocator/GC pressure under concurrent load.
const memoryResponseSize = 256 * 1024

// memoryCacheCapacity bounds the retained-buffer cache /bench/memory
// writes through, small enough relative to the MEMORY_PRESSURE profile's
// concurrency that steady eviction churn (not just allocation) contributes
// to the GC pressure the scenario is meant to exercise.
const memoryCacheCapacity = 64

// memoryCache retains the last memoryCacheCapacity generated response
// bodies, keyed by a client-supplied "key" query parameter (or a
// per-process counter when the client sends none). Every /bench/memory
// request round-trips through it: a cache hit still allocates nothing new
// but does touch the same retained buffer under lock, and a miss both
// allocates and evicts, so the scenario load-bears real cache contention
// rather than only raw allocation.
var memoryCache = cache.NewLRU(memoryCacheCapacity)

var memoryCacheCounter atomic.Uint64

// OffloadFunc runs fn off the calling goroutine and returns a Future for
// its result. It is the EventLoop engine's eventloop.Offload primitive,
// threaded through as a plain function value so this package never needs
// to import any one engine package directly.
type OffloadFunc func(fn func() (*wire.Response, error)) *future.Future[*wire.Response]

// MountScenarioEndpoints registers the four synthetic endpoints the
// canonical scenarios drive against, onto every engine under test so
// comparisons run identical handler code (spec.md §4.7: "each keyed to
// an endpoint the engine must expose").
//
// offload must be non-nil when r is served by the EventLoop engine: its
// single reactor goroutine must never block (spec.md §4.3, §4.6), so
// /bench/cpu's compute loop and /bench/io's simulated downstream wait are
// routed through offload instead of running on the caller's goroutine.
// Pass nil for Threaded and Hybrid, where blocking inside a handler is
// safe — each connection already owns its own goroutine (Threaded) or pool
// worker (Hybrid).
func MountScenarioEndpoints(r *router.Router, offload OffloadFunc) {
	r.Add(wire.MethodGET, "/bench/basic", handler.Sync(func(_ *wire.Request) *wire.Response {
		return wire.NewResponse(200, []byte(`{"ok":true}`))
	}))

	r.Add(wire.MethodGET, "/bench/cpu", blockingHandler(func(_ *wire.Request) (*wire.Response, error) {
		sum := strconv.FormatInt(cpuBurn(cpuLoopIterations), 10)
		return wire.NewResponse(200, []byte(`{"sum":`+sum+`}`)), nil
	}, offload))

	r.Add(wire.MethodGET, "/bench/io", blockingHandler(func(_ *wire.Request) (*wire.Response, error) {
		time.Sleep(ioSimulatedDelay)
		return wire.NewResponse(200, []byte(`{"ok":true}`)), nil
	}, offload))

	r.Add(wire.MethodPOST, "/bench/memory", handler.Sync(func(req *wire.Request) *wire.Response {
		return wire.NewResponse(200, memoryPayload(req))
	}))
}

// blockingHandler wraps fn, a handler body that may block, so it runs
// through offload when offload is non-nil, or synchronously on the
// calling goroutine otherwise.
func blockingHandler(fn func(*wire.Request) (*wire.Response, error), offload OffloadFunc) handler.Handler {
	if offload == nil {
		return handler.SyncErr(fn)
	}
	return func(_ context.Context, req *wire.Request) *future.Future[*wire.Response] {
		return offload(func() (*wire.Response, error) {
			return fn(req)
		})
	}
}

// memoryPayload returns a memoryResponseSize-byte buffer for req, serving
// it from memoryCache on a hit and generating-then-caching it on a miss.
func memoryPayload(req *wire.Request) []byte {
	key := ""
	if vs := req.QueryValues()["key"]; len(vs) > 0 {
		key = vs[0]
	}
	if key == "" {
		key = strconv.FormatUint(memoryCacheCounter.Add(1), 10)
	}

	if buf, ok := memoryCache.Get(key); ok {
		return buf
	}
	buf := make([]byte, memoryResponseSize)
	memoryCache.Put(key, buf)
	return buf
}

// cpuBurn performs a fixed-size, compiler-opaque integer loop so the
// compute cost cannot be optimised away by inlining a constant result.
func cpuBurn(n int) int64 {
	var acc int64
	for i := 0; i < n; i++ {
		acc += int64(i%7) - int64(i%3)
	}
	return acc
}
