// Package handler defines the single request-handling contract shared by
// the router and all three engines (spec.md §4.3). It deliberately has no
// engine-specific variants — spec.md §9: "Do not derive engine-specific
// variants; that creates combinatorial overhead in the benchmark harness."
package handler

import (
	"context"

	"github.com/watt-labs/triad/pkg/future"
	"github.com/watt-labs/triad/pkg/wire"
)

// Handler produces a future of Response from a Request. Implementations
// MUST NOT block the calling goroutine in the EventLoop engine except via
// its Offload primitive; they MAY block in Threaded; in Hybrid they may
// block but will then hold a pool worker for the duration.
type Handler func(ctx context.Context, req *wire.Request) *future.Future[*wire.Response]

// Sync lifts a synchronous handler function into the async contract by
// immediately completing the returned future (spec.md §4.3: "Synchronous
// handlers lift via a helper that immediately completes the future").
func Sync(fn func(*wire.Request) *wire.Response) Handler {
	return func(_ context.Context, req *wire.Request) *future.Future[*wire.Response] {
		return future.Completed(fn(req))
	}
}

// SyncErr lifts a synchronous handler that can fail; a non-nil error
// rejects the returned future, which engines translate to a 500 per
// spec.md §7 (HandlerFailure).
func SyncErr(fn func(*wire.Request) (*wire.Response, error)) Handler {
	return func(_ context.Context, req *wire.Request) *future.Future[*wire.Response] {
		return future.FromSync(func() (*wire.Response, error) {
			return fn(req)
		})
	}
}
