package hybrid

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/watt-labs/triad/pkg/future"
	"github.com/watt-labs/triad/pkg/wire"
)

// submitFuture runs fn on p and returns a Future for its result, the
// pool-bounded analogue of future.Go (which spawns unconditionally).
func submitFuture[T any](p *fixedPool, fn func() (T, error)) *future.Future[T] {
	f, resolve, reject := future.New[T]()
	p.Submit(func() {
		v, err := fn()
		if err != nil {
			reject(err)
		} else {
			resolve(v)
		}
	})
	return f
}

// timeoutFuture resolves after d with an escalated-timeout Response. It
// never rejects: timing out is a defined outcome (503), not a failure of
// the timer itself.
func timeoutFuture(d time.Duration) *future.Future[*wire.Response] {
	f, resolve, _ := future.New[*wire.Response]()
	time.AfterFunc(d, func() {
		resolve(wire.NewResponse(503, []byte(`{"error":"handler deadline exceeded"}`)))
	})
	return f
}

// processConn runs one connection through the pipeline: parse on the I/O
// pool, route on the CPU pool, serialise-and-close back on the I/O pool,
// racing the parse and route stages against a per-request deadline timer (spec.md
// §4.5's timeout escalation — resolved as cancellation-based racing, not
// double-scheduling, per DESIGN.md).
func (e *Engine) processConn(conn net.Conn) {
	start := time.Now()
	e.stats.ActiveConnections.Add(1)
	e.stats.TotalConnections.Add(1)
	defer e.stats.ActiveConnections.Add(-1)

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		_ = tc.SetKeepAlive(true)
	}
	_ = conn.SetReadDeadline(time.Now().Add(e.cfg.ReadTimeout))

	parseFuture := submitFuture(e.ioPool, func() (*wire.Request, error) {
		return wire.Parse(bufio.NewReader(conn))
	})

	routed := future.FlatMap(parseFuture, func(req *wire.Request) *future.Future[*wire.Response] {
		return submitFuture(e.cpuPool, func() (*wire.Response, error) {
			e.stats.TotalRequests.Add(1)
			resp, err := e.router.Route(context.Background(), req).Wait(context.Background())
			if err != nil {
				return wire.NewResponse(500, []byte(`{"error":"handler failure"}`)), nil
			}
			return resp, nil
		})
	})

	recovered, resolve, _ := future.New[*wire.Response]()
	routed.OnComplete(func(r *wire.Response, err error) {
		if err != nil {
			resolve(parseErrorResponse(err))
			return
		}
		resolve(r)
	})

	raced := future.Race(recovered, timeoutFuture(e.cfg.HybridDeadline))
	resp, _ := raced.Wait(context.Background())

	e.ioPool.Submit(func() {
		// resp is nil for the three Oversize* limits (spec.md §6: "reject,
		// no response") — parseErrorResponse returns nil for exactly those,
		// and nothing else on this path ever does.
		if resp != nil {
			w := bufio.NewWriter(conn)
			if err := wire.Serialise(resp, w); err != nil {
				e.stats.ConnectionErrors.Add(1)
			}
		}
		_ = conn.Close()
		e.stats.ObserveLatency(time.Since(start))
	})
}

// parseErrorResponse maps a parse-error sentinel to the response the
// connection should receive, or nil when spec.md §6's Limits table calls
// for the connection to be closed with no response written at all.
func parseErrorResponse(err error) *wire.Response {
	switch err {
	case wire.ErrOversizeRequestLine, wire.ErrOversizeHeaders, wire.ErrOversizeBody:
		return nil
	default:
		return wire.NewResponse(400, []byte(`{"error":"`+err.Error()+`"}`))
	}
}
