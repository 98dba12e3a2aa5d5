package threaded

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/watt-labs/triad/pkg/engine/common"
	"github.com/watt-labs/triad/pkg/router"
	"github.com/watt-labs/triad/pkg/wire"
)

// connState mirrors spec.md §4.4's per-connection state machine:
// Accepted -> Parsing -> Routing -> Writing -> Closed. It exists purely
// for readability of handleConn below; nothing external observes it.
type connState int

const (
	stateAccepted connState = iota
	stateParsing
	stateRouting
	stateWriting
	stateClosed
)

// handleConn drives one connection through its whole lifecycle: a single
// parse/route/write cycle, then close (spec.md §9: no keep-alive, see
// DESIGN.md's Open Question decision). The handler's future is awaited
// right here, on whatever goroutine called handleConn — the worker
// goroutine if the pool accepted the job, or the accept goroutine itself
// under caller-runs back-pressure.
func handleConn(ctx context.Context, conn net.Conn, rt *router.Router, cfg *common.Config, stats *common.Stats) {
	state := stateAccepted
	start := time.Now()

	defer func() {
		state = stateClosed
		_ = conn.Close()
		stats.ActiveConnections.Add(-1)
	}()

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		_ = tc.SetKeepAlive(true)
	}

	stats.ActiveConnections.Add(1)
	stats.TotalConnections.Add(1)

	_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

	reader := bufio.NewReader(conn)

	state = stateParsing
	req, err := wire.Parse(reader)
	if err != nil {
		stats.ConnectionErrors.Add(1)
		writeError(conn, err)
		return
	}

	state = stateRouting
	stats.TotalRequests.Add(1)
	resp, err := rt.Route(ctx, req).Wait(ctx)
	if err != nil {
		resp = wire.NewResponse(500, []byte(`{"error":"handler failure"}`))
	}

	state = stateWriting
	writer := bufio.NewWriter(conn)
	if err := wire.Serialise(resp, writer); err != nil {
		stats.ConnectionErrors.Add(1)
	}

	stats.ObserveLatency(time.Since(start))
	_ = state
}

// writeError renders a sentinel parse error as a best-effort 4xx/5xx
// response before closing, so malformed input still gets an HTTP reply
// rather than a bare connection reset — except the three Oversize* limits
// (spec.md §6's Limits table: "reject, no response"), which close the
// connection with nothing written at all.
func writeError(conn net.Conn, err error) {
	if isOversizeError(err) {
		return
	}
	resp := wire.NewResponse(statusForParseError(err), []byte(`{"error":"`+err.Error()+`"}`))
	writer := bufio.NewWriter(conn)
	_ = wire.Serialise(resp, writer)
}

func isOversizeError(err error) bool {
	switch err {
	case wire.ErrOversizeRequestLine, wire.ErrOversizeHeaders, wire.ErrOversizeBody:
		return true
	default:
		return false
	}
}

func statusForParseError(err error) int {
	switch err {
	case wire.ErrUnknownMethod, wire.ErrMalformedRequestLine, wire.ErrMalformedHeader,
		wire.ErrMalformedContentLength, wire.ErrSmuggledLength, wire.ErrShortBody:
		return 400
	default:
		return 400
	}
}
