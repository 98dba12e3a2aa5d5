package eventloop

import (
	"bufio"
	"context"
	"log"
	"net"
	"time"

	"github.com/watt-labs/triad/pkg/wire"
)

// connPhase mirrors spec.md §4.6's per-connection state machine:
// ReadingRequestLine/Headers/Body are folded into a single "reading"
// phase here since wire.Parse reads the whole request in one blocking
// call on the reader goroutine — the reactor only ever observes the
// coarser Dispatched/Writing/Closed transitions, which is what it
// actually needs to decide what to do with an event.
type connPhase int

const (
	phaseReading connPhase = iota
	phaseDispatched
	phaseWriting
	phaseClosed
)

// connRecord is mutated only by the reactor goroutine — the single most
// important invariant of this engine (spec.md §4.6: "connection records
// mutated only by the reactor").
type connRecord struct {
	conn  net.Conn
	phase connPhase
	start time.Time
}

type eventKind int

const (
	evParsed eventKind = iota
	evParseError
	evResponseReady
	evWriteDone
)

// event is what reader goroutines, handler futures, and write-offload
// jobs post back to the reactor; the reactor is the only goroutine that
// ever reads from Engine.events.
type event struct {
	kind eventKind
	conn net.Conn
	req  *wire.Request
	resp *wire.Response
	err  error
}

// runReactor is the single-goroutine loop: it owns every connRecord and
// is the only code path that writes to e.records. Panics are recovered
// and the reactor is restarted once before the process exits (spec.md
// §7's reactor panic policy).
func (e *Engine) runReactor() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventloop: reactor panic: %v", r)
			if !e.reactorRestarted {
				e.reactorRestarted = true
				log.Printf("eventloop: restarting reactor goroutine")
				go e.runReactor()
				return
			}
			log.Printf("eventloop: reactor panicked twice, exiting")
			e.fatal(r)
		}
	}()

	for {
		select {
		case ev := <-e.events:
			e.handleEvent(ev)
		case conn := <-e.accepted:
			e.records[conn] = &connRecord{conn: conn, phase: phaseReading, start: time.Now()}
			e.stats.ActiveConnections.Add(1)
			e.stats.TotalConnections.Add(1)
			go e.readRequest(conn)
		case <-e.stop:
			return
		}
	}
}

// readRequest runs on a dedicated per-connection goroutine, performing
// the one blocking socket read this engine cannot avoid (Go exposes no
// non-blocking multiplexer), and reports the outcome back as an event.
func (e *Engine) readRequest(conn net.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(e.cfg.ReadTimeout))
	req, err := wire.Parse(bufio.NewReader(conn))
	if err != nil {
		e.events <- event{kind: evParseError, conn: conn, err: err}
		return
	}
	e.events <- event{kind: evParsed, conn: conn, req: req}
}

func (e *Engine) handleEvent(ev event) {
	rec, ok := e.records[ev.conn]
	if !ok {
		return
	}

	switch ev.kind {
	case evParseError:
		e.stats.ConnectionErrors.Add(1)
		rec.phase = phaseWriting
		e.dispatchWrite(rec, parseErrorResponse(ev.err))

	case evParsed:
		rec.phase = phaseDispatched
		e.stats.TotalRequests.Add(1)
		fut := e.router.Route(context.Background(), ev.req)
		fut.OnComplete(func(resp *wire.Response, err error) {
			if err != nil {
				resp = wire.NewResponse(500, []byte(`{"error":"handler failure"}`))
			}
			e.events <- event{kind: evResponseReady, conn: ev.conn, resp: resp}
		})

	case evResponseReady:
		rec.phase = phaseWriting
		e.dispatchWrite(rec, ev.resp)

	case evWriteDone:
		rec.phase = phaseClosed
		_ = rec.conn.Close()
		delete(e.records, ev.conn)
		e.stats.ActiveConnections.Add(-1)
		e.stats.ObserveLatency(time.Since(rec.start))
		e.accountClosed()
	}
}

// dispatchWrite offloads the (potentially blocking) socket write onto the
// offload pool so the reactor goroutine never blocks on I/O itself, then
// reports completion back as an evWriteDone event. The enqueue itself must
// not block either — trySubmit is non-blocking, and a saturated queue
// falls back to a dedicated one-off goroutine rather than ever running the
// write on the reactor's own goroutine.
func (e *Engine) dispatchWrite(rec *connRecord, resp *wire.Response) {
	job := func() {
		// resp is nil for the three Oversize* limits (spec.md §6: "reject,
		// no response") — parseErrorResponse returns nil for exactly
		// those, and nothing else on this path ever does.
		if resp != nil {
			w := bufio.NewWriter(rec.conn)
			if err := wire.Serialise(resp, w); err != nil {
				e.stats.ConnectionErrors.Add(1)
			}
		}
		e.events <- event{kind: evWriteDone, conn: rec.conn}
	}
	if !e.offloadPool.trySubmit(job) {
		go job()
	}
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
