// Package eventloop implements the single-reactor architecture (spec.md
// §4.6): one goroutine owns every connection record and is the only
// goroutine that ever mutates it; all blocking work — socket reads,
// handler offloads, socket writes — happens elsewhere and reports back
// to the reactor as an event on a channel it alone selects on. Go has no
// user-space readiness multiplexer the way a Java NIO Selector does, so
// "the reactor is selecting on sockets" becomes "the reactor is selecting
// on a channel fed by per-connection reader goroutines and the offload
// pool" — see DESIGN.md for this trade-off.
package eventloop

import (
	"sync"

	"github.com/watt-labs/triad/pkg/future"
)

// offloadPool is the worker pool backing the Offload primitive (spec.md
// §4.6: "post a message to a worker queue; the worker sends the result
// back over a one-shot channel the reactor is selecting on").
type offloadPool struct {
	jobs chan func()
	stop chan struct{}
	wg   sync.WaitGroup
}

func newOffloadPool(size, queueDepth int) *offloadPool {
	if size < 1 {
		size = 1
	}
	p := &offloadPool{
		jobs: make(chan func(), queueDepth),
		stop: make(chan struct{}),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.run()
	}
	return p
}

func (p *offloadPool) run() {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			job()
		case <-p.stop:
			return
		}
	}
}

// submit blocks until the job is accepted onto the queue. Used by Offload,
// whose callers are handler-side goroutines that are allowed to block —
// never the reactor goroutine itself.
func (p *offloadPool) submit(job func()) {
	p.jobs <- job
}

// trySubmit is the non-blocking counterpart: it enqueues job and returns
// true, or returns false immediately if the queue is full. This is what
// the reactor goroutine itself calls (see dispatchWrite in reactor.go),
// since a blocking send here would stall the one goroutine that must never
// stall.
func (p *offloadPool) trySubmit(job func()) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

func (p *offloadPool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

// Offload runs fn on e's offload pool and returns a Future for its
// result, completed from the offload worker's goroutine — the mechanism
// handlers use to perform blocking work without ever blocking the
// reactor goroutine itself (spec.md §4.6's explicit primitive). Go's
// lack of generic methods is why this is a package-level function taking
// *Engine rather than an (*Engine).Offload[T] method.
func Offload[T any](e *Engine, fn func() (T, error)) *future.Future[T] {
	f, resolve, reject := future.New[T]()
	e.offloadPool.submit(func() {
		v, err := fn()
		if err != nil {
			reject(err)
		} else {
			resolve(v)
		}
	})
	return f
}
