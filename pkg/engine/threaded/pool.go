// Package threaded implements the thread-per-connection engine (spec.md
// §4.4): an accept loop over a bounded goroutine pool, where the handler's
// future is awaited on the worker goroutine — this blocking-wait is the
// model's defining characteristic, per spec.md: "The handler's future is
// awaited on the worker thread".
package threaded

import (
	"sync"
	"sync/atomic"
	"time"
)

// pool is a bounded worker pool with caller-runs back-pressure, grounded
// on spec.md §4.4's policy: "Core size >= max(10, configured/4); maximum
// size = configured; idle timeout 60s; queue is bounded. On queue
// saturation, the caller (accept) thread runs the task itself."
//
// Go has no native thread pool, so this is built directly on goroutines
// and a buffered job channel: `core` goroutines live for the pool's
// lifetime, and up to `max-core` additional goroutines are spun up under
// load and retired after 60s of idleness.
type pool struct {
	core, max   int
	idleTimeout time.Duration

	jobs chan func()
	stop chan struct{}

	liveWorkers atomic.Int32
	rejected    atomic.Uint64

	wg sync.WaitGroup
}

func newPool(core, max, queueDepth int) *pool {
	if core < 1 {
		core = 1
	}
	if max < core {
		max = core
	}
	p := &pool{
		core:        core,
		max:         max,
		idleTimeout: 60 * time.Second,
		jobs:        make(chan func(), queueDepth),
		stop:        make(chan struct{}),
	}
	for i := 0; i < core; i++ {
		p.spawn(false)
	}
	return p
}

func (p *pool) spawn(temporary bool) {
	p.liveWorkers.Add(1)
	p.wg.Add(1)
	go p.run(temporary)
}

func (p *pool) run(temporary bool) {
	defer p.wg.Done()
	defer p.liveWorkers.Add(-1)

	var idle *time.Timer
	if temporary {
		idle = time.NewTimer(p.idleTimeout)
		defer idle.Stop()
	}

	for {
		if temporary {
			select {
			case job, ok := <-p.jobs:
				if !ok {
					return
				}
				job()
				idle.Reset(p.idleTimeout)
			case <-idle.C:
				return
			case <-p.stop:
				return
			}
		} else {
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
}

// Submit enqueues job for execution on a worker goroutine. If the queue is
// full and the pool is already at max size, job runs synchronously on the
// calling goroutine (the accept loop), which is the back-pressure policy
// spec.md §4.4 requires rather than unbounded queue growth.
func (p *pool) Submit(job func()) {
	select {
	case p.jobs <- job:
		return
	default:
	}

	if int(p.liveWorkers.Load()) < p.max {
		// Hand job straight to a new temporary worker, which then keeps
		// serving the queue until it idles out.
		p.liveWorkers.Add(1)
		p.wg.Add(1)
		go func() {
			job()
			p.run(true)
		}()
		return
	}

	p.rejected.Add(1)
	job()
}

// Rejected returns the cumulative count of caller-runs back-pressure
// events.
func (p *pool) Rejected() uint64 {
	return p.rejected.Load()
}

// ActiveWorkers returns the current live goroutine count.
func (p *pool) ActiveWorkers() int {
	return int(p.liveWorkers.Load())
}

// Stop signals every worker to exit once its current job completes, and
// waits up to timeout for them to do so. Returns false if the timeout
// elapsed with workers still running.
func (p *pool) Stop(timeout time.Duration) bool {
	close(p.stop)
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
