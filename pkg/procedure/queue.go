package procedure

import (
	"context"
	"sync"
)

// DefaultConcurrency is the queue's worker limit when none is configured.
// It bounds outstanding remote calls to respect downstream service capacity;
// there is no dynamic backpressure signal from the remote side.
const DefaultConcurrency = 4

// Completion is the terminal outcome of one admitted procedure.
type Completion struct {
	// Proc is the procedure that completed.
	Proc Procedure

	// Err is the procedure's failure, nil on success.
	Err error
}

// RunFunc executes one procedure and returns its outcome.
type RunFunc func(ctx context.Context, p Procedure) error

// Queue is a bounded worker pool draining independent procedures. At most
// the configured number of procedures execute concurrently; excess admissions
// wait in FIFO order. Failure of one procedure never cancels or blocks its
// siblings.
type Queue struct {
	run  RunFunc
	done chan Completion

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Procedure
	closed  bool

	wg sync.WaitGroup
}

// NewQueue creates a queue with the given concurrency limit and starts its
// workers immediately. Procedures may be pushed before or after workers pick
// up work; Close signals that no more will be pushed.
func NewQueue(ctx context.Context, concurrency int, run RunFunc) *Queue {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	q := &Queue{
		run:  run,
		done: make(chan Completion),
	}
	q.cond = sync.NewCond(&q.mu)

	q.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go q.worker(ctx)
	}

	// Close the completion channel once every worker has drained: the
	// single end-of-drain notification.
	go func() {
		q.wg.Wait()
		close(q.done)
	}()

	return q
}

// Push admits a procedure. Push never blocks; admissions queue in FIFO order
// until a worker is free. Push panics if called after Close, matching the
// invariant that the submitted set is fixed before drain.
func (q *Queue) Push(p Procedure) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		panic("procedure: Push on closed queue")
	}

	q.pending = append(q.pending, p)
	q.cond.Signal()
}

// Close signals that no more procedures will be pushed. Admitted procedures
// run to completion; there is no cancellation.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Completions returns the per-procedure completion stream. The channel is
// closed exactly once, after every admitted procedure has completed and
// Close has been called. Every pushed procedure yields exactly one
// completion; none are silently dropped.
func (q *Queue) Completions() <-chan Completion {
	return q.done
}

// worker pops admissions in FIFO order and executes them.
func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		p := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		err := q.run(ctx, p)
		q.done <- Completion{Proc: p, Err: err}
	}
}
