package procedure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/opsforge/opsforge/pkg/history"
)

// fakeProc is a scripted procedure for queue and engine tests.
type fakeProc struct {
	name  string
	err   error
	delay time.Duration

	mu    sync.Mutex
	calls int
}

func (p *fakeProc) Summary() string { return "fake " + p.name }

func (p *fakeProc) Change() history.Change {
	return history.Change{Type: "fake", Name: p.name, Action: "create"}
}

func (p *fakeProc) Execute(ctx context.Context) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}

func (p *fakeProc) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// gauge tracks the observed high-water mark of concurrent executions.
type gauge struct {
	mu      sync.Mutex
	current int
	max     int
}

func (g *gauge) enter() {
	g.mu.Lock()
	g.current++
	if g.current > g.max {
		g.max = g.current
	}
	g.mu.Unlock()
}

func (g *gauge) exit() {
	g.mu.Lock()
	g.current--
	g.mu.Unlock()
}

func (g *gauge) highWater() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.max
}

func TestQueueBoundsConcurrency(t *testing.T) {
	const (
		units       = 20
		concurrency = 3
	)

	g := &gauge{}
	run := func(ctx context.Context, p Procedure) error {
		g.enter()
		defer g.exit()
		return p.Execute(ctx)
	}

	q := NewQueue(context.Background(), concurrency, run)
	for i := 0; i < units; i++ {
		q.Push(&fakeProc{name: fmt.Sprintf("u%d", i), delay: 5 * time.Millisecond})
	}
	q.Close()

	completed := 0
	for range q.Completions() {
		completed++
	}

	if completed != units {
		t.Errorf("expected %d completions, got %d", units, completed)
	}
	if hw := g.highWater(); hw > concurrency {
		t.Errorf("observed %d concurrent executions, cap is %d", hw, concurrency)
	}
}

func TestQueueEveryUnitReachesTerminalOutcome(t *testing.T) {
	procs := []*fakeProc{
		{name: "a"},
		{name: "b", err: errors.New("b failed")},
		{name: "c"},
		{name: "d", err: errors.New("d failed")},
	}

	q := NewQueue(context.Background(), 2, func(ctx context.Context, p Procedure) error {
		return p.Execute(ctx)
	})
	for _, p := range procs {
		q.Push(p)
	}
	q.Close()

	outcomes := make(map[string]error)
	for c := range q.Completions() {
		name := c.Proc.(*fakeProc).name
		if _, dup := outcomes[name]; dup {
			t.Fatalf("unit %s completed twice", name)
		}
		outcomes[name] = c.Err
	}

	if len(outcomes) != len(procs) {
		t.Fatalf("expected %d outcomes, got %d", len(procs), len(outcomes))
	}
	for _, p := range procs {
		if p.callCount() != 1 {
			t.Errorf("unit %s executed %d times, want exactly once", p.name, p.callCount())
		}
		if got := outcomes[p.name]; !errors.Is(got, p.err) && got != p.err {
			t.Errorf("unit %s: outcome %v, want %v", p.name, got, p.err)
		}
	}
}

func TestQueueFailureDoesNotBlockSiblings(t *testing.T) {
	fail := &fakeProc{name: "doomed", err: errors.New("boom")}
	ok := &fakeProc{name: "fine", delay: 10 * time.Millisecond}

	q := NewQueue(context.Background(), 1, func(ctx context.Context, p Procedure) error {
		return p.Execute(ctx)
	})
	q.Push(fail)
	q.Push(ok)
	q.Close()

	var failures, successes int
	for c := range q.Completions() {
		if c.Err != nil {
			failures++
		} else {
			successes++
		}
	}

	if failures != 1 || successes != 1 {
		t.Errorf("got %d failures and %d successes, want 1 and 1", failures, successes)
	}
}

func TestQueueFIFOAdmission(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)

	// One worker serializes execution, exposing admission order.
	q := NewQueue(context.Background(), 1, func(ctx context.Context, p Procedure) error {
		mu.Lock()
		order = append(order, p.(*fakeProc).name)
		mu.Unlock()
		return nil
	})

	names := []string{"first", "second", "third", "fourth"}
	for _, name := range names {
		q.Push(&fakeProc{name: name})
	}
	q.Close()

	for range q.Completions() {
	}

	for i, name := range names {
		if order[i] != name {
			t.Fatalf("admission order %v, want %v", order, names)
		}
	}
}

func TestQueuePushAfterWorkersStarted(t *testing.T) {
	q := NewQueue(context.Background(), 2, func(ctx context.Context, p Procedure) error {
		return p.Execute(ctx)
	})

	q.Push(&fakeProc{name: "early", delay: 5 * time.Millisecond})
	time.Sleep(20 * time.Millisecond)
	q.Push(&fakeProc{name: "late"})
	q.Close()

	completed := 0
	for range q.Completions() {
		completed++
	}
	if completed != 2 {
		t.Errorf("expected 2 completions, got %d", completed)
	}
}

func TestQueuePushAfterClosePanics(t *testing.T) {
	q := NewQueue(context.Background(), 1, func(ctx context.Context, p Procedure) error {
		return nil
	})
	q.Close()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on Push after Close")
		}
		for range q.Completions() {
		}
	}()
	q.Push(&fakeProc{name: "too-late"})
}
