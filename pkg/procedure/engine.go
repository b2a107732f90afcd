package procedure

import (
	"context"
	"errors"
	"time"

	"github.com/opsforge/opsforge/pkg/history"
	"github.com/opsforge/opsforge/pkg/telemetry"
)

// Engine drives one orchestration invocation: it records intent, fans the
// work list out across the bounded queue, aggregates per-unit outcomes,
// finalizes the history record at drain, and diagnoses known failure
// signatures before surfacing the result.
type Engine struct {
	history     *history.Recorder
	topology    Topology
	log         *telemetry.Logger
	metrics     *telemetry.Metrics
	tracer      *telemetry.Tracer
	concurrency int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConcurrency sets the queue's worker limit.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) { e.concurrency = n }
}

// WithTopology sets the network-topology capability used by the diagnoser.
func WithTopology(t Topology) EngineOption {
	return func(e *Engine) { e.topology = t }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *telemetry.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t *telemetry.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// NewEngine creates an engine over the given history recorder.
func NewEngine(rec *history.Recorder, log *telemetry.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		history:     rec,
		log:         log.NewComponentLogger("engine"),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the work list to completion. The returned error is nil on
// full success, the sole failure verbatim when exactly one unit failed, or a
// *MultiError in completion order when two or more failed. An empty work
// list is a no-op: nothing is recorded and nil is returned.
func (e *Engine) Run(ctx context.Context, procs []Procedure) error {
	if len(procs) == 0 {
		e.log.Info("no changes required")
		return nil
	}

	changes := make([]history.Change, 0, len(procs))
	for _, p := range procs {
		changes = append(changes, p.Change())
	}

	// Intent is persisted before any mutating work so an interrupted run
	// still leaves evidence of what was attempted.
	rec, err := e.history.Begin(ctx, changes)
	if err != nil {
		return NewInternalError("cannot record intended changes, refusing to proceed", err)
	}

	start := time.Now()
	if e.metrics != nil {
		e.metrics.RunStarted()
	}

	var runErr error
	if e.tracer != nil {
		spanCtx, span := e.tracer.StartRun(ctx, rec.ID, len(procs))
		runErr = e.execute(spanCtx, rec, procs)
		telemetry.EndSpan(span, runErr)
	} else {
		runErr = e.execute(ctx, rec, procs)
	}

	if e.metrics != nil {
		status := "succeeded"
		if runErr != nil {
			status = "failed"
		}
		e.metrics.RunCompleted(status, time.Since(start))
	}

	return runErr
}

// execute fans procs out across the queue and settles the history record.
func (e *Engine) execute(ctx context.Context, rec *history.Record, procs []Procedure) error {
	log := e.log.WithRecordID(rec.ID)

	queue := NewQueue(ctx, e.concurrency, e.executeOne)
	for _, p := range procs {
		log.Infof("starting: %s", p.Summary())
		queue.Push(p)
	}
	queue.Close()

	// The failure list is finalized only after the queue reports drain; no
	// outcomes are accepted past that point.
	var failures []error
	for c := range queue.Completions() {
		if c.Err != nil {
			log.WithError(c.Err).Errorf("failed: %s", c.Proc.Summary())
			failures = append(failures, c.Err)
			if e.metrics != nil {
				e.metrics.ErrorObserved(string(kindOf(c.Err)))
			}
			continue
		}
		log.Infof("finished: %s", c.Proc.Summary())
	}

	runErr := Aggregate(failures)

	finishErr := e.history.Finish(ctx, rec, runErr)
	e.diagnose(ctx, failures)

	if finishErr != nil {
		if runErr == nil {
			// The work succeeded; the audit failure must still surface,
			// classified apart from work failures.
			return NewInternalError("run succeeded but history update failed", finishErr)
		}
		log.WithError(finishErr).Error("history update failed")
	}

	return runErr
}

// executeOne is the queue's worker function: one procedure, one terminal
// outcome.
func (e *Engine) executeOne(ctx context.Context, p Procedure) error {
	if e.metrics != nil {
		e.metrics.ProcedureStarted()
	}
	start := time.Now()

	var err error
	if e.tracer != nil {
		spanCtx, span := e.tracer.StartProcedure(ctx, p.Summary())
		err = p.Execute(spanCtx)
		telemetry.EndSpan(span, err)
	} else {
		err = p.Execute(ctx)
	}

	if e.metrics != nil {
		status := "succeeded"
		if err != nil {
			status = "failed"
		}
		e.metrics.ProcedureCompleted(p.Change().Action, status, time.Since(start))

		if err == nil {
			if sized, ok := p.(interface{ ImportSize() int64 }); ok {
				e.metrics.BytesImported(sized.ImportSize())
			}
		}
	}

	return err
}

// kindOf extracts the error classification for metrics labels.
func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindClient
}
