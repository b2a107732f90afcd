package procedure

import (
	"context"
	"errors"

	"github.com/opsforge/opsforge/pkg/telemetry"
)

// ErrSkipped is returned by a step that determined from current state it is
// a no-op. The pipeline treats a skipped step as success and continues.
var ErrSkipped = errors.New("step skipped")

// Step is one stage of a procedure's pipeline.
type Step struct {
	// Name describes the step in progress output.
	Name string

	// Run performs the step. It may return ErrSkipped to declare itself a
	// no-op for the current state.
	Run func(ctx context.Context) error
}

// RunSteps executes steps strictly in order for the resource named by
// resource. On the first failing step the remaining steps are not executed
// and the failure, tagged with the resource identifier, becomes the
// procedure's outcome. This fail-fast policy layers inside the fail-soft
// queue: a doomed unit stops early without sinking its siblings.
func RunSteps(ctx context.Context, log *telemetry.Logger, resource string, steps []Step) error {
	slog := log.WithResource(resource)

	for _, step := range steps {
		err := step.Run(ctx)
		if errors.Is(err, ErrSkipped) {
			slog.Debugf("step %q skipped", step.Name)
			continue
		}
		if err != nil {
			return TagResource(err, resource)
		}
		slog.Debugf("step %q done", step.Name)
	}

	return nil
}
