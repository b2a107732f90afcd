package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opsforge/opsforge/pkg/telemetry"
)

// Recorder writes run records around the execution engine. Begin must
// complete before any work unit executes; Finish fills the terminal fields
// exactly once.
type Recorder struct {
	store Store
	log   *telemetry.Logger
}

// NewRecorder creates a recorder over the given store.
func NewRecorder(store Store, log *telemetry.Logger) *Recorder {
	return &Recorder{
		store: store,
		log:   log.NewComponentLogger("history"),
	}
}

// Begin persists a record of the intended changes with StartedAt set and the
// terminal fields unset. If persistence fails the caller must not proceed:
// no untracked mutation is permitted.
func (r *Recorder) Begin(ctx context.Context, changes []Change) (*Record, error) {
	rec := &Record{
		ID:        uuid.New().String(),
		Changes:   changes,
		StartedAt: time.Now().UTC(),
	}

	if err := r.store.SaveRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save history record: %w", err)
	}

	r.log.WithField("record_id", rec.ID).
		Debugf("recorded %d intended changes", len(changes))
	return rec, nil
}

// Finish sets FinishedAt and the terminal error (nil on full success) and
// updates the persisted record. Finish is called once per record, at drain.
func (r *Recorder) Finish(ctx context.Context, rec *Record, runErr error) error {
	now := time.Now().UTC()
	rec.FinishedAt = &now
	if runErr != nil {
		msg := runErr.Error()
		rec.Error = &msg
	}

	if err := r.store.UpdateRecord(ctx, rec); err != nil {
		return fmt.Errorf("failed to update history record %s: %w", rec.ID, err)
	}

	r.log.WithField("record_id", rec.ID).Debug("history record finalized")
	return nil
}
