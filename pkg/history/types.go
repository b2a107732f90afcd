// Package history persists the audit trail of orchestration runs. A record
// is written before any mutating work begins and finalized exactly once at
// drain, so an interrupted run leaves a detectable finished-at-unset record.
package history

import (
	"context"
	"time"
)

// Change names one intended mutation. Changes are immutable once created;
// they are produced by the planner and fixed into the record at Begin.
type Change struct {
	// Type is the subject type (e.g. "service", "image").
	Type string `json:"type"`

	// Name identifies the subject (service name, image UUID).
	Name string `json:"name"`

	// Action is the intended mutation (e.g. "create", "import").
	Action string `json:"action"`
}

// Record is the audit trail of one orchestration run.
type Record struct {
	// ID is the run identifier.
	ID string `json:"id"`

	// Changes lists the intended mutations, in planning order. The list is
	// fixed at Begin and equals the set of work units actually submitted.
	Changes []Change `json:"changes"`

	// StartedAt is when the run was recorded, before any work executed.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is set exactly once, at drain. A persisted record with
	// FinishedAt unset marks an interrupted run.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error is the terminal run error, unset on full success.
	Error *string `json:"error,omitempty"`
}

// Finished reports whether the record reached a terminal state.
func (r *Record) Finished() bool {
	return r.FinishedAt != nil
}

// Store persists history records.
type Store interface {
	// SaveRecord inserts a new record.
	SaveRecord(ctx context.Context, rec *Record) error

	// UpdateRecord overwrites the terminal fields of an existing record.
	UpdateRecord(ctx context.Context, rec *Record) error

	// GetRecord retrieves a record by ID.
	GetRecord(ctx context.Context, id string) (*Record, error)

	// ListRecords returns records ordered by start time, newest first.
	ListRecords(ctx context.Context, limit int) ([]Record, error)
}
