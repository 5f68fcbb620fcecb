// Package store persists recipe records keyed by their content-addressed id.
package store

import (
	"context"
	"time"

	"github.com/cookdex/cookdex/internal/model"
)

// Run is the provenance row for one batch invocation.
type Run struct {
	ID         string       `json:"id"`
	Mode       string       `json:"mode"`
	URLs       int          `json:"urls"`
	Report     model.Report `json:"report"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Store is the persistence boundary for the cache/merge engine. Upsert is
// atomic by id; concurrent upserts for distinct ids must not corrupt each
// other. Store errors are fatal to a batch: every later merge decision
// depends on cache consistency.
type Store interface {
	// Get returns the record for id, or nil when the identity is unseen.
	Get(ctx context.Context, id string) (*model.Record, error)
	// Upsert inserts or replaces the record by its id.
	Upsert(ctx context.Context, rec *model.Record) error
	// All returns a full snapshot. Ordering is the orchestrator's job.
	All(ctx context.Context) ([]model.Record, error)
	// EraseAll clears the whole cache (administrative reset).
	EraseAll(ctx context.Context) error

	// Batch run provenance.
	CreateRun(ctx context.Context, mode string, urls int) (*Run, error)
	FinishRun(ctx context.Context, runID string, report model.Report) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
