package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vendor-pipeline/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// TaskFilter specifies criteria for listing tasks.
type TaskFilter struct {
	Status model.TaskStatus `json:"status,omitempty"`
	UserID string           `json:"user_id,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for the vendor pipeline.
type Store interface {
	// Tasks
	CreateTask(ctx context.Context, userID, description string) (*model.Task, error)
	GetTask(ctx context.Context, taskID string) (*model.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus, errMsg string) error
	CountTasksByStatus(ctx context.Context) (map[model.TaskStatus]int, error)

	// Derived records
	ListVendors(ctx context.Context, taskID string) ([]model.Vendor, error)
	ListSubtasks(ctx context.Context, taskID string) ([]model.Subtask, error)
	ListTimelines(ctx context.Context, taskID string) ([]model.Timeline, error)
	ListMappings(ctx context.Context, taskID string) ([]model.CapabilityMapping, error)
	GetFinalAnalysis(ctx context.Context, taskID string) (*model.FinalAnalysis, error)

	// WithTx runs fn inside one transaction. Any error from fn rolls back
	// every write made through tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx writes derived records inside a transaction. Every upsert is keyed by
// the record's natural unique key, so reprocessing updates rows in place.
type Tx interface {
	UpsertVendor(ctx context.Context, v *model.Vendor) error
	UpdateVendorScores(ctx context.Context, v *model.Vendor) error
	UpsertTimeline(ctx context.Context, tl *model.Timeline) error
	UpsertSubtask(ctx context.Context, st *model.Subtask) error
	UpsertMapping(ctx context.Context, m *model.CapabilityMapping) error
	UpsertFinalAnalysis(ctx context.Context, fa *model.FinalAnalysis) error
}
