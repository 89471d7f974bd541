package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vendor-pipeline/internal/llm"
	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

// MetricsSnapshot holds a point-in-time view of task health.
type MetricsSnapshot struct {
	TasksTotal     int                      `json:"tasks_total"`
	TasksByStatus  map[model.TaskStatus]int `json:"tasks_by_status"`
	TasksPending   int                      `json:"tasks_pending"`
	TasksRunning   int                      `json:"tasks_running"`
	TasksCompleted int                      `json:"tasks_completed"`
	TasksFailed    int                      `json:"tasks_failed"`
	ErrorRate      float64                  `json:"error_rate"`

	// StuckTasks counts tasks in a running status whose last update is
	// older than the stuck threshold, usually left behind by a restart.
	StuckTasks   int      `json:"stuck_tasks"`
	StuckTaskIDs []string `json:"stuck_task_ids,omitempty"`

	LLM *llm.Usage `json:"llm,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}

// UsageSource reports running LLM totals. *llm.Gateway satisfies it.
type UsageSource interface {
	Usage() llm.Usage
}

// Collector gathers metrics from the store and the LLM gateway.
type Collector struct {
	store      store.Store
	usage      UsageSource
	stuckAfter time.Duration
	now        func() time.Time
}

// NewCollector creates a new metrics collector. usage may be nil.
func NewCollector(st store.Store, usage UsageSource, stuckAfter time.Duration) *Collector {
	if stuckAfter <= 0 {
		stuckAfter = 15 * time.Minute
	}
	return &Collector{store: st, usage: usage, stuckAfter: stuckAfter, now: time.Now}
}

// Collect gathers a snapshot of task metrics.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{CollectedAt: now}

	counts, err := c.store.CountTasksByStatus(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count tasks")
	}
	snap.TasksByStatus = counts

	for status, n := range counts {
		snap.TasksTotal += n
		switch {
		case status == model.TaskStatusPending:
			snap.TasksPending += n
		case status == model.TaskStatusCompleted:
			snap.TasksCompleted += n
		case status == model.TaskStatusError:
			snap.TasksFailed += n
		case status.IsRunning():
			snap.TasksRunning += n
		}
	}
	if finished := snap.TasksCompleted + snap.TasksFailed; finished > 0 {
		snap.ErrorRate = float64(snap.TasksFailed) / float64(finished)
	}

	if snap.TasksRunning > 0 {
		cutoff := now.Add(-c.stuckAfter)
		for _, phase := range model.Phases {
			status := phase.Running()
			if counts[status] == 0 {
				continue
			}
			tasks, err := c.store.ListTasks(ctx, store.TaskFilter{Status: status, Limit: counts[status]})
			if err != nil {
				return nil, eris.Wrapf(err, "monitoring: list %s tasks", status)
			}
			for _, t := range tasks {
				if t.UpdatedAt.Before(cutoff) {
					snap.StuckTasks++
					snap.StuckTaskIDs = append(snap.StuckTaskIDs, t.ID)
				}
			}
		}
	}

	if c.usage != nil {
		u := c.usage.Usage()
		snap.LLM = &u
	}
	return snap, nil
}
