// Package workflow runs the five pipeline phases as a durable Temporal
// workflow, one activity per phase.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	wf "go.temporal.io/sdk/workflow"

	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/pipeline"
)

const (
	// DefaultTaskQueue is used when no queue is configured.
	DefaultTaskQueue = "vendor-pipeline"
	// DefaultPhaseTimeout bounds a single phase activity.
	DefaultPhaseTimeout = 5 * time.Minute

	errTypePhase = "PhaseError"
)

// Input starts a pipeline run. StartPhase lets a failed run resume from the
// phase that failed; zero means phase 1.
type Input struct {
	TaskID       string        `json:"task_id"`
	StartPhase   model.Phase   `json:"start_phase,omitempty"`
	PhaseTimeout time.Duration `json:"phase_timeout,omitempty"`
}

// Output lists the result of every phase that completed.
type Output struct {
	TaskID  string                  `json:"task_id"`
	Results []*pipeline.PhaseResult `json:"results"`
}

// PhaseInput is the RunPhase activity argument.
type PhaseInput struct {
	TaskID string      `json:"task_id"`
	Phase  model.Phase `json:"phase"`
}

// PhaseRunner executes one phase. *pipeline.Pipeline satisfies it.
type PhaseRunner interface {
	Run(ctx context.Context, phase model.Phase, taskID string) (*pipeline.PhaseResult, error)
}

// Activities holds the activity implementations registered on a worker.
type Activities struct {
	runner PhaseRunner
}

// NewActivities binds the activities to a phase runner.
func NewActivities(runner PhaseRunner) *Activities {
	return &Activities{runner: runner}
}

// RunPhase executes a single phase. Phase failures are non-retryable: the
// task is already in the error state and must be retriggered by hand.
func (a *Activities) RunPhase(ctx context.Context, in PhaseInput) (*pipeline.PhaseResult, error) {
	activity.GetLogger(ctx).Info("workflow: running phase", "task_id", in.TaskID, "phase", int(in.Phase))

	res, err := a.runner.Run(ctx, in.Phase, in.TaskID)
	if err != nil {
		var phaseErr *pipeline.PhaseError
		if errors.As(err, &phaseErr) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypePhase, err)
		}
		return nil, err
	}
	return res, nil
}

// TaskPipelineWorkflow runs phases StartPhase..5 in order and stops at the
// first failure.
func TaskPipelineWorkflow(ctx wf.Context, in Input) (*Output, error) {
	start := in.StartPhase
	if start == 0 {
		start = model.PhaseVendorDiscovery
	}
	if !start.Valid() {
		return nil, temporal.NewNonRetryableApplicationError("invalid start phase", "InvalidInput", nil)
	}
	timeout := in.PhaseTimeout
	if timeout <= 0 {
		timeout = DefaultPhaseTimeout
	}

	ctx = wf.WithActivityOptions(ctx, wf.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	log := wf.GetLogger(ctx)

	out := &Output{TaskID: in.TaskID}
	var a *Activities
	for _, phase := range model.Phases {
		if phase < start {
			continue
		}
		var res pipeline.PhaseResult
		err := wf.ExecuteActivity(ctx, a.RunPhase, PhaseInput{TaskID: in.TaskID, Phase: phase}).Get(ctx, &res)
		if err != nil {
			log.Error("workflow: phase failed", "task_id", in.TaskID, "phase", int(phase), "error", err)
			return out, err
		}
		out.Results = append(out.Results, &res)
	}

	log.Info("workflow: pipeline complete", "task_id", in.TaskID, "phases", len(out.Results))
	return out, nil
}

// WorkflowID is the deterministic workflow ID for a task, so at most one
// run per task is open at a time.
func WorkflowID(taskID string) string {
	return "task-pipeline-" + taskID
}

// Start launches the workflow for a task on the given queue.
func Start(ctx context.Context, c client.Client, queue string, in Input) (client.WorkflowRun, error) {
	if queue == "" {
		queue = DefaultTaskQueue
	}
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(in.TaskID),
		TaskQueue: queue,
	}, TaskPipelineWorkflow, in)
	if err != nil {
		return nil, eris.Wrapf(err, "workflow: start for task %s", in.TaskID)
	}
	return run, nil
}

// NewWorker registers the workflow and activities on a worker for queue.
func NewWorker(c client.Client, queue string, runner PhaseRunner) worker.Worker {
	if queue == "" {
		queue = DefaultTaskQueue
	}
	w := worker.New(c, queue, worker.Options{})
	w.RegisterWorkflow(TaskPipelineWorkflow)
	w.RegisterActivity(NewActivities(runner))
	return w
}
