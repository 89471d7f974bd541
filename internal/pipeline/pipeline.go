// Package pipeline implements the five phase handlers that take a task from
// vendor discovery to a final automation analysis.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/config"
	"github.com/sells-group/vendor-pipeline/internal/llm"
	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/sanitize"
	"github.com/sells-group/vendor-pipeline/internal/sources"
	"github.com/sells-group/vendor-pipeline/internal/store"
	"github.com/sells-group/vendor-pipeline/internal/validator"
)

// Field limits for persisted text.
const (
	maxNameLen    = 255
	maxURLLen     = 500
	maxStatusLen  = 50
	maxSubtaskLen = 200
	maxDescLen    = 500
)

// PhaseResult summarizes a successful phase run.
type PhaseResult struct {
	TaskID   string           `json:"task_id"`
	Phase    model.Phase      `json:"phase"`
	Status   model.TaskStatus `json:"status"`
	Counts   map[string]int   `json:"counts"`
	Degraded bool             `json:"degraded,omitempty"`
	Duration time.Duration    `json:"duration_ns"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCollector enables enrichment of vendor discovery with candidates
// from external sources, capped at limit.
func WithCollector(c *sources.Collector, limit int) Option {
	return func(p *Pipeline) {
		p.collector = c
		p.sourceLimit = limit
	}
}

// WithValidator overrides the vendor validator.
func WithValidator(v *validator.Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// Pipeline runs phase handlers against a store and a model gateway.
type Pipeline struct {
	store       store.Store
	llm         llm.Caller
	collector   *sources.Collector
	sourceLimit int
	validator   *validator.Validator
	cfg         config.PipelineConfig
}

// New creates a Pipeline. Zero limits in cfg fall back to their defaults.
func New(st store.Store, caller llm.Caller, cfg config.PipelineConfig, opts ...Option) *Pipeline {
	if cfg.VendorLimit <= 0 {
		cfg.VendorLimit = 10
	}
	if cfg.SubtaskLimit <= 0 {
		cfg.SubtaskLimit = 10
	}
	if cfg.AnalysisBatchSize <= 0 {
		cfg.AnalysisBatchSize = 8
	}
	if cfg.TimelineMode == "" {
		cfg.TimelineMode = config.TimelineModeSynthetic
	}

	p := &Pipeline{
		store:       st,
		llm:         caller,
		validator:   validator.New(),
		sourceLimit: 10,
		cfg:         cfg,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type handler func(ctx context.Context, task *model.Task, log *zap.Logger) (*PhaseResult, error)

func (p *Pipeline) handler(phase model.Phase) handler {
	switch phase {
	case model.PhaseVendorDiscovery:
		return p.discoverVendors
	case model.PhaseSubtaskDecomposition:
		return p.decomposeSubtasks
	case model.PhaseTimelineAnalysis:
		return p.analyzeTimelines
	case model.PhaseCapabilityMapping:
		return p.mapCapabilities
	case model.PhaseFinalAnalysis:
		return p.finalAnalysis
	default:
		return nil
	}
}

// Run executes one phase for a task. The task moves to the phase's running
// status, then to its done status on success or to error on failure, with
// a sanitized message recorded on the task.
func (p *Pipeline) Run(ctx context.Context, phase model.Phase, taskID string) (*PhaseResult, error) {
	h := p.handler(phase)
	if h == nil {
		return nil, eris.Errorf("pipeline: unknown phase %d", int(phase))
	}

	log := zap.L().With(zap.String("task_id", taskID), zap.Int("phase", int(phase)))

	task, err := p.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load task")
	}
	if err := p.store.UpdateTaskStatus(ctx, taskID, phase.Running(), ""); err != nil {
		return nil, eris.Wrap(err, "pipeline: set running status")
	}

	log.Info("pipeline: phase started", zap.String("name", phase.String()))
	start := time.Now()

	res, err := h(ctx, task, log)
	elapsed := time.Since(start)
	if err != nil {
		msg := fmt.Sprintf("Phase %d: %s", int(phase), sanitize.Message(err.Error()))
		// The status write must land even if the caller gave up.
		if serr := p.store.UpdateTaskStatus(context.WithoutCancel(ctx), taskID, model.TaskStatusError, msg); serr != nil {
			log.Warn("pipeline: failed to record error status", zap.Error(serr))
		}
		log.Error("pipeline: phase failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, &PhaseError{Phase: phase, Err: err}
	}

	if err := p.store.UpdateTaskStatus(ctx, taskID, phase.Done(), ""); err != nil {
		return nil, &PhaseError{Phase: phase, Err: eris.Wrap(err, "set done status")}
	}

	res.TaskID = taskID
	res.Phase = phase
	res.Status = phase.Done()
	res.Duration = elapsed

	log.Info("pipeline: phase complete",
		zap.Duration("elapsed", elapsed),
		zap.Any("counts", res.Counts),
		zap.Bool("degraded", res.Degraded),
	)
	return res, nil
}

// Phase1 discovers vendors for the task.
func (p *Pipeline) Phase1(ctx context.Context, taskID string) (*PhaseResult, error) {
	return p.Run(ctx, model.PhaseVendorDiscovery, taskID)
}

// Phase2 decomposes the task into subtasks.
func (p *Pipeline) Phase2(ctx context.Context, taskID string) (*PhaseResult, error) {
	return p.Run(ctx, model.PhaseSubtaskDecomposition, taskID)
}

// Phase3 records capability timelines for each vendor.
func (p *Pipeline) Phase3(ctx context.Context, taskID string) (*PhaseResult, error) {
	return p.Run(ctx, model.PhaseTimelineAnalysis, taskID)
}

// Phase4 maps each vendor's coverage of each subtask.
func (p *Pipeline) Phase4(ctx context.Context, taskID string) (*PhaseResult, error) {
	return p.Run(ctx, model.PhaseCapabilityMapping, taskID)
}

// Phase5 produces the final analysis.
func (p *Pipeline) Phase5(ctx context.Context, taskID string) (*PhaseResult, error) {
	return p.Run(ctx, model.PhaseFinalAnalysis, taskID)
}

// RunAll executes phases 1 through 5 in order and stops at the first failure.
func (p *Pipeline) RunAll(ctx context.Context, taskID string) ([]*PhaseResult, error) {
	return p.RunFrom(ctx, taskID, model.PhaseVendorDiscovery)
}

// RunFrom executes phases from through 5 in order and stops at the first
// failure. Results of the phases that succeeded are returned either way.
func (p *Pipeline) RunFrom(ctx context.Context, taskID string, from model.Phase) ([]*PhaseResult, error) {
	if !from.Valid() {
		return nil, eris.Errorf("pipeline: unknown phase %d", int(from))
	}
	results := make([]*PhaseResult, 0, len(model.Phases))
	for _, phase := range model.Phases {
		if phase < from {
			continue
		}
		res, err := p.Run(ctx, phase, taskID)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
