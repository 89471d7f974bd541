// Package orchestrate runs phase handlers on behalf of interactive callers.
// A handler runs on its own goroutine, detached from the caller's
// cancellation, and the caller waits at most a fixed ceiling for it.
package orchestrate

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/pipeline"
)

// DefaultTimeout is how long Trigger waits for a handler before returning.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrPhaseInProgress is returned when a phase is already running for the task.
	ErrPhaseInProgress = eris.New("orchestrate: a phase is already running for this task")
	// ErrShuttingDown is returned by Trigger after Shutdown has been called.
	ErrShuttingDown = eris.New("orchestrate: shutting down")
)

// Runner executes a single phase for a task. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, phase model.Phase, taskID string) (*pipeline.PhaseResult, error)
}

// Outcome reports what a trigger observed. When TimedOut is set the handler
// is still running and Result is nil.
type Outcome struct {
	TaskID   string                `json:"task_id"`
	Phase    model.Phase           `json:"phase"`
	Result   *pipeline.PhaseResult `json:"result,omitempty"`
	TimedOut bool                  `json:"timed_out"`
}

// Option configures a Shell.
type Option func(*Shell)

// WithTimeout sets the ceiling a trigger waits for its handler.
func WithTimeout(d time.Duration) Option {
	return func(s *Shell) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Shell serializes phase runs per task and bounds how long callers wait.
type Shell struct {
	runner  Runner
	timeout time.Duration

	mu      sync.Mutex
	active  map[string]model.Phase
	closing bool
	wg      sync.WaitGroup
}

// New creates a Shell around runner.
func New(runner Runner, opts ...Option) *Shell {
	s := &Shell{
		runner:  runner,
		timeout: DefaultTimeout,
		active:  make(map[string]model.Phase),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type runResult struct {
	res *pipeline.PhaseResult
	err error
}

// Trigger starts phase for taskID and waits for it up to the configured
// ceiling. Cancelling ctx unblocks the caller but does not stop the handler.
func (s *Shell) Trigger(ctx context.Context, phase model.Phase, taskID string) (*Outcome, error) {
	if !phase.Valid() {
		return nil, eris.Errorf("orchestrate: invalid phase %d", int(phase))
	}
	if err := s.acquire(taskID, phase); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("task_id", taskID), zap.Int("phase", int(phase)))
	done := make(chan runResult, 1)
	runCtx := context.WithoutCancel(ctx)

	go func() {
		defer s.wg.Done()
		defer s.release(taskID)
		res, err := s.runner.Run(runCtx, phase, taskID)
		done <- runResult{res: res, err: err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return &Outcome{TaskID: taskID, Phase: phase, Result: r.res}, nil
	case <-timer.C:
		log.Warn("orchestrate: phase exceeded wait ceiling, returning while it continues",
			zap.Duration("timeout", s.timeout))
		return &Outcome{TaskID: taskID, Phase: phase, TimedOut: true}, nil
	case <-ctx.Done():
		log.Info("orchestrate: caller went away, phase continues")
		return nil, eris.Wrap(ctx.Err(), "orchestrate: wait for phase")
	}
}

// Running reports the phase currently running for taskID, if any.
func (s *Shell) Running(taskID string) (model.Phase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.active[taskID]
	return p, ok
}

// Shutdown stops accepting triggers and waits for in-flight handlers until
// ctx is done.
func (s *Shell) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	inflight := len(s.active)
	s.mu.Unlock()

	if inflight > 0 {
		zap.L().Info("orchestrate: waiting for running phases", zap.Int("count", inflight))
	}

	idle := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "orchestrate: shutdown")
	}
}

func (s *Shell) acquire(taskID string, phase model.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return ErrShuttingDown
	}
	if running, ok := s.active[taskID]; ok {
		return eris.Wrapf(ErrPhaseInProgress, "phase %d", int(running))
	}
	s.active[taskID] = phase
	s.wg.Add(1)
	return nil
}

func (s *Shell) release(taskID string) {
	s.mu.Lock()
	delete(s.active, taskID)
	s.mu.Unlock()
}
