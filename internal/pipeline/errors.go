package pipeline

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vendor-pipeline/internal/model"
)

// ErrMissingUpstream matches any MissingUpstreamError.
var ErrMissingUpstream = eris.New("pipeline: missing upstream data")

// MissingUpstreamError reports that a phase was triggered before the
// phases it depends on produced data.
type MissingUpstreamError struct {
	Missing  []string
	RunFirst model.Phase
}

func (e *MissingUpstreamError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		parts[i] = "missing " + m
	}
	return fmt.Sprintf("%s (run phase %d first)", strings.Join(parts, "; "), int(e.RunFirst))
}

// Is lets errors.Is match ErrMissingUpstream.
func (e *MissingUpstreamError) Is(target error) bool { return target == ErrMissingUpstream }

// ValidationError reports a model response that still lacks the required
// keys after normalization.
type ValidationError struct {
	Phase  model.Phase
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s response: %s", e.Phase, e.Reason)
}

// PhaseError wraps every failure that ends a phase.
type PhaseError struct {
	Phase model.Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %d (%s): %v", int(e.Phase), e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
