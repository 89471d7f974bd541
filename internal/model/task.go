package model

import (
	"fmt"
	"time"
)

// TaskStatus represents where a task sits in the five-phase pipeline.
type TaskStatus string

const (
	TaskStatusPending       TaskStatus = "pending"
	TaskStatusPhase1Running TaskStatus = "phase1_running"
	TaskStatusPhase1Done    TaskStatus = "phase1_done"
	TaskStatusPhase2Running TaskStatus = "phase2_running"
	TaskStatusPhase2Done    TaskStatus = "phase2_done"
	TaskStatusPhase3Running TaskStatus = "phase3_running"
	TaskStatusPhase3Done    TaskStatus = "phase3_done"
	TaskStatusPhase4Running TaskStatus = "phase4_running"
	TaskStatusPhase4Done    TaskStatus = "phase4_done"
	TaskStatusPhase5Running TaskStatus = "phase5_running"
	TaskStatusCompleted     TaskStatus = "completed"
	TaskStatusError         TaskStatus = "error"
)

// Phase identifies one of the five ordered pipeline stages.
type Phase int

const (
	PhaseVendorDiscovery Phase = iota + 1
	PhaseSubtaskDecomposition
	PhaseTimelineAnalysis
	PhaseCapabilityMapping
	PhaseFinalAnalysis
)

// Phases lists every phase in execution order.
var Phases = []Phase{
	PhaseVendorDiscovery,
	PhaseSubtaskDecomposition,
	PhaseTimelineAnalysis,
	PhaseCapabilityMapping,
	PhaseFinalAnalysis,
}

// ParsePhase converts a phase number to a Phase.
func ParsePhase(n int) (Phase, error) {
	p := Phase(n)
	if !p.Valid() {
		return 0, fmt.Errorf("invalid phase %d: must be between 1 and 5", n)
	}
	return p, nil
}

// Valid reports whether p is one of the five known phases.
func (p Phase) Valid() bool {
	return p >= PhaseVendorDiscovery && p <= PhaseFinalAnalysis
}

func (p Phase) String() string {
	switch p {
	case PhaseVendorDiscovery:
		return "vendor_discovery"
	case PhaseSubtaskDecomposition:
		return "subtask_decomposition"
	case PhaseTimelineAnalysis:
		return "timeline_analysis"
	case PhaseCapabilityMapping:
		return "capability_mapping"
	case PhaseFinalAnalysis:
		return "final_analysis"
	default:
		return fmt.Sprintf("phase_%d", int(p))
	}
}

// Running returns the status held while the phase executes.
func (p Phase) Running() TaskStatus {
	switch p {
	case PhaseVendorDiscovery:
		return TaskStatusPhase1Running
	case PhaseSubtaskDecomposition:
		return TaskStatusPhase2Running
	case PhaseTimelineAnalysis:
		return TaskStatusPhase3Running
	case PhaseCapabilityMapping:
		return TaskStatusPhase4Running
	case PhaseFinalAnalysis:
		return TaskStatusPhase5Running
	default:
		return TaskStatusError
	}
}

// Done returns the status written when the phase succeeds.
func (p Phase) Done() TaskStatus {
	switch p {
	case PhaseVendorDiscovery:
		return TaskStatusPhase1Done
	case PhaseSubtaskDecomposition:
		return TaskStatusPhase2Done
	case PhaseTimelineAnalysis:
		return TaskStatusPhase3Done
	case PhaseCapabilityMapping:
		return TaskStatusPhase4Done
	case PhaseFinalAnalysis:
		return TaskStatusCompleted
	default:
		return TaskStatusError
	}
}

// IsRunning reports whether the status marks a phase in flight.
func (s TaskStatus) IsRunning() bool {
	switch s {
	case TaskStatusPhase1Running, TaskStatusPhase2Running, TaskStatusPhase3Running,
		TaskStatusPhase4Running, TaskStatusPhase5Running:
		return true
	default:
		return false
	}
}

// Task is a described unit of work whose automation potential is analyzed.
type Task struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
