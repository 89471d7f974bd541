package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phase   Phase
		running TaskStatus
		done    TaskStatus
		name    string
	}{
		{PhaseVendorDiscovery, TaskStatusPhase1Running, TaskStatusPhase1Done, "vendor_discovery"},
		{PhaseSubtaskDecomposition, TaskStatusPhase2Running, TaskStatusPhase2Done, "subtask_decomposition"},
		{PhaseTimelineAnalysis, TaskStatusPhase3Running, TaskStatusPhase3Done, "timeline_analysis"},
		{PhaseCapabilityMapping, TaskStatusPhase4Running, TaskStatusPhase4Done, "capability_mapping"},
		{PhaseFinalAnalysis, TaskStatusPhase5Running, TaskStatusCompleted, "final_analysis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.running, tt.phase.Running())
			assert.Equal(t, tt.done, tt.phase.Done())
			assert.Equal(t, tt.name, tt.phase.String())
			assert.True(t, tt.phase.Running().IsRunning())
			assert.False(t, tt.phase.Done().IsRunning())
		})
	}
}

func TestParsePhase(t *testing.T) {
	t.Parallel()

	p, err := ParsePhase(4)
	require.NoError(t, err)
	assert.Equal(t, PhaseCapabilityMapping, p)

	_, err = ParsePhase(0)
	assert.Error(t, err)
	_, err = ParsePhase(6)
	assert.Error(t, err)
}

func TestPhases_Ordered(t *testing.T) {
	t.Parallel()

	require.Len(t, Phases, 5)
	for i, p := range Phases {
		assert.Equal(t, Phase(i+1), p)
	}
}

func TestInvalidPhase(t *testing.T) {
	t.Parallel()

	p := Phase(9)
	assert.False(t, p.Valid())
	assert.Equal(t, TaskStatusError, p.Running())
	assert.Equal(t, "phase_9", p.String())
}

func TestSubtaskWeight(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.1, SubtaskWeight(0.5, 20), 1e-9)
	assert.InDelta(t, 0.0, SubtaskWeight(0.9, 0), 1e-9)
	assert.InDelta(t, 0.75, SubtaskWeight(1, 75), 1e-9)
}

func TestTaskStatus_IsRunning(t *testing.T) {
	t.Parallel()

	assert.False(t, TaskStatusPending.IsRunning())
	assert.False(t, TaskStatusError.IsRunning())
	assert.False(t, TaskStatusCompleted.IsRunning())
	assert.True(t, TaskStatusPhase3Running.IsRunning())
}
