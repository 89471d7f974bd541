package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vendor-pipeline/internal/model"
)

func testReport() *model.Report {
	return &model.Report{
		Task: model.Task{ID: "task-1", Description: "Write unit tests", Status: model.TaskStatusCompleted},
		Vendors: []model.Vendor{
			{ID: "v1", Name: "Copilot", ProductName: "GitHub Copilot"},
		},
		Analysis: &model.FinalAnalysis{BestVendorName: "Copilot", CompositeScore: 0.4},
	}
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "json", testReport()))

	var got model.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "task-1", got.Task.ID)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, "Copilot", got.Analysis.BestVendorName)
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "yaml", testReport()))
	assert.Contains(t, buf.String(), "best_vendor_name: Copilot")
}

func TestWriteReport_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "xlsx", testReport()))
	// XLSX is a zip container.
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))
}

func TestWriteReport_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeReport(&buf, "csv", testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestFormatTaskList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	tasks := []model.Task{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			UserID:      "user-1",
			Description: "Write unit tests",
			Status:      model.TaskStatusPhase2Done,
			CreatedAt:   now,
		},
		{
			ID:           "def12345-6789-0000-0000-000000000000",
			UserID:       "user-2",
			Description:  strings.Repeat("long description ", 10),
			Status:       model.TaskStatusError,
			ErrorMessage: "Phase 3: no vendors found",
			CreatedAt:    now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatTaskList(&buf, tasks)
	out := buf.String()

	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "phase2_done")
	assert.Contains(t, out, "2025-06-15 10:30")
	assert.Contains(t, out, "error (Phase 3: no vendors found)")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, strings.Repeat("long description ", 10))
}
