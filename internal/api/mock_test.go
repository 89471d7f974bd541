package api

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vendor-pipeline/internal/config"
	"github.com/sells-group/vendor-pipeline/internal/llm"
	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/monitoring"
	"github.com/sells-group/vendor-pipeline/internal/orchestrate"
	"github.com/sells-group/vendor-pipeline/internal/pipeline"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

type mockCaller struct {
	mock.Mock
}

func (m *mockCaller) Call(ctx context.Context, prompt string, _ ...llm.CallOption) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type mockTriggerer struct {
	mock.Mock
}

func (m *mockTriggerer) Trigger(ctx context.Context, phase model.Phase, taskID string) (*orchestrate.Outcome, error) {
	args := m.Called(ctx, phase, taskID)
	out, _ := args.Get(0).(*orchestrate.Outcome)
	return out, args.Error(1)
}

type panicReporter struct{}

func (panicReporter) BuildReport(context.Context, string) (*model.Report, error) {
	panic("reporter exploded at /srv/app/internal/report.go")
}

type stubStats struct {
	snap *monitoring.MetricsSnapshot
	err  error
}

func (s stubStats) Collect(context.Context) (*monitoring.MetricsSnapshot, error) {
	return s.snap, s.err
}

type testEnv struct {
	store  *store.SQLiteStore
	caller *mockCaller
	shell  *orchestrate.Shell
	server *Server
}

// newTestEnv wires a SQLite store, a real pipeline and shell, and a mocked
// model gateway behind the router.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	caller := new(mockCaller)
	p := pipeline.New(st, caller, config.PipelineConfig{})
	shell := orchestrate.New(p, orchestrate.WithTimeout(5*time.Second))
	t.Cleanup(func() { _ = shell.Shutdown(context.Background()) })

	return &testEnv{
		store:  st,
		caller: caller,
		shell:  shell,
		server: New(st, shell, p, opts...),
	}
}

func (e *testEnv) createTask(t *testing.T, desc string) *model.Task {
	t.Helper()
	task, err := e.store.CreateTask(context.Background(), "user-1", desc)
	require.NoError(t, err)
	return task
}
