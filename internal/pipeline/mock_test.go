package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vendor-pipeline/internal/llm"
	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

// --- Caller Mock ---

type mockCaller struct {
	mock.Mock
}

func (m *mockCaller) Call(ctx context.Context, prompt string, _ ...llm.CallOption) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func promptContains(s string) any {
	return mock.MatchedBy(func(p string) bool { return strings.Contains(p, s) })
}

// --- Scripted Caller ---

// scriptedCaller answers by prompt content and records every prompt.
type scriptedCaller struct {
	mu      sync.Mutex
	prompts []string
	answer  func(prompt string) (string, error)
}

func (s *scriptedCaller) Call(_ context.Context, prompt string, _ ...llm.CallOption) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.answer(prompt)
}

func (s *scriptedCaller) count(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.prompts {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}

// Markers that identify each prompt.
const (
	discoveryMarker = "Identify between 5 and 8 vendors"
	subtasksMarker  = "Break the following task"
	mappingMarker   = "Map vendor capabilities"
	analysisMarker  = "Produce the final automation assessment"
)

// --- Failing Store ---

// failingStore wraps a store so that the failOn-th vendor upsert inside a
// transaction fails.
type failingStore struct {
	store.Store
	failOn int
}

func (f *failingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(&failingTx{Tx: tx, failOn: f.failOn})
	})
}

type failingTx struct {
	store.Tx
	n      int
	failOn int
}

func (t *failingTx) UpsertVendor(ctx context.Context, v *model.Vendor) error {
	t.n++
	if t.n == t.failOn {
		return eris.New("sqlite: disk I/O error")
	}
	return t.Tx.UpsertVendor(ctx, v)
}

// --- Helpers ---

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newTestTask(t *testing.T, st store.Store, desc string) *model.Task {
	t.Helper()
	task, err := st.CreateTask(context.Background(), "user-1", desc)
	require.NoError(t, err)
	return task
}

func seedVendors(t *testing.T, st store.Store, taskID string, names ...string) []model.Vendor {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		for i, n := range names {
			v := &model.Vendor{TaskID: taskID, Name: n, ProductName: n + " AI", Status: model.VendorStatusDiscovered, Source: "discovery", IsVerified: true, Position: i}
			if err := tx.UpsertVendor(ctx, v); err != nil {
				return err
			}
		}
		return nil
	}))
	vendors, err := st.ListVendors(ctx, taskID)
	require.NoError(t, err)
	return vendors
}

func seedSubtasks(t *testing.T, st store.Store, taskID string, names ...string) []model.Subtask {
	t.Helper()
	ctx := context.Background()
	share := 100 / float64(len(names))
	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		for i, n := range names {
			s := &model.Subtask{TaskID: taskID, Name: n, TimePercent: share, Importance: 0.5, AIApplicable: model.AIApplicablePartially, Weight: model.SubtaskWeight(0.5, share), Position: i}
			if err := tx.UpsertSubtask(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}))
	subtasks, err := st.ListSubtasks(ctx, taskID)
	require.NoError(t, err)
	return subtasks
}

func seedMappings(t *testing.T, st store.Store, taskID string, vendors []model.Vendor, subtasks []model.Subtask) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		for _, v := range vendors {
			for _, s := range subtasks {
				m := &model.CapabilityMapping{TaskID: taskID, VendorID: v.ID, SubtaskID: s.ID, CanHandle: model.CanHandleYes, APS2024: 0.4, APS2025: 0.6, APS2026: 0.8}
				if err := tx.UpsertMapping(ctx, m); err != nil {
					return err
				}
			}
		}
		return nil
	}))
}
