package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vendor-pipeline/internal/model"
)

// queries implements the non-transactional half of Store over a conn.
type queries struct {
	c conn
}

func (q queries) errf(err error, op string, args ...any) error {
	return eris.Wrapf(err, dialectName(q.c.dialect())+": "+op, args...)
}

const taskColumns = `id, user_id, description, status, error_message, created_at, updated_at`

func (q queries) CreateTask(ctx context.Context, userID, description string) (*model.Task, error) {
	now := time.Now().UTC()
	t := &model.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Description: description,
		Status:      model.TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := q.c.exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Description, string(t.Status), "", now, now,
	)
	if err != nil {
		return nil, q.errf(err, "insert task")
	}
	return t, nil
}

func (q queries) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	var t model.Task
	err := q.c.queryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID,
	).Scan(&t.ID, &t.UserID, &t.Description, &t.Status, &t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, eris.Wrapf(ErrNotFound, "task %s", taskID)
		}
		return nil, q.errf(err, "get task %s", taskID)
	}
	return &t, nil
}

func (q queries) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1 = 1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := q.c.query(ctx, query, args...)
	if err != nil {
		return nil, q.errf(err, "list tasks")
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.Status, &t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, q.errf(err, "scan task")
		}
		tasks = append(tasks, t)
	}
	return tasks, q.wrapRowsErr(rows, "list tasks")
}

func (q queries) UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus, errMsg string) error {
	n, err := q.c.exec(ctx,
		`UPDATE tasks SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC(), taskID,
	)
	if err != nil {
		return q.errf(err, "update task status %s", taskID)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "task %s", taskID)
	}
	return nil
}

func (q queries) CountTasksByStatus(ctx context.Context) (map[model.TaskStatus]int, error) {
	rows, err := q.c.query(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, q.errf(err, "count tasks")
	}
	defer rows.Close()

	counts := make(map[model.TaskStatus]int)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, q.errf(err, "scan task count")
		}
		counts[model.TaskStatus(status)] = int(n)
	}
	return counts, q.wrapRowsErr(rows, "count tasks")
}

const vendorColumns = `id, task_id, name, product_name, evidence_url, source, status, aps_2024, aps_2025, aps_2026, is_verified, position, created_at`

func (q queries) ListVendors(ctx context.Context, taskID string) ([]model.Vendor, error) {
	rows, err := q.c.query(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE task_id = ? ORDER BY position, name`, taskID)
	if err != nil {
		return nil, q.errf(err, "list vendors")
	}
	defer rows.Close()

	var out []model.Vendor
	for rows.Next() {
		var v model.Vendor
		if err := rows.Scan(&v.ID, &v.TaskID, &v.Name, &v.ProductName, &v.EvidenceURL, &v.Source, &v.Status,
			&v.APS2024, &v.APS2025, &v.APS2026, &v.IsVerified, &v.Position, &v.CreatedAt); err != nil {
			return nil, q.errf(err, "scan vendor")
		}
		out = append(out, v)
	}
	return out, q.wrapRowsErr(rows, "list vendors")
}

const subtaskColumns = `id, task_id, name, description, time_percent, importance, ai_applicable, weight, position`

func (q queries) ListSubtasks(ctx context.Context, taskID string) ([]model.Subtask, error) {
	rows, err := q.c.query(ctx,
		`SELECT `+subtaskColumns+` FROM subtasks WHERE task_id = ? ORDER BY position, name`, taskID)
	if err != nil {
		return nil, q.errf(err, "list subtasks")
	}
	defer rows.Close()

	var out []model.Subtask
	for rows.Next() {
		var s model.Subtask
		if err := rows.Scan(&s.ID, &s.TaskID, &s.Name, &s.Description, &s.TimePercent, &s.Importance,
			&s.AIApplicable, &s.Weight, &s.Position); err != nil {
			return nil, q.errf(err, "scan subtask")
		}
		out = append(out, s)
	}
	return out, q.wrapRowsErr(rows, "list subtasks")
}

func (q queries) ListTimelines(ctx context.Context, taskID string) ([]model.Timeline, error) {
	rows, err := q.c.query(ctx,
		`SELECT t.id, t.vendor_id, t.phase, t.year, t.aps_score, t.capability_description, t.source, t.created_at
		FROM timelines t JOIN vendors v ON v.id = t.vendor_id
		WHERE v.task_id = ? ORDER BY v.position, v.name, t.year`, taskID)
	if err != nil {
		return nil, q.errf(err, "list timelines")
	}
	defer rows.Close()

	var out []model.Timeline
	for rows.Next() {
		var tl model.Timeline
		if err := rows.Scan(&tl.ID, &tl.VendorID, &tl.Phase, &tl.Year, &tl.APSScore,
			&tl.CapabilityDescription, &tl.Source, &tl.CreatedAt); err != nil {
			return nil, q.errf(err, "scan timeline")
		}
		out = append(out, tl)
	}
	return out, q.wrapRowsErr(rows, "list timelines")
}

func (q queries) ListMappings(ctx context.Context, taskID string) ([]model.CapabilityMapping, error) {
	rows, err := q.c.query(ctx,
		`SELECT m.id, m.task_id, m.vendor_id, m.subtask_id, v.name, s.name, m.can_handle,
			m.aps_2024, m.aps_2025, m.aps_2026, m.updated_at
		FROM capability_mappings m
		JOIN vendors v ON v.id = m.vendor_id
		JOIN subtasks s ON s.id = m.subtask_id
		WHERE m.task_id = ? ORDER BY v.position, v.name, s.position, s.name`, taskID)
	if err != nil {
		return nil, q.errf(err, "list mappings")
	}
	defer rows.Close()

	var out []model.CapabilityMapping
	for rows.Next() {
		var m model.CapabilityMapping
		if err := rows.Scan(&m.ID, &m.TaskID, &m.VendorID, &m.SubtaskID, &m.VendorName, &m.SubtaskName,
			&m.CanHandle, &m.APS2024, &m.APS2025, &m.APS2026, &m.UpdatedAt); err != nil {
			return nil, q.errf(err, "scan mapping")
		}
		out = append(out, m)
	}
	return out, q.wrapRowsErr(rows, "list mappings")
}

func (q queries) GetFinalAnalysis(ctx context.Context, taskID string) (*model.FinalAnalysis, error) {
	var fa model.FinalAnalysis
	var hrfJSON, recJSON []byte
	err := q.c.queryRow(ctx,
		`SELECT id, task_id, COALESCE(best_vendor_id, ''), best_vendor_name, automation_2024, automation_2025,
			automation_2026, hrf_scores, composite_score, recommendations, created_at, updated_at
		FROM final_analyses WHERE task_id = ?`, taskID,
	).Scan(&fa.ID, &fa.TaskID, &fa.BestVendorID, &fa.BestVendorName, &fa.Automation2024, &fa.Automation2025,
		&fa.Automation2026, &hrfJSON, &fa.CompositeScore, &recJSON, &fa.CreatedAt, &fa.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, eris.Wrapf(ErrNotFound, "final analysis for task %s", taskID)
		}
		return nil, q.errf(err, "get final analysis %s", taskID)
	}
	if len(hrfJSON) > 0 {
		if err := json.Unmarshal(hrfJSON, &fa.HRFScores); err != nil {
			return nil, q.errf(err, "unmarshal hrf scores")
		}
	}
	if len(recJSON) > 0 {
		if err := json.Unmarshal(recJSON, &fa.Recommendations); err != nil {
			return nil, q.errf(err, "unmarshal recommendations")
		}
	}
	return &fa, nil
}

func (q queries) Ping(ctx context.Context) error {
	var one int
	if err := q.c.queryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return q.errf(err, "ping")
	}
	return nil
}

func (q queries) wrapRowsErr(rows rowIter, op string) error {
	if err := rows.Err(); err != nil {
		return q.errf(err, op)
	}
	return nil
}

// nullIfEmpty stores empty foreign keys as NULL.
func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
