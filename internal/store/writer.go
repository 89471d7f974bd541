package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vendor-pipeline/internal/db"
	"github.com/sells-group/vendor-pipeline/internal/model"
)

var (
	vendorUpsert = db.UpsertConfig{
		Table: "vendors",
		Columns: []string{"id", "task_id", "name", "product_name", "evidence_url", "source", "status",
			"aps_2024", "aps_2025", "aps_2026", "is_verified", "position", "created_at"},
		ConflictKeys: []string{"task_id", "name"},
		UpdateCols:   []string{"product_name", "evidence_url", "source", "status", "is_verified", "position"},
		Returning:    "id",
	}
	timelineUpsert = db.UpsertConfig{
		Table:        "timelines",
		Columns:      []string{"id", "vendor_id", "phase", "year", "aps_score", "capability_description", "source", "created_at"},
		ConflictKeys: []string{"vendor_id", "phase", "year"},
		UpdateCols:   []string{"aps_score", "capability_description", "source"},
		Returning:    "id",
	}
	subtaskUpsert = db.UpsertConfig{
		Table: "subtasks",
		Columns: []string{"id", "task_id", "name", "description", "time_percent", "importance",
			"ai_applicable", "weight", "position"},
		ConflictKeys: []string{"task_id", "name"},
		Returning:    "id",
	}
	mappingUpsert = db.UpsertConfig{
		Table: "capability_mappings",
		Columns: []string{"id", "task_id", "vendor_id", "subtask_id", "can_handle",
			"aps_2024", "aps_2025", "aps_2026", "updated_at"},
		ConflictKeys: []string{"task_id", "vendor_id", "subtask_id"},
		Returning:    "id",
	}
	analysisUpsert = db.UpsertConfig{
		Table: "final_analyses",
		Columns: []string{"id", "task_id", "best_vendor_id", "best_vendor_name", "automation_2024",
			"automation_2025", "automation_2026", "hrf_scores", "composite_score", "recommendations",
			"created_at", "updated_at"},
		ConflictKeys: []string{"task_id"},
		UpdateCols: []string{"best_vendor_id", "best_vendor_name", "automation_2024", "automation_2025",
			"automation_2026", "hrf_scores", "composite_score", "recommendations", "updated_at"},
		Returning: "id",
	}
)

// txWriter implements Tx over a transactional conn.
type txWriter struct {
	queries
}

func (w txWriter) upsert(ctx context.Context, cfg db.UpsertConfig, id *string, args ...any) error {
	if *id == "" {
		*id = uuid.New().String()
	}
	args[0] = *id
	return w.c.queryRow(ctx, db.MustUpsertSQL(w.c.dialect(), cfg), args...).Scan(id)
}

func (w txWriter) UpsertVendor(ctx context.Context, v *model.Vendor) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	err := w.upsert(ctx, vendorUpsert, &v.ID,
		nil, v.TaskID, v.Name, v.ProductName, v.EvidenceURL, v.Source, v.Status,
		v.APS2024, v.APS2025, v.APS2026, v.IsVerified, v.Position, v.CreatedAt,
	)
	if err != nil {
		return w.errf(err, "upsert vendor %q", v.Name)
	}
	return nil
}

func (w txWriter) UpdateVendorScores(ctx context.Context, v *model.Vendor) error {
	n, err := w.c.exec(ctx,
		`UPDATE vendors SET aps_2024 = ?, aps_2025 = ?, aps_2026 = ? WHERE id = ?`,
		v.APS2024, v.APS2025, v.APS2026, v.ID,
	)
	if err != nil {
		return w.errf(err, "update vendor scores %s", v.ID)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "vendor %s", v.ID)
	}
	return nil
}

func (w txWriter) UpsertTimeline(ctx context.Context, tl *model.Timeline) error {
	if tl.CreatedAt.IsZero() {
		tl.CreatedAt = time.Now().UTC()
	}
	err := w.upsert(ctx, timelineUpsert, &tl.ID,
		nil, tl.VendorID, tl.Phase, tl.Year, tl.APSScore, tl.CapabilityDescription, tl.Source, tl.CreatedAt,
	)
	if err != nil {
		return w.errf(err, "upsert timeline %s/%d", tl.VendorID, tl.Year)
	}
	return nil
}

func (w txWriter) UpsertSubtask(ctx context.Context, st *model.Subtask) error {
	err := w.upsert(ctx, subtaskUpsert, &st.ID,
		nil, st.TaskID, st.Name, st.Description, st.TimePercent, st.Importance,
		st.AIApplicable, st.Weight, st.Position,
	)
	if err != nil {
		return w.errf(err, "upsert subtask %q", st.Name)
	}
	return nil
}

func (w txWriter) UpsertMapping(ctx context.Context, m *model.CapabilityMapping) error {
	m.UpdatedAt = time.Now().UTC()
	err := w.upsert(ctx, mappingUpsert, &m.ID,
		nil, m.TaskID, m.VendorID, m.SubtaskID, m.CanHandle,
		m.APS2024, m.APS2025, m.APS2026, m.UpdatedAt,
	)
	if err != nil {
		return w.errf(err, "upsert mapping %s/%s", m.VendorID, m.SubtaskID)
	}
	return nil
}

func (w txWriter) UpsertFinalAnalysis(ctx context.Context, fa *model.FinalAnalysis) error {
	hrfJSON, err := json.Marshal(fa.HRFScores)
	if err != nil {
		return w.errf(err, "marshal hrf scores")
	}
	if fa.Recommendations == nil {
		fa.Recommendations = []string{}
	}
	recJSON, err := json.Marshal(fa.Recommendations)
	if err != nil {
		return w.errf(err, "marshal recommendations")
	}

	now := time.Now().UTC()
	if fa.CreatedAt.IsZero() {
		fa.CreatedAt = now
	}
	fa.UpdatedAt = now

	err = w.upsert(ctx, analysisUpsert, &fa.ID,
		nil, fa.TaskID, nullIfEmpty(fa.BestVendorID), fa.BestVendorName, fa.Automation2024,
		fa.Automation2025, fa.Automation2026, string(hrfJSON), fa.CompositeScore, string(recJSON),
		fa.CreatedAt, fa.UpdatedAt,
	)
	if err != nil {
		return w.errf(err, "upsert final analysis %s", fa.TaskID)
	}
	return nil
}
