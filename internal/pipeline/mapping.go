package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/normalize"
	"github.com/sells-group/vendor-pipeline/internal/prompts"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

// Placeholder grid used when mapping_fallback is enabled and no vendor
// produced a usable mapping.
const (
	fallbackVendors  = 5
	fallbackSubtasks = 5
)

// mapCapabilities asks the model about one vendor at a time and upserts a
// mapping per (vendor, subtask) pair it reports on.
func (p *Pipeline) mapCapabilities(ctx context.Context, task *model.Task, log *zap.Logger) (*PhaseResult, error) {
	vendors, err := p.store.ListVendors(ctx, task.ID)
	if err != nil {
		return nil, eris.Wrap(err, "load vendors")
	}
	subtasks, err := p.store.ListSubtasks(ctx, task.ID)
	if err != nil {
		return nil, eris.Wrap(err, "load subtasks")
	}
	if err := requireUpstream(vendors, subtasks); err != nil {
		return nil, err
	}
	if len(subtasks) > p.cfg.SubtaskLimit {
		subtasks = subtasks[:p.cfg.SubtaskLimit]
	}

	subtaskJSON, err := json.Marshal(subtaskNames(subtasks))
	if err != nil {
		return nil, eris.Wrap(err, "marshal subtasks")
	}

	var (
		mappings = newMappingSet()
		mapped   int
		failed   int
		lastErr  error
	)
	for i := range vendors {
		v := &vendors[i]
		vlog := log.With(zap.String("vendor", v.Name), zap.Int("vendor_index", i+1), zap.Int("vendors", len(vendors)))

		vendorJSON, err := json.Marshal([]map[string]string{{"vendor": v.Name, "product": v.ProductName}})
		if err != nil {
			return nil, eris.Wrap(err, "marshal vendor")
		}

		raw, err := p.llm.Call(ctx, prompts.CapabilityMapping(task.Description, string(vendorJSON), string(subtaskJSON)))
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "capability mapping call")
			}
			vlog.Warn("pipeline: capability mapping call failed, skipping vendor", zap.Error(err))
			failed++
			lastErr = err
			continue
		}

		analysis := normalize.Objects(normalize.Extract(raw).Map()["capability_analysis"])
		if len(analysis) == 0 {
			vlog.Warn("pipeline: capability_analysis missing, skipping vendor")
			continue
		}

		before := mappings.len()
		for _, entry := range analysis {
			target := findVendor(vendors, normalize.FirstString(entry, "vendor", "vendor_name"))
			if target == nil {
				target = v
			}
			for _, cov := range normalize.Objects(entry["subtask_coverage"]) {
				st := findSubtask(subtasks, normalize.FirstString(cov, "subtask", "subtask_name", "name"))
				if st == nil {
					vlog.Debug("pipeline: coverage for unknown subtask", zap.Any("subtask", cov["subtask"]))
					continue
				}
				mappings.put(&model.CapabilityMapping{
					TaskID:      task.ID,
					VendorID:    target.ID,
					SubtaskID:   st.ID,
					VendorName:  target.Name,
					SubtaskName: st.Name,
					CanHandle:   canHandle(normalize.String(cov["can_handle"])),
					APS2024:     normalize.ClampScore(cov["aps_2024"]),
					APS2025:     normalize.ClampScore(cov["aps_2025"]),
					APS2026:     normalize.ClampScore(cov["aps_2026"]),
				})
			}
		}
		if mappings.len() > before {
			mapped++
		}
		vlog.Info("pipeline: vendor mapped", zap.Int("mappings", mappings.len()-before))
	}

	degraded := false
	if mappings.len() == 0 {
		if !p.cfg.MappingFallback {
			if failed == len(vendors) {
				return nil, eris.Wrapf(lastErr, "capability mapping: all %d vendor calls failed", failed)
			}
			return nil, &ValidationError{Phase: model.PhaseCapabilityMapping, Reason: "no vendor produced a capability mapping"}
		}
		log.Warn("pipeline: no mappings produced, writing placeholder mappings",
			zap.Int("failed_calls", failed),
			zap.Error(lastErr),
		)
		fallbackMappings(task.ID, vendors, subtasks, mappings)
		degraded = true
	}

	err = p.store.WithTx(ctx, func(tx store.Tx) error {
		for _, m := range mappings.items {
			if err := tx.UpsertMapping(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "store mappings")
	}

	return &PhaseResult{
		Counts: map[string]int{
			"vendors_mapped":   mapped,
			"mappings_created": mappings.len(),
		},
		Degraded: degraded,
	}, nil
}

func requireUpstream(vendors []model.Vendor, subtasks []model.Subtask) error {
	var missing []string
	runFirst := model.PhaseSubtaskDecomposition
	if len(vendors) == 0 {
		missing = append(missing, "vendors")
		runFirst = model.PhaseVendorDiscovery
	}
	if len(subtasks) == 0 {
		missing = append(missing, "subtasks")
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingUpstreamError{Missing: missing, RunFirst: runFirst}
}

// mappingSet keeps one mapping per (vendor, subtask) pair; later writes
// replace earlier ones in place.
type mappingSet struct {
	index map[string]int
	items []*model.CapabilityMapping
}

func newMappingSet() *mappingSet {
	return &mappingSet{index: make(map[string]int)}
}

func (s *mappingSet) put(m *model.CapabilityMapping) {
	key := m.VendorID + "|" + m.SubtaskID
	if i, ok := s.index[key]; ok {
		s.items[i] = m
		return
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, m)
}

func (s *mappingSet) len() int { return len(s.items) }

func fallbackMappings(taskID string, vendors []model.Vendor, subtasks []model.Subtask, set *mappingSet) {
	for vi := 0; vi < len(vendors) && vi < fallbackVendors; vi++ {
		for si := 0; si < len(subtasks) && si < fallbackSubtasks; si++ {
			set.put(&model.CapabilityMapping{
				TaskID:      taskID,
				VendorID:    vendors[vi].ID,
				SubtaskID:   subtasks[si].ID,
				VendorName:  vendors[vi].Name,
				SubtaskName: subtasks[si].Name,
				CanHandle:   model.CanHandlePartially,
				APS2024:     0.5,
				APS2025:     0.6,
				APS2026:     0.7,
			})
		}
	}
}

func subtaskNames(subtasks []model.Subtask) []map[string]string {
	out := make([]map[string]string, len(subtasks))
	for i, s := range subtasks {
		out[i] = map[string]string{"name": s.Name}
	}
	return out
}

func findVendor(vendors []model.Vendor, name string) *model.Vendor {
	if name == "" {
		return nil
	}
	for i := range vendors {
		if strings.EqualFold(vendors[i].Name, name) {
			return &vendors[i]
		}
	}
	return nil
}

func findSubtask(subtasks []model.Subtask, name string) *model.Subtask {
	if name == "" {
		return nil
	}
	for i := range subtasks {
		if strings.EqualFold(subtasks[i].Name, name) {
			return &subtasks[i]
		}
	}
	return nil
}

func canHandle(s string) string {
	switch strings.ToLower(s) {
	case "yes", "true", "full", "fully":
		return model.CanHandleYes
	case "partially", "partial":
		return model.CanHandlePartially
	default:
		return model.CanHandleNo
	}
}
