package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/normalize"
	"github.com/sells-group/vendor-pipeline/internal/prompts"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

// mappingSummary is the per-mapping shape sent to the final analysis prompt.
type mappingSummary struct {
	Vendor    string  `json:"vendor"`
	Subtask   string  `json:"subtask"`
	CanHandle string  `json:"can_handle"`
	APS2024   float64 `json:"aps_2024"`
	APS2025   float64 `json:"aps_2025"`
	APS2026   float64 `json:"aps_2026"`
}

// analysisBatch is one usable final analysis response.
type analysisBatch struct {
	final map[string]any
	hrf   map[string]any
}

// finalAnalysis sends the mappings in batches and stores the analysis from
// the first batch that returns a valid final_analysis object. A failed call
// fails the phase.
func (p *Pipeline) finalAnalysis(ctx context.Context, task *model.Task, log *zap.Logger) (*PhaseResult, error) {
	vendors, err := p.store.ListVendors(ctx, task.ID)
	if err != nil {
		return nil, eris.Wrap(err, "load vendors")
	}
	mappings, err := p.store.ListMappings(ctx, task.ID)
	if err != nil {
		return nil, eris.Wrap(err, "load mappings")
	}
	if len(vendors) == 0 {
		return nil, &MissingUpstreamError{Missing: []string{"vendors"}, RunFirst: model.PhaseVendorDiscovery}
	}
	if len(mappings) == 0 {
		return nil, &MissingUpstreamError{Missing: []string{"capability mappings"}, RunFirst: model.PhaseCapabilityMapping}
	}

	size := p.cfg.AnalysisBatchSize
	var (
		first   *analysisBatch
		batches int
		valid   int
	)
	for start := 0; start < len(mappings); start += size {
		end := min(start+size, len(mappings))
		batches++
		blog := log.With(zap.Int("batch", batches), zap.Int("from", start), zap.Int("to", end-1))

		payload, err := json.Marshal(summarize(mappings[start:end]))
		if err != nil {
			return nil, eris.Wrap(err, "marshal mappings")
		}

		raw, err := p.llm.Call(ctx, prompts.FinalAnalysis(task.Description, string(payload)))
		if err != nil {
			return nil, eris.Wrapf(err, "final analysis batch %d", batches)
		}

		m := normalize.Extract(raw).Map()
		final, ok := m["final_analysis"].(map[string]any)
		if !ok || len(final) == 0 {
			blog.Warn("pipeline: final_analysis missing or invalid")
			continue
		}
		valid++
		if first == nil {
			hrf, _ := m["hrf_analysis"].(map[string]any)
			first = &analysisBatch{final: final, hrf: hrf}
		}
	}
	if first == nil {
		return nil, &ValidationError{Phase: model.PhaseFinalAnalysis, Reason: "no batch produced a valid final_analysis"}
	}

	fa := buildAnalysis(task.ID, first, vendors)
	err = p.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.UpsertFinalAnalysis(ctx, fa)
	})
	if err != nil {
		return nil, eris.Wrap(err, "store final analysis")
	}

	log.Info("pipeline: final analysis stored",
		zap.String("best_vendor", fa.BestVendorName),
		zap.Float64("automation_2025", fa.Automation2025),
		zap.Float64("composite_score", fa.CompositeScore),
	)
	return &PhaseResult{Counts: map[string]int{
		"batches":       batches,
		"valid_batches": valid,
		"mappings":      len(mappings),
	}}, nil
}

func summarize(mappings []model.CapabilityMapping) []mappingSummary {
	out := make([]mappingSummary, len(mappings))
	for i, m := range mappings {
		out[i] = mappingSummary{
			Vendor:    m.VendorName,
			Subtask:   m.SubtaskName,
			CanHandle: m.CanHandle,
			APS2024:   m.APS2024,
			APS2025:   m.APS2025,
			APS2026:   m.APS2026,
		}
	}
	return out
}

// buildAnalysis turns a loosely shaped model response into a FinalAnalysis.
// Every numeric field is clamped and every missing field has a default.
func buildAnalysis(taskID string, b *analysisBatch, vendors []model.Vendor) *model.FinalAnalysis {
	fa := &model.FinalAnalysis{
		TaskID:          taskID,
		Automation2024:  automationPercent(b.final, 2024),
		Automation2025:  automationPercent(b.final, 2025),
		Automation2026:  automationPercent(b.final, 2026),
		HRFScores:       map[string]float64{},
		Recommendations: recommendations(b.final),
	}

	hrf := b.hrf
	if len(hrf) == 0 {
		hrf, _ = b.final["hrf_scores"].(map[string]any)
	}
	var sum float64
	for _, factor := range model.HRFFactors {
		if v, ok := hrf[factor]; ok {
			fa.HRFScores[factor] = normalize.ClampScore(v)
			sum += fa.HRFScores[factor]
		}
	}

	switch {
	case b.final["rpi_score"] != nil:
		fa.CompositeScore = normalize.ClampScore(b.final["rpi_score"])
	case hrf[model.HRFWeightedTotalKey] != nil:
		fa.CompositeScore = normalize.ClampScore(hrf[model.HRFWeightedTotalKey])
	case len(fa.HRFScores) > 0:
		fa.CompositeScore = sum / float64(len(fa.HRFScores))
	}

	name := normalize.FirstString(b.final, "best_vendor_name", "best_vendor_current", "best_vendor")
	if best := matchBestVendor(vendors, name); best != nil {
		fa.BestVendorID = best.ID
		fa.BestVendorName = best.Name
	} else {
		fa.BestVendorName = normalize.Truncate(stringOr(name, "Unknown"), maxNameLen)
	}
	return fa
}

func automationPercent(final map[string]any, year int) float64 {
	for _, key := range []string{fmt.Sprintf("automation_%d", year), fmt.Sprintf("task_automation_percent_%d", year)} {
		if v, ok := final[key]; ok && v != nil {
			return normalize.ParsePercent(v, 0)
		}
	}
	return 0
}

func recommendations(final map[string]any) []string {
	if recs := normalize.Strings(final["recommendations"]); len(recs) > 0 {
		return recs
	}
	out := normalize.Strings(final["key_recommendations"])
	if s := normalize.String(final["implementation_strategy"]); s != "" {
		out = append(out, s)
	}
	if tools := normalize.Strings(final["tools_to_implement"]); len(tools) > 0 {
		out = append(out, "Tools to implement: "+strings.Join(tools, ", "))
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// matchBestVendor finds the vendor named by the model. It accepts the vendor
// name, the product name or "vendor product".
func matchBestVendor(vendors []model.Vendor, name string) *model.Vendor {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for i := range vendors {
		v := &vendors[i]
		if strings.EqualFold(v.Name, name) ||
			(v.ProductName != "" && strings.EqualFold(v.ProductName, name)) ||
			strings.EqualFold(v.Name+" "+v.ProductName, name) {
			return v
		}
	}
	return nil
}
