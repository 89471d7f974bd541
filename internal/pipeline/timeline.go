package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/config"
	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/normalize"
	"github.com/sells-group/vendor-pipeline/internal/prompts"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

// snapshot describes one point on a vendor's capability timeline.
type snapshot struct {
	phase     string
	year      int
	synthetic float64
	prompt    func(vendor, product, task string) string
	scoreKey  string
	descKeys  []string
}

var snapshots = []snapshot{
	{
		phase: model.TimelinePast, year: 2023, synthetic: 0.6,
		prompt: prompts.TimelinePast, scoreKey: "aps_score_2023",
		descKeys: []string{"capability_in_2023"},
	},
	{
		phase: model.TimelinePresent, year: 2024, synthetic: 0.75,
		prompt: prompts.TimelinePresent, scoreKey: "aps_score_current",
		descKeys: []string{"current_capability"},
	},
	{
		phase: model.TimelineFuture, year: 2025, synthetic: 0.85,
		prompt: prompts.TimelineFuture, scoreKey: "aps_score_expected",
		descKeys: []string{"capability_if_released"},
	},
}

// analyzeTimelines writes past, present and future scores for the first
// VendorLimit vendors and copies the 2024 and 2025 scores onto the vendor.
func (p *Pipeline) analyzeTimelines(ctx context.Context, task *model.Task, log *zap.Logger) (*PhaseResult, error) {
	vendors, err := p.store.ListVendors(ctx, task.ID)
	if err != nil {
		return nil, eris.Wrap(err, "load vendors")
	}
	if len(vendors) == 0 {
		return nil, &MissingUpstreamError{Missing: []string{"vendors"}, RunFirst: model.PhaseVendorDiscovery}
	}
	if len(vendors) > p.cfg.VendorLimit {
		vendors = vendors[:p.cfg.VendorLimit]
	}

	timelines := make([]*model.Timeline, 0, len(vendors)*len(snapshots))
	for i := range vendors {
		v := &vendors[i]
		for _, snap := range snapshots {
			tl := p.timelinePoint(ctx, task, v, snap, log)
			switch tl.Year {
			case 2024:
				v.APS2024 = tl.APSScore
			case 2025:
				v.APS2025 = tl.APSScore
			}
			timelines = append(timelines, tl)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "timeline analysis")
	}

	err = p.store.WithTx(ctx, func(tx store.Tx) error {
		for _, tl := range timelines {
			if err := tx.UpsertTimeline(ctx, tl); err != nil {
				return err
			}
		}
		for i := range vendors {
			if err := tx.UpdateVendorScores(ctx, &vendors[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "store timelines")
	}

	return &PhaseResult{Counts: map[string]int{
		"vendors_analyzed":  len(vendors),
		"timelines_created": len(timelines),
	}}, nil
}

// timelinePoint scores one snapshot. In synthetic mode, and whenever a
// model call fails, the fixed score for that year is used.
func (p *Pipeline) timelinePoint(ctx context.Context, task *model.Task, v *model.Vendor, snap snapshot, log *zap.Logger) *model.Timeline {
	tl := &model.Timeline{
		VendorID:              v.ID,
		Phase:                 snap.phase,
		Year:                  snap.year,
		APSScore:              snap.synthetic,
		CapabilityDescription: fmt.Sprintf("%s capability in %d", v.Name, snap.year),
		Source:                v.Source,
	}
	if p.cfg.TimelineMode != config.TimelineModeLLM || ctx.Err() != nil {
		return tl
	}

	raw, err := p.llm.Call(ctx, snap.prompt(v.Name, v.ProductName, task.Description))
	if err != nil {
		log.Warn("pipeline: timeline call failed, using fixed score",
			zap.String("vendor", v.Name), zap.Int("year", snap.year), zap.Error(err))
		return tl
	}

	m := normalize.Extract(raw).Map()
	score, ok := m[snap.scoreKey]
	if !ok {
		log.Warn("pipeline: timeline response missing score, using fixed score",
			zap.String("vendor", v.Name), zap.Int("year", snap.year))
		return tl
	}
	tl.APSScore = normalize.ClampScore(score)
	tl.Source = "llm"
	if desc := normalize.FirstString(m, snap.descKeys...); desc != "" {
		tl.CapabilityDescription = normalize.Truncate(desc, maxDescLen)
	}
	return tl
}
