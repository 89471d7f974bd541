package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/normalize"
	"github.com/sells-group/vendor-pipeline/internal/prompts"
	"github.com/sells-group/vendor-pipeline/internal/sources"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

// discoverVendors asks the model for vendors and stores every named one.
func (p *Pipeline) discoverVendors(ctx context.Context, task *model.Task, log *zap.Logger) (*PhaseResult, error) {
	extra := p.enrichmentContext(ctx, task.Description, log)

	raw, err := p.llm.Call(ctx, prompts.VendorDiscovery(task.Description, extra))
	if err != nil {
		return nil, eris.Wrap(err, "vendor discovery call")
	}

	res := normalize.Extract(raw)
	rows := vendorRows(res.Map())
	if len(rows) == 0 {
		return nil, &ValidationError{Phase: model.PhaseVendorDiscovery, Reason: "expected a non-empty array of vendors"}
	}
	log.Info("pipeline: vendors returned", zap.Int("count", len(rows)), zap.String("strategy", string(res.Strategy)))

	seen := make(map[string]bool, len(rows))
	vendors := make([]*model.Vendor, 0, len(rows))
	for i, row := range rows {
		name := normalize.Truncate(normalize.FirstString(row, "vendor_company", "vendor_name", "vendor"), maxNameLen)
		if name == "" {
			log.Warn("pipeline: skipping vendor without a name", zap.Int("index", i))
			continue
		}
		if seen[name] {
			log.Warn("pipeline: skipping duplicate vendor", zap.String("vendor", name))
			continue
		}
		seen[name] = true

		verdict := p.validator.Validate(row)
		log.Debug("pipeline: vendor verdict",
			zap.String("vendor", name),
			zap.Bool("is_real", verdict.Valid),
			zap.String("reason", verdict.Reason),
		)

		vendors = append(vendors, &model.Vendor{
			TaskID:      task.ID,
			Name:        name,
			ProductName: normalize.Truncate(normalize.FirstString(row, "product_name", "product"), maxNameLen),
			EvidenceURL: normalize.Truncate(normalize.FirstString(row, "evidence_link", "evidence_url", "evidence"), maxURLLen),
			Source:      normalize.Truncate(stringOr(normalize.FirstString(row, "domain", "source"), "discovery"), maxNameLen),
			Status:      normalize.Truncate(stringOr(normalize.String(row["status"]), model.VendorStatusDiscovered), maxStatusLen),
			IsVerified:  true,
			Position:    len(vendors),
		})
	}
	if len(vendors) == 0 {
		return nil, &ValidationError{Phase: model.PhaseVendorDiscovery, Reason: "no vendor has a name"}
	}

	err = p.store.WithTx(ctx, func(tx store.Tx) error {
		for _, v := range vendors {
			if err := tx.UpsertVendor(ctx, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "store vendors")
	}

	return &PhaseResult{Counts: map[string]int{"vendors_discovered": len(vendors)}}, nil
}

// enrichmentContext gathers candidates from external sources, keeps the ones
// the validator accepts and renders them for the discovery prompt.
func (p *Pipeline) enrichmentContext(ctx context.Context, topic string, log *zap.Logger) string {
	if p.collector == nil {
		return ""
	}
	cands := p.collector.Collect(ctx, topic, p.sourceLimit)
	kept := make([]sources.Candidate, 0, len(cands))
	for _, c := range cands {
		if p.validator.Check(c.Name, c.ProductName, c.EvidenceURL).Valid {
			kept = append(kept, c)
		}
	}
	log.Info("pipeline: enrichment candidates", zap.Int("collected", len(cands)), zap.Int("kept", len(kept)))
	return sources.Render(kept)
}

// vendorRows accepts a top-level array (wrapped under "results") or an
// object holding a "vendors" array.
func vendorRows(m map[string]any) []map[string]any {
	for _, key := range []string{normalize.ResultsKey, "vendors"} {
		if rows := normalize.Objects(m[key]); len(rows) > 0 {
			return rows
		}
	}
	return nil
}

func stringOr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
