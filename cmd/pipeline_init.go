package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/config"
	"github.com/sells-group/vendor-pipeline/internal/cost"
	"github.com/sells-group/vendor-pipeline/internal/llm"
	"github.com/sells-group/vendor-pipeline/internal/monitoring"
	"github.com/sells-group/vendor-pipeline/internal/pipeline"
	"github.com/sells-group/vendor-pipeline/internal/sources"
	"github.com/sells-group/vendor-pipeline/internal/store"
	"github.com/sells-group/vendor-pipeline/pkg/jina"
)

// pipelineEnv holds the initialized store, gateway and pipeline needed by
// the phase, run, worker and serve commands.
type pipelineEnv struct {
	Store     store.Store
	Gateway   *llm.Gateway
	Pipeline  *pipeline.Pipeline
	Collector *monitoring.Collector
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline opens the store, builds the model gateway and the optional
// enrichment sources, and assembles the Pipeline. Callers defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	calc := cost.NewCalculator(cost.DefaultRates(), pricingRates(cfg.Pricing))
	gw, err := llm.New(ctx, cfg.LLM, llm.WithCalculator(calc))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	opts := []pipeline.Option{}
	if collector := buildCollector(cfg.Sources); collector != nil {
		opts = append(opts, pipeline.WithCollector(collector, cfg.Sources.Limit))
	}
	p := pipeline.New(st, gw, cfg.Pipeline, opts...)

	stuckAfter := time.Duration(cfg.Monitoring.StuckAfterSecs) * time.Second

	return &pipelineEnv{
		Store:     st,
		Gateway:   gw,
		Pipeline:  p,
		Collector: monitoring.NewCollector(st, gw, stuckAfter),
	}, nil
}

// buildCollector assembles the enrichment sources. It returns nil when
// enrichment is disabled. Web search is added only when a key is set.
func buildCollector(sc config.SourcesConfig) *sources.Collector {
	if !sc.Enabled {
		zap.L().Debug("vendor enrichment sources disabled")
		return nil
	}

	var srcs []sources.Source
	if len(sc.RSSFeeds) > 0 {
		srcs = append(srcs, sources.NewRSSSource(sc.RSSFeeds, nil))
	}
	if sc.JinaKey != "" {
		var opts []jina.Option
		if sc.JinaSearchURL != "" {
			opts = append(opts, jina.WithSearchBaseURL(sc.JinaSearchURL))
		}
		srcs = append(srcs, sources.NewSearchSource(jina.NewClient(sc.JinaKey, opts...)))
	} else {
		zap.L().Debug("VENDOR_SOURCES_JINA_KEY not set, web search enrichment disabled")
	}
	srcs = append(srcs, sources.CuratedSource{})

	zap.L().Info("vendor enrichment sources enabled", zap.Int("sources", len(srcs)))
	return sources.NewCollector(sc.Timeout(), srcs...)
}

// pricingRates converts configured pricing into calculator overrides.
func pricingRates(pc config.PricingConfig) cost.Rates {
	rates := make(cost.Rates, len(pc.Models))
	for name, p := range pc.Models {
		rates[name] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}
	return rates
}
