package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

// BuildReport assembles a task and all of its derived records. Analysis is
// nil until phase 5 has completed.
func (p *Pipeline) BuildReport(ctx context.Context, taskID string) (*model.Report, error) {
	task, err := p.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: report task")
	}

	r := &model.Report{Task: *task}
	if r.Vendors, err = p.store.ListVendors(ctx, taskID); err != nil {
		return nil, eris.Wrap(err, "pipeline: report vendors")
	}
	if r.Subtasks, err = p.store.ListSubtasks(ctx, taskID); err != nil {
		return nil, eris.Wrap(err, "pipeline: report subtasks")
	}
	if r.Timelines, err = p.store.ListTimelines(ctx, taskID); err != nil {
		return nil, eris.Wrap(err, "pipeline: report timelines")
	}
	if r.Mappings, err = p.store.ListMappings(ctx, taskID); err != nil {
		return nil, eris.Wrap(err, "pipeline: report mappings")
	}

	fa, err := p.store.GetFinalAnalysis(ctx, taskID)
	switch {
	case err == nil:
		r.Analysis = fa
	case !errors.Is(err, store.ErrNotFound):
		return nil, eris.Wrap(err, "pipeline: report analysis")
	}
	return r, nil
}
