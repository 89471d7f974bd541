package pipeline

import (
	"context"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/normalize"
	"github.com/sells-group/vendor-pipeline/internal/prompts"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

// timeShareTolerance is how far the summed time shares may drift from 100
// before a warning is logged.
const timeShareTolerance = 5.0

// decomposeSubtasks asks the model to split the task and stores the first
// SubtaskLimit subtasks with their derived weights.
func (p *Pipeline) decomposeSubtasks(ctx context.Context, task *model.Task, log *zap.Logger) (*PhaseResult, error) {
	raw, err := p.llm.Call(ctx, prompts.Subtasks(task.Description))
	if err != nil {
		return nil, eris.Wrap(err, "subtask decomposition call")
	}

	rows := normalize.Objects(normalize.Extract(raw).Map()["subtasks"])
	if len(rows) == 0 {
		return nil, &ValidationError{Phase: model.PhaseSubtaskDecomposition, Reason: "missing or empty subtasks"}
	}
	if len(rows) > p.cfg.SubtaskLimit {
		log.Info("pipeline: truncating subtasks", zap.Int("returned", len(rows)), zap.Int("kept", p.cfg.SubtaskLimit))
		rows = rows[:p.cfg.SubtaskLimit]
	}

	seen := make(map[string]bool, len(rows))
	subtasks := make([]*model.Subtask, 0, len(rows))
	var total float64
	for i, row := range rows {
		name := normalize.Truncate(normalize.FirstString(row, "subtask_name", "name"), maxSubtaskLen)
		if name == "" {
			log.Warn("pipeline: skipping subtask without a name", zap.Int("index", i))
			continue
		}
		if seen[name] {
			log.Warn("pipeline: skipping duplicate subtask", zap.String("subtask", name))
			continue
		}
		seen[name] = true

		timePercent := normalize.ParsePercent(row["time_percent"], 0)
		importance := normalize.ClampScore(row["importance"])
		total += timePercent

		subtasks = append(subtasks, &model.Subtask{
			TaskID:       task.ID,
			Name:         name,
			Description:  normalize.Truncate(normalize.String(row["description"]), maxDescLen),
			TimePercent:  timePercent,
			Importance:   importance,
			AIApplicable: aiApplicable(normalize.String(row["ai_applicable"])),
			Weight:       model.SubtaskWeight(importance, timePercent),
			Position:     len(subtasks),
		})
	}
	if len(subtasks) == 0 {
		return nil, &ValidationError{Phase: model.PhaseSubtaskDecomposition, Reason: "no subtask has a name"}
	}
	if math.Abs(total-100) > timeShareTolerance {
		log.Warn("pipeline: subtask time shares do not sum to 100", zap.Float64("total", total))
	}

	err = p.store.WithTx(ctx, func(tx store.Tx) error {
		for _, st := range subtasks {
			if err := tx.UpsertSubtask(ctx, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "store subtasks")
	}

	return &PhaseResult{Counts: map[string]int{"subtasks_created": len(subtasks)}}, nil
}

// aiApplicable maps a model answer onto yes, no or partially. Anything
// unrecognized, including an empty answer, is partially.
func aiApplicable(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "high":
		return model.AIApplicableYes
	case "no", "false", "none":
		return model.AIApplicableNo
	default:
		return model.AIApplicablePartially
	}
}
