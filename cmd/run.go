package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/workflow"
)

var (
	runTemporal bool
	runWait     bool
	runFrom     int
)

var runCmd = &cobra.Command{
	Use:   "run <task-id>",
	Short: "Run phases 1 through 5 for a task",
	Long:  "Runs every phase in order, in-process by default. With --temporal the run is started as a durable workflow on the configured task queue.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		taskID := args[0]

		from, err := model.ParsePhase(runFrom)
		if err != nil {
			return err
		}

		if runTemporal {
			return startWorkflow(cmd, taskID, from)
		}

		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := env.Pipeline.RunFrom(ctx, taskID, from)
		if err != nil {
			return err
		}

		zap.L().Info("pipeline complete",
			zap.String("task_id", taskID),
			zap.Any("llm_usage", env.Gateway.Usage()),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func startWorkflow(cmd *cobra.Command, taskID string, from model.Phase) error {
	ctx := cmd.Context()
	if err := cfg.Validate("worker"); err != nil {
		return err
	}

	c, err := workflow.Dial(cfg.Temporal)
	if err != nil {
		return err
	}
	defer c.Close()

	run, err := workflow.Start(ctx, c, cfg.Temporal.TaskQueue, workflow.Input{
		TaskID:       taskID,
		StartPhase:   from,
		PhaseTimeout: cfg.Server.PhaseTimeout(),
	})
	if err != nil {
		return err
	}
	zap.L().Info("workflow started",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
	)
	if !runWait {
		return nil
	}

	var out workflow.Output
	if err := run.Get(ctx, &out); err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func init() {
	runCmd.Flags().BoolVar(&runTemporal, "temporal", false, "start the run as a Temporal workflow")
	runCmd.Flags().BoolVar(&runWait, "wait", false, "with --temporal, block until the workflow finishes")
	runCmd.Flags().IntVar(&runFrom, "from", 1, "first phase to run (resume after a failure)")
	rootCmd.AddCommand(runCmd)
}
