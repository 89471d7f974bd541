package main

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vendor-pipeline/internal/model"
)

var phaseCmd = &cobra.Command{
	Use:   "phase <n> <task-id>",
	Short: "Run a single phase (1-5) for a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		phase, err := parsePhaseArg(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Run(ctx, phase, args[1])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func parsePhaseArg(s string) (model.Phase, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, eris.Errorf("invalid phase %q: must be a number between 1 and 5", s)
	}
	return model.ParsePhase(n)
}

func init() {
	rootCmd.AddCommand(phaseCmd)
}
