package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create and inspect tasks",
}

// -- task create --

var taskCreateCmd = &cobra.Command{
	Use:   "create <description>",
	Short: "Create a task in the pending state",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		desc := strings.TrimSpace(strings.Join(args, " "))
		if desc == "" {
			return eris.New("task create: description is required")
		}
		user, _ := cmd.Flags().GetString("user")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		task, err := st.CreateTask(ctx, user, desc)
		if err != nil {
			return eris.Wrap(err, "task create")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(task)
	},
}

// -- task list --

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")

		tasks, err := st.ListTasks(ctx, store.TaskFilter{
			Status: model.TaskStatus(status),
			UserID: user,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "task list")
		}

		if len(tasks) == 0 {
			fmt.Fprintln(os.Stderr, "No tasks found.")
			return nil
		}

		formatTaskList(os.Stdout, tasks)
		return nil
	},
}

func init() {
	taskCreateCmd.Flags().String("user", "cli", "user ID recorded on the task")

	taskListCmd.Flags().String("status", "", "filter by status (pending, phase1_done, completed, error, ...)")
	taskListCmd.Flags().String("user", "", "filter by user ID")
	taskListCmd.Flags().Int("limit", 50, "max number of tasks to display")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	rootCmd.AddCommand(taskCmd)
}

const maxListDescription = 48

// formatTaskList writes a tabular list of tasks to out.
func formatTaskList(out io.Writer, tasks []model.Task) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tUSER\tCREATED\tDESCRIPTION")
	for _, t := range tasks {
		desc := t.Description
		if r := []rune(desc); len(r) > maxListDescription {
			desc = string(r[:maxListDescription-3]) + "..."
		}
		status := string(t.Status)
		if t.Status == model.TaskStatusError && t.ErrorMessage != "" {
			status += " (" + t.ErrorMessage + ")"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			status,
			t.UserID,
			t.CreatedAt.UTC().Format("2006-01-02 15:04"),
			desc,
		)
	}
	_ = w.Flush()
}
