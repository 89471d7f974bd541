package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vendor-pipeline/internal/export"
	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/pipeline"
)

var (
	reportFormat string
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report <task-id>",
	Short: "Export a task report as JSON, YAML or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch reportFormat {
		case "json", "yaml":
		case "xlsx":
			if reportOut == "" {
				return eris.New("report: --out is required for xlsx")
			}
		default:
			return eris.Errorf("report: unsupported format %q (json, yaml, xlsx)", reportFormat)
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// Building a report needs no model calls.
		p := pipeline.New(st, nil, cfg.Pipeline)
		report, err := p.BuildReport(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "report")
		}

		var w io.Writer = os.Stdout
		if reportOut != "" {
			f, err := os.Create(reportOut)
			if err != nil {
				return eris.Wrap(err, "report: create output")
			}
			defer f.Close() //nolint:errcheck
			w = f
		}
		return writeReport(w, reportFormat, report)
	},
}

func writeReport(w io.Writer, format string, r *model.Report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		return export.YAML(w, r)
	case "xlsx":
		return export.XLSX(w, r)
	default:
		return eris.Errorf("report: unsupported format %q (json, yaml, xlsx)", format)
	}
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "output format: json, yaml or xlsx")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(reportCmd)
}
