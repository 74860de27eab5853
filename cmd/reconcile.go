package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rollcall/internal/model"
	"github.com/sells-group/rollcall/internal/pipeline"
	"github.com/sells-group/rollcall/internal/store"
)

type reconcileOptions struct {
	roster       string
	checkins     []string
	sheet        string
	threshold    int
	output       string
	annotatedDir string
	format       string
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match check-in workbooks against a roster",
	Long: "Reads the roster and every check-in workbook in the given order, marks each check-in row that claims a roster entry, " +
		"writes annotated copies and an unmatched report, and prints a summary.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		opts := reconcileOptions{threshold: cfg.Match.Threshold}
		opts.roster, _ = cmd.Flags().GetString("roster")
		opts.checkins, _ = cmd.Flags().GetStringArray("checkin")
		opts.sheet, _ = cmd.Flags().GetString("sheet")
		opts.output, _ = cmd.Flags().GetString("output")
		opts.annotatedDir, _ = cmd.Flags().GetString("annotated-dir")
		opts.format, _ = cmd.Flags().GetString("format")
		if cmd.Flags().Changed("threshold") {
			opts.threshold, _ = cmd.Flags().GetInt("threshold")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(st)

		return runReconcile(ctx, st, opts, os.Stdout)
	},
}

func runReconcile(ctx context.Context, st store.Store, opts reconcileOptions, out io.Writer) error {
	switch opts.format {
	case "json", "yaml":
	default:
		return eris.Errorf("unsupported format %q (json or yaml)", opts.format)
	}

	p := pipeline.New(cfg, st)
	res, err := p.Run(ctx, pipeline.Job{
		RosterPath:    opts.roster,
		CheckinPaths:  opts.checkins,
		SheetSelector: opts.sheet,
		Threshold:     opts.threshold,
		AnnotatedDir:  opts.annotatedDir,
		ReportPath:    opts.output,
		Origin:        "cli",
	})
	if res != nil {
		if writeErr := writeResult(out, res, opts.format); writeErr != nil {
			return writeErr
		}
	}
	return err
}

// writeResult prints res as indented JSON or YAML.
func writeResult(w io.Writer, res *model.RunResult, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(res), "encode json")
	default:
		return eris.Errorf("unsupported format %q", format)
	}
}

func init() {
	reconcileCmd.Flags().String("roster", "", "roster workbook (.xlsx)")
	reconcileCmd.Flags().StringArray("checkin", nil, "check-in workbook, repeatable; matched in the given order")
	reconcileCmd.Flags().String("sheet", "", "check-in sheet name (default from config)")
	reconcileCmd.Flags().Int("threshold", 80, "minimum similarity score (0-100) to accept a match")
	reconcileCmd.Flags().String("output", "", "unmatched report path (default from config)")
	reconcileCmd.Flags().String("annotated-dir", "", "folder for annotated copies (default: next to each check-in)")
	reconcileCmd.Flags().String("format", "json", "summary format: json or yaml")
	_ = reconcileCmd.MarkFlagRequired("roster")
	_ = reconcileCmd.MarkFlagRequired("checkin")
	rootCmd.AddCommand(reconcileCmd)
}
