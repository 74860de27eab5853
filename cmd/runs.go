package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rollcall/internal/model"
	"github.com/sells-group/rollcall/internal/monitoring"
	"github.com/sells-group/rollcall/internal/store"
)

var errHistoryDisabled = eris.New("run history is disabled (store.driver is none)")

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect reconciliation run history",
	Long:  "Commands for listing and viewing reconciliation runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reconciliation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st == nil {
			return errHistoryDisabled
		}
		defer closeStore(st)

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st == nil {
			return errHistoryDisabled
		}
		defer closeStore(st)

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st == nil {
			return errHistoryDisabled
		}
		defer closeStore(st)

		since := time.Duration(cfg.Monitoring.LookbackHours) * time.Hour
		if cmd.Flags().Changed("since") {
			since, _ = cmd.Flags().GetDuration("since")
		}
		notify, _ := cmd.Flags().GetBool("notify")

		_, err = runStats(ctx, st, since, notify, os.Stdout)
		return err
	},
}

// runStats prints a snapshot of run history and returns the alerts it
// triggered. With notify set the alerts are also posted to the webhook.
func runStats(ctx context.Context, st store.Store, since time.Duration, notify bool, out io.Writer) ([]monitoring.Alert, error) {
	snap, err := monitoring.NewCollector(st).Collect(ctx, since)
	if err != nil {
		return nil, eris.Wrap(err, "runs stats")
	}

	alerter := monitoring.NewAlerter(cfg.Monitoring)
	alerts := alerter.Evaluate(snap)
	formatRunStats(out, snap, alerts)

	if notify {
		sent := alerter.SendAlerts(ctx, alerts)
		zap.L().Info("runs stats: alerts delivered", zap.Int("triggered", len(alerts)), zap.Int("sent", sent))
	}
	return alerts, nil
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, running, complete, partial, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 168h, 0 for all)")
	runsStatsCmd.Flags().Bool("notify", false, "post triggered alerts to monitoring.webhook_url")

	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tROSTER\tSTATUS\tMATCHED\tUNMATCHED\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t---------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		matched, unmatched := "-", "-"
		if r.Result != nil {
			matched = fmt.Sprint(r.Result.Matched)
			unmatched = fmt.Sprint(len(r.Result.Unmatched))
		}

		roster := filepath.Base(r.Input.RosterPath)
		if r := []rune(roster); len(r) > 30 {
			roster = string(r[:27]) + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			roster,
			r.Status,
			matched,
			unmatched,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatRunStats writes aggregate stats and any triggered alerts to w.
func formatRunStats(out io.Writer, s *monitoring.Snapshot, alerts []monitoring.Alert) {
	window := "all time"
	if s.Lookback > 0 {
		window = "last " + s.Lookback.String()
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\t%s\n", window)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Partial:\t%d\n", s.Partial)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Pending:\t%d\n", s.Pending)
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", s.FailRate*100)
	_, _ = fmt.Fprintf(w, "Avg matched:\t%.1f\n", s.AvgMatched)
	_, _ = fmt.Fprintf(w, "Avg unmatched:\t%.1f\n", s.AvgUnmatched)
	_, _ = fmt.Fprintf(w, "Avg duration:\t%s\n", (time.Duration(s.AvgDuration) * time.Millisecond).String())
	_, _ = fmt.Fprintf(w, "Skipped files:\t%d\n", s.SkippedFiles)
	_ = w.Flush()

	for _, a := range alerts {
		_, _ = fmt.Fprintf(out, "%s %s\n", severityColor(a.Severity).Sprintf("ALERT [%s]", a.Severity), a.Message)
	}
}

func severityColor(severity string) *color.Color {
	if severity == "high" {
		return color.New(color.FgRed, color.Bold)
	}
	return color.New(color.FgYellow)
}
