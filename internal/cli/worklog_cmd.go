package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/crewdesk/internal/cli/formatter"
	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/daterange"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"github.com/alexanderramin/crewdesk/internal/report"
	"github.com/spf13/cobra"
)

func newWorkLogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "worklog",
		Aliases: []string{"log"},
		Short:   "Record and review worked time",
	}

	cmd.AddCommand(
		newWorkLogEventCmd(app, "start", "Open a work log entry for a worker on a job",
			func(ctx context.Context, ev contract.WorkEvent) (*domain.WorkLogEntry, error) {
				return app.WorkLogs.RecordStart(ctx, ev)
			}),
		newWorkLogEventCmd(app, "complete", "Close a worker's open entry on a job",
			func(ctx context.Context, ev contract.WorkEvent) (*domain.WorkLogEntry, error) {
				return app.WorkLogs.RecordCompletion(ctx, ev)
			}),
		newWorkLogAddCmd(app),
		newWorkLogEditCmd(app),
		newWorkLogRemoveCmd(app),
		newWorkLogListCmd(app),
		newWorkLogTotalsCmd(app),
		newWorkLogWatchCmd(app),
	)

	return cmd
}

// newWorkLogEventCmd records a start or completion without touching the
// job's status.
func newWorkLogEventCmd(
	app *App,
	use, short string,
	record func(context.Context, contract.WorkEvent) (*domain.WorkLogEntry, error),
) *cobra.Command {
	var jobRef string
	var action contract.WorkerAction

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveJobID(ctx, app, jobRef)
			if err != nil {
				return err
			}
			job, err := app.Jobs.GetByID(ctx, id)
			if err != nil {
				return err
			}
			entry, err := record(ctx, action.Event(job))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatWorkLog(entry, app.loc()))
			return nil
		},
	}

	cmd.Flags().StringVar(&jobRef, "job", "", "Job ID")
	cmd.Flags().StringVar(&action.UserID, "user", "", "Worker ID")
	cmd.Flags().StringVar(&action.UserName, "name", "", "Worker display name")
	cmd.Flags().StringVar(&action.UserEmail, "email", "", "Worker email")
	cmd.Flags().StringVar(&action.ClientName, "client-name", "", "Client display name")
	_ = cmd.MarkFlagRequired("job")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newWorkLogAddCmd(app *App) *cobra.Command {
	var req contract.ManualLogRequest
	var date, start, end string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a manual entry not tied to a job",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := daterange.ParseDay(date, app.loc())
			if err != nil {
				return err
			}
			if req.Start, err = domain.ParseClockTime(start); err != nil {
				return err
			}
			if req.End, err = domain.ParseClockTime(end); err != nil {
				return err
			}
			req.WorkDate = day

			entry, err := app.WorkLogs.CreateManual(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatWorkLog(entry, app.loc()))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.UserID, "user", "", "Worker ID")
	cmd.Flags().StringVar(&req.UserName, "name", "", "Worker display name")
	cmd.Flags().StringVar(&req.UserEmail, "email", "", "Worker email")
	cmd.Flags().StringVar(&req.ClientID, "client", "", "Client ID")
	cmd.Flags().StringVar(&req.ClientName, "client-name", "", "Client display name")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&date, "date", "", "Work date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "Start time (HH:MM)")
	cmd.Flags().StringVar(&end, "end", "", "End time (HH:MM)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func newWorkLogEditCmd(app *App) *cobra.Command {
	var date, start, end, notes string
	var version int64

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Correct an entry's date, times or notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveEntryID(ctx, app, args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			patch := contract.LogEntryPatch{ExpectedVersion: version}
			if flags.Changed("date") {
				day, err := daterange.ParseDay(date, app.loc())
				if err != nil {
					return err
				}
				patch.WorkDate = &day
			}
			if flags.Changed("start") {
				t, err := parseDateTime(start, app.loc())
				if err != nil {
					return err
				}
				patch.StartTime = &t
			}
			if flags.Changed("end") {
				t, err := parseDateTime(end, app.loc())
				if err != nil {
					return err
				}
				patch.EndTime = &t
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}
			if patch.IsEmpty() {
				return domain.NewValidationError("edit", "nothing to change; pass --date, --start, --end or --notes")
			}

			entry, err := app.WorkLogs.Update(ctx, id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatWorkLog(entry, app.loc()))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Work date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "Start (YYYY-MM-DD HH:MM)")
	cmd.Flags().StringVar(&end, "end", "", "End (YYYY-MM-DD HH:MM)")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")
	cmd.Flags().Int64Var(&version, "expected-version", 0, "Reject the edit if the entry changed since this version")

	return cmd
}

func newWorkLogRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Delete a work log entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveEntryID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.WorkLogs.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted work log %s\n", id)
			return nil
		},
	}
}

type workLogFilterFlags struct {
	rng      rangeFlags
	userID   string
	jobRef   string
	openOnly bool
}

func (f *workLogFilterFlags) register(cmd *cobra.Command) {
	f.rng.register(cmd.Flags(), string(daterange.PresetWeek))
	cmd.Flags().StringVar(&f.userID, "user", "", "Only this worker's entries")
	cmd.Flags().StringVar(&f.jobRef, "job", "", "Only entries for this job")
	cmd.Flags().BoolVar(&f.openOnly, "open", false, "Only entries still running")
}

func (f *workLogFilterFlags) filter(ctx context.Context, app *App) (contract.WorkLogFilter, error) {
	r, err := f.rng.resolve(app.now())
	if err != nil {
		return contract.WorkLogFilter{}, err
	}
	filter := contract.WorkLogFilter{Range: r, UserID: strings.TrimSpace(f.userID), OpenOnly: f.openOnly}
	if f.jobRef != "" {
		if filter.JobID, err = resolveJobID(ctx, app, f.jobRef); err != nil {
			return contract.WorkLogFilter{}, err
		}
	}
	return filter, nil
}

func newWorkLogListCmd(app *App) *cobra.Command {
	var flags workLogFilterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filter, err := flags.filter(ctx, app)
			if err != nil {
				return err
			}
			entries, err := app.WorkLogs.List(ctx, filter)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No work log entries found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatWorkLogList(entries, app.loc()))
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

func newWorkLogTotalsCmd(app *App) *cobra.Command {
	var flags workLogFilterFlags

	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Sum worked time per worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filter, err := flags.filter(ctx, app)
			if err != nil {
				return err
			}
			entries, err := app.WorkLogs.List(ctx, filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatWorkerTotals(report.PerWorkerTotals(entries)))
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

func newWorkLogWatchCmd(app *App) *cobra.Command {
	var flags workLogFilterFlags
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow work log entries live",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filter, err := flags.filter(ctx, app)
			if err != nil {
				return err
			}
			sub, err := app.WorkLogs.Subscribe(ctx, filter)
			if err != nil {
				return err
			}
			return follow(cmd, sub, count, func(s feed.Snapshot[*domain.WorkLogEntry]) string {
				if len(s.Items) == 0 {
					return snapshotLine(s.Seq, app) + "\nNo work log entries found."
				}
				return snapshotLine(s.Seq, app) + "\n" + formatter.FormatWorkLogList(s.Items, app.loc())
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many snapshots (0 follows until interrupted)")

	return cmd
}
