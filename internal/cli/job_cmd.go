package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/crewdesk/internal/cli/formatter"
	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/daterange"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"github.com/alexanderramin/crewdesk/internal/report"
	"github.com/alexanderramin/crewdesk/internal/service"
	"github.com/spf13/cobra"
)

func newJobCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Schedule and run jobs",
	}

	cmd.AddCommand(
		newJobCreateCmd(app),
		newJobListCmd(app),
		newJobShowCmd(app),
		newJobUpdateCmd(app),
		newJobDeleteCmd(app),
		newJobTransitionCmd(app, "start", "Start a job", domain.JobInProgress),
		newJobTransitionCmd(app, "complete", "Complete a job", domain.JobCompleted),
		newJobTransitionCmd(app, "cancel", "Cancel a job", domain.JobCancelled),
		newJobAssignCmd(app),
		newJobWorkerCmd(app, "add-worker", "Add one worker to a job", app.addWorker),
		newJobWorkerCmd(app, "remove-worker", "Remove one worker from a job", app.removeWorker),
		newJobStatsCmd(app),
		newJobDaysCmd(app),
		newJobWatchCmd(app),
	)

	return cmd
}

func newJobCreateCmd(app *App) *cobra.Command {
	var clientID, at, locLabel, locAddress, notes string
	var duration int
	var workers []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Schedule a new job",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			date, err := parseDateTime(at, app.loc())
			if err != nil {
				return err
			}
			j := &domain.Job{
				ClientID:        strings.TrimSpace(clientID),
				Date:            date.UTC(),
				DurationMinutes: duration,
				Notes:           notes,
			}
			if locLabel != "" || locAddress != "" {
				j.Location = &domain.JobLocation{Label: locLabel, Address: locAddress}
			}
			if err := app.Jobs.Create(ctx, j); err != nil {
				return err
			}
			if len(workers) > 0 {
				assigned, err := app.Assignments.Assign(ctx, j.ID, workers)
				if err != nil {
					return fmt.Errorf("job %s created but not assigned: %w", j.ID, err)
				}
				j = assigned
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created job %s for %s on %s\n",
				j.ID, j.ClientID, j.Date.In(app.loc()).Format("2006-01-02 15:04"))
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "Client ID")
	cmd.Flags().StringVar(&at, "at", "", "Start time (YYYY-MM-DD HH:MM)")
	cmd.Flags().IntVar(&duration, "duration", 0, "Duration in minutes (default 60)")
	cmd.Flags().StringVar(&locLabel, "location-label", "", "Location label overriding the client address")
	cmd.Flags().StringVar(&locAddress, "location-address", "", "Location address overriding the client address")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes for the crew")
	cmd.Flags().StringSliceVar(&workers, "worker", nil, "Worker ID to assign (repeatable)")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

// jobFilterFlags holds the flags shared by list, days and watch.
type jobFilterFlags struct {
	rng      rangeFlags
	status   string
	clientID string
	workers  []string
}

func (f *jobFilterFlags) register(cmd *cobra.Command, defRange string) {
	f.rng.register(cmd.Flags(), defRange)
	cmd.Flags().StringVar(&f.status, "status", "", "Only jobs in this status")
	cmd.Flags().StringVar(&f.clientID, "client", "", "Only jobs for this client")
	cmd.Flags().StringSliceVar(&f.workers, "worker", nil, "Only jobs assigned to any of these workers")
}

func (f *jobFilterFlags) filter(app *App) (contract.JobFilter, error) {
	r, err := f.rng.resolve(app.now())
	if err != nil {
		return contract.JobFilter{}, err
	}
	filter := contract.JobFilter{
		Range:     r,
		Status:    domain.JobStatus(strings.ToLower(strings.TrimSpace(f.status))),
		ClientID:  strings.TrimSpace(f.clientID),
		WorkerIDs: f.workers,
	}
	return filter, filter.Validate()
}

func newJobListCmd(app *App) *cobra.Command {
	var flags jobFilterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter(app)
			if err != nil {
				return err
			}
			jobs, err := app.Jobs.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatJobList(jobs, app.loc()))
			return nil
		},
	}
	flags.register(cmd, string(daterange.PresetWeek))

	return cmd
}

func newJobShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveJobID(ctx, app, args[0])
			if err != nil {
				return err
			}
			j, err := app.Jobs.GetByID(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatJob(j, app.loc()))
			return nil
		},
	}
}

func newJobUpdateCmd(app *App) *cobra.Command {
	var clientID, at, locLabel, locAddress, notes string
	var duration int
	var clearLocation bool
	var version int64

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit a job's client, time, duration, location or notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveJobID(ctx, app, args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			patch := contract.JobPatch{ExpectedVersion: version, ClearLocation: clearLocation}
			if flags.Changed("client") {
				patch.ClientID = &clientID
			}
			if flags.Changed("at") {
				date, err := parseDateTime(at, app.loc())
				if err != nil {
					return err
				}
				utc := date.UTC()
				patch.Date = &utc
			}
			if flags.Changed("duration") {
				patch.DurationMinutes = &duration
			}
			if flags.Changed("location-label") || flags.Changed("location-address") {
				patch.Location = &domain.JobLocation{Label: locLabel, Address: locAddress}
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}

			j, err := app.Jobs.Update(ctx, id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated job %s (version %d)\n", j.ID, j.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "Client ID")
	cmd.Flags().StringVar(&at, "at", "", "Start time (YYYY-MM-DD HH:MM)")
	cmd.Flags().IntVar(&duration, "duration", 0, "Duration in minutes")
	cmd.Flags().StringVar(&locLabel, "location-label", "", "Location label")
	cmd.Flags().StringVar(&locAddress, "location-address", "", "Location address")
	cmd.Flags().BoolVar(&clearLocation, "clear-location", false, "Fall back to the client's address")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes for the crew")
	cmd.Flags().Int64Var(&version, "expected-version", 0, "Reject the edit if the job changed since this version")

	return cmd
}

func newJobDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a job (work log entries are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveJobID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Jobs.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", id)
			return nil
		},
	}
}

// newJobTransitionCmd builds start, complete and cancel. With --as, start and
// complete run through the worker workflow and also reconcile that worker's
// work log.
func newJobTransitionCmd(app *App, use, short string, to domain.JobStatus) *cobra.Command {
	var action contract.WorkerAction
	byWorker := to == domain.JobInProgress || to == domain.JobCompleted

	cmd := &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveJobID(ctx, app, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if byWorker && action.UserID != "" {
				action.JobID = id
				var res *service.WorkflowResult
				if to == domain.JobInProgress {
					res, err = app.Workflow.StartJobForWorker(ctx, action)
				} else {
					res, err = app.Workflow.CompleteJobForWorker(ctx, action)
				}
				if err != nil {
					return err
				}
				if res.Transitioned {
					fmt.Fprintf(out, "Job %s is now %s\n", res.Job.ID, formatter.StatusPill(res.Job.Status))
				} else {
					fmt.Fprintf(out, "Job %s was already %s\n", res.Job.ID, formatter.StatusPill(res.Job.Status))
				}
				fmt.Fprintln(out, formatter.FormatWorkLog(res.Entry, app.loc()))
				return nil
			}

			j, err := app.Lifecycle.Transition(ctx, id, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Job %s is now %s\n", j.ID, formatter.StatusPill(j.Status))
			return nil
		},
	}

	if byWorker {
		cmd.Flags().StringVar(&action.UserID, "as", "", "Act as this assigned worker and record their work log")
		cmd.Flags().StringVar(&action.UserName, "name", "", "Worker display name for the work log")
		cmd.Flags().StringVar(&action.UserEmail, "email", "", "Worker email for the work log")
		cmd.Flags().StringVar(&action.ClientName, "client-name", "", "Client display name for the work log")
	}

	return cmd
}

func newJobAssignCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "assign ID [WORKER...]",
		Short: "Replace the job's workers (no workers clears the set)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveJobID(ctx, app, args[0])
			if err != nil {
				return err
			}
			j, err := app.Assignments.Assign(ctx, id, args[1:])
			if err != nil {
				return err
			}
			printWorkers(cmd, j)
			return nil
		},
	}
}

func (a *App) addWorker(cmd *cobra.Command, jobID, userID string) (*domain.Job, error) {
	return a.Assignments.AddWorker(cmd.Context(), jobID, userID)
}

func (a *App) removeWorker(cmd *cobra.Command, jobID, userID string) (*domain.Job, error) {
	return a.Assignments.RemoveWorker(cmd.Context(), jobID, userID)
}

func newJobWorkerCmd(app *App, use, short string, apply func(*cobra.Command, string, string) (*domain.Job, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID WORKER",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveJobID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			j, err := apply(cmd, id, args[1])
			if err != nil {
				return err
			}
			printWorkers(cmd, j)
			return nil
		},
	}
}

func printWorkers(cmd *cobra.Command, j *domain.Job) {
	workers := formatter.Dim("none")
	if len(j.AssignedUserIDs) > 0 {
		workers = strings.Join(j.AssignedUserIDs, ", ")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Job %s workers: %s\n", j.ID, workers)
}

func newJobStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show scheduled and completed counts for today and the week",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := app.now()
			week := daterange.RollingWeek(now)
			jobs, err := app.Jobs.List(cmd.Context(), contract.JobFilter{Range: &week})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatStats(report.StatsFor(jobs, now)))
			return nil
		},
	}
}

func newJobDaysCmd(app *App) *cobra.Command {
	var flags jobFilterFlags

	cmd := &cobra.Command{
		Use:   "days",
		Short: "Show jobs grouped by day",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter(app)
			if err != nil {
				return err
			}
			jobs, err := app.Jobs.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatDays(report.GroupByDay(jobs, app.loc()), app.now()))
			return nil
		},
	}
	flags.register(cmd, string(daterange.PresetWeek))

	return cmd
}

func newJobWatchCmd(app *App) *cobra.Command {
	var flags jobFilterFlags
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow jobs live; every change reprints the list",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter(app)
			if err != nil {
				return err
			}
			sub, err := app.Jobs.Subscribe(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return follow(cmd, sub, count, func(s feed.Snapshot[*domain.Job]) string {
				if len(s.Items) == 0 {
					return snapshotLine(s.Seq, app) + "\nNo jobs found."
				}
				return snapshotLine(s.Seq, app) + "\n" + formatter.FormatJobList(s.Items, app.loc())
			})
		},
	}
	flags.register(cmd, string(daterange.PresetWeek))
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many snapshots (0 follows until interrupted)")

	return cmd
}
