package cli

import (
	"context"
	"time"

	"github.com/alexanderramin/crewdesk/internal/config"
	"github.com/alexanderramin/crewdesk/internal/service"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Jobs        service.JobService
	Lifecycle   service.LifecycleService
	Assignments service.AssignmentService
	WorkLogs    service.WorkLogService
	Workflow    service.JobWorkflow

	Config *config.Config
	// Location defines calendar days for ranges and display. Defaults to time.Local.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
	// Serve runs the HTTP transport until ctx ends. Nil disables "serve".
	Serve func(ctx context.Context) error
}

func (a *App) loc() *time.Location {
	if a.Location == nil {
		return time.Local
	}
	return a.Location
}

// now is the current instant in the app location.
func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now().In(a.loc())
	}
	return a.Now().In(a.loc())
}

// NewRootCmd creates the top-level "crewdesk" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "crewdesk",
		Short:         "Job scheduling and work logs for field crews",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newJobCmd(app),
		newWorkLogCmd(app),
		newServeCmd(app),
		newConfigCmd(app),
	)

	return root
}
