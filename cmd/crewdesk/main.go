package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/crewdesk/internal/cli"
	"github.com/alexanderramin/crewdesk/internal/cli/formatter"
	"github.com/alexanderramin/crewdesk/internal/config"
	"github.com/alexanderramin/crewdesk/internal/db"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"github.com/alexanderramin/crewdesk/internal/observability"
	"github.com/alexanderramin/crewdesk/internal/repository"
	"github.com/alexanderramin/crewdesk/internal/server"
	"github.com/alexanderramin/crewdesk/internal/service"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	database, err := db.OpenDB(cfg.DB.Path, db.Options{BusyTimeout: cfg.DB.BusyTimeout})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	jobRepo := repository.NewSQLiteJobRepo(database)
	logRepo := repository.NewSQLiteWorkLogRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	// Every service shares one hub so subscriptions see all writes.
	hub := feed.NewHub(feed.HubWithLogger(logger))
	opts := []service.Option{
		service.WithLocation(loc),
		service.WithHub(hub),
		service.WithObserver(service.NewZapUseCaseObserver(logger)),
		service.WithWatchOptions(cfg.Feed.WatchOptions(logger)),
		service.WithTransitionPolicy(domain.TransitionPolicy{
			AllowDirectComplete: cfg.Lifecycle.AllowDirectComplete,
		}),
	}

	jobs := service.NewJobService(jobRepo, opts...)
	lifecycle := service.NewLifecycleService(jobRepo, opts...)
	assignments := service.NewAssignmentService(jobRepo, uow, opts...)
	logs := service.NewWorkLogService(logRepo, opts...)
	workflow := service.NewJobWorkflow(jobRepo, lifecycle, logs, opts...)

	srv := server.New(cfg.Server, server.Services{
		Jobs:        jobs,
		Lifecycle:   lifecycle,
		Assignments: assignments,
		WorkLogs:    logs,
		Workflow:    workflow,
		Location:    loc,
	}, logger)

	app := &cli.App{
		Jobs:        jobs,
		Lifecycle:   lifecycle,
		Assignments: assignments,
		WorkLogs:    logs,
		Workflow:    workflow,
		Config:      cfg,
		Location:    loc,
		Serve:       srv.Run,
	}

	formatter.SetColor(formatter.ColorFor(os.Stdout))

	logger.Debug("starting", zap.String("db", cfg.DB.Path), zap.String("timezone", loc.String()))
	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
