package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/classplan/adapter/cli"
	"github.com/felixgeelhaar/classplan/adapter/cli/meeting"
	"github.com/felixgeelhaar/classplan/internal/app"
	"github.com/felixgeelhaar/classplan/pkg/config"
	"github.com/felixgeelhaar/classplan/pkg/observability"
)

func main() {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logCfg := observability.DefaultLogConfig()
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	logCfg.Format = observability.LogFormat(cfg.LogFormat)
	logCfg.ServiceVersion = cli.Version
	logger := observability.NewLogger(logCfg)
	cli.SetLogger(logger)

	var cliApp *cli.App
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
		// Commands report that they need a database instead of failing here.
		logger.Warn("failed to initialize container, running in limited mode", "error", err)
	} else {
		defer container.Close()

		cliApp = cli.NewApp(
			container.Scheduler,
			container.ListSectionMeetingsHandler,
			container.ExportSectionCalendarHandler,
		)
		cliApp.SetLocation(cfg.Location())
		cliApp.SetActor(cfg.Actor)
		cliApp.SetHealth(container.HealthRegistry())
	}

	cli.SetApp(cliApp)
	cli.AddCommand(meeting.Cmd)

	cli.Execute(ctx)
}
