// foliod is the headless portfolio tracking daemon. It loads the persisted
// portfolio, refreshes prices on a schedule, and appends history snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bgunnison/folio/internal/app"
	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/services/scheduler"
)

func main() {
	// Load .env if present; real environment variables win.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to folio.toml (default: FOLIO_CONFIG, then binary dir)")
	showVersion := flag.Bool("version", false, "print version and exit")
	refreshNow := flag.Bool("refresh-now", false, "run one refresh cycle immediately after startup")
	flag.Parse()

	if *showVersion {
		fmt.Println(common.GetFullVersion())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewApp(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "foliod: %v\n", err)
		os.Exit(1)
	}

	common.PrintBanner(application.Config, application.Logger)

	// Log scheduler events as they happen.
	go logEvents(application)

	application.Start(ctx)

	if *refreshNow {
		application.Scheduler.TriggerManual(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	application.Logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	cancel()
	application.Shutdown()
	common.PrintShutdownBanner(application.Logger)
}

func logEvents(application *app.App) {
	logger := application.Logger
	for ev := range application.Scheduler.Events() {
		switch ev.Type {
		case scheduler.EventStarted:
			logger.Info().Str("cycle_id", ev.CycleID).Str("trigger", string(ev.Trigger)).Msg("Refresh started")
		case scheduler.EventCompleted:
			logger.Info().
				Str("cycle_id", ev.CycleID).
				Int("succeeded", ev.Result.Succeeded).
				Int("failed", ev.Result.Failed).
				Msg("Refresh completed")
		case scheduler.EventFailed:
			logger.Error().Err(ev.Err).Str("cycle_id", ev.CycleID).Msg("Refresh failed")
		case scheduler.EventSkipped:
			logger.Warn().Str("trigger", string(ev.Trigger)).Msg("Refresh skipped, cycle already in flight")
		}
	}
}
