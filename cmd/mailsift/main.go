package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/di"
	"github.com/mailsift/mailsift/internal/pipeline"
)

func main() {
	_ = godotenv.Load() // Pick up a local .env file when present

	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(logger *zap.Logger, cfg *config.Config, runner *pipeline.Runner) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watchCfg := cfg.GetWatch()
	if !watchCfg.Enabled {
		// One batch, then exit. Skipped messages are reported in the
		// summary and do not fail the run.
		_, err := runner.Run(ctx)
		return err
	}

	// Watch mode: run a batch now, then keep rerunning on the
	// configured schedule until a signal arrives.
	if _, err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Run failed", zap.Error(err))
	}

	watcher := pipeline.NewWatcher(runner, watchCfg.Schedule, logger)
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down...")
	watcher.Stop()
	logger.Info("Shutdown complete")
	return nil
}
