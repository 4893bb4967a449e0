package pipeline

import (
	"context"
	"fmt"

	cronv3 "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Watcher reruns the pipeline on a cron schedule instead of exiting
// after one batch. Batches never overlap: a tick that fires while a
// batch is still running is skipped.
type Watcher struct {
	runner   *Runner
	schedule string
	logger   *zap.Logger
	cron     *cronv3.Cron
}

// NewWatcher creates a watcher around an existing runner. schedule
// accepts the usual five-field cron specs plus descriptors like
// "@every 10m".
func NewWatcher(runner *Runner, schedule string, logger *zap.Logger) *Watcher {
	return &Watcher{
		runner:   runner,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the batch job and starts the scheduler. The context
// is handed to each batch: cancelling it makes a running batch finish
// early and persist what it has.
func (w *Watcher) Start(ctx context.Context) error {
	c := cronv3.New(cronv3.WithChain(
		cronv3.SkipIfStillRunning(cronLogger{w.logger.Sugar()}),
		cronv3.Recover(cronLogger{w.logger.Sugar()}),
	))

	if _, err := c.AddFunc(w.schedule, func() {
		if _, err := w.runner.Run(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("Scheduled run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("registering schedule %q: %w", w.schedule, err)
	}

	c.Start()
	w.cron = c
	w.logger.Info("Watching for new messages", zap.String("schedule", w.schedule))
	return nil
}

// Stop stops the scheduler and waits for an in-flight batch to finish.
func (w *Watcher) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
}

// cronLogger adapts zap to the scheduler's logger interface. Ticks
// skipped because the previous batch is still running surface as
// warnings.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
