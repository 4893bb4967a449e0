package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/parser"
	"github.com/mailsift/mailsift/internal/ports"
	"github.com/mailsift/mailsift/internal/stats"
	"go.uber.org/zap"
)

// SourceFactory builds a fresh message source for one run. Sources are
// single-use: one connect, one batch, one close. state is the run state
// from the previous run and may be nil.
type SourceFactory func(ctx context.Context, state *ports.RunState) (ports.MessageSource, error)

// Runner drives one batch: list the mailbox, then fetch, parse,
// classify and aggregate each message in turn, single-threaded, and
// persist the ledger at the end.
//
// Failure handling is two-tiered. Connection, authentication and
// persistence failures abort the run. A fetch or parse failure on one
// message only skips that message; the skip is warned and counted in
// the run summary, and the process still exits zero.
type Runner struct {
	newSource    SourceFactory
	parser       *parser.Parser
	service      *core.ClassificationService
	ledger       ports.Ledger
	stateStore   ports.RunStateStore
	statsManager *stats.Manager
	logger       *zap.Logger

	merge        bool
	stateEnabled bool
	retryPause   time.Duration
}

// NewRunner creates a new pipeline runner. stateStore and statsManager
// may be nil when the corresponding file is disabled.
func NewRunner(
	newSource SourceFactory,
	msgParser *parser.Parser,
	service *core.ClassificationService,
	ledger ports.Ledger,
	stateStore ports.RunStateStore,
	statsManager *stats.Manager,
	logger *zap.Logger,
	merge bool,
	stateEnabled bool,
) *Runner {
	return &Runner{
		newSource:    newSource,
		parser:       msgParser,
		service:      service,
		ledger:       ledger,
		stateStore:   stateStore,
		statsManager: statsManager,
		logger:       logger,
		merge:        merge,
		stateEnabled: stateEnabled,
		retryPause:   2 * time.Second,
	}
}

// Run executes one batch. The returned error means the run aborted
// before anything was persisted; per-message skips are not errors and
// are reported in the summary instead.
//
// The ledger and the run state advance together at the end of the
// batch, never mid-run, and cover exactly the messages processed in
// it. Cancellation ends the batch early but still persists it: the
// messages already classified are saved and checkpointed, the rest
// are left for the next run.
func (r *Runner) Run(ctx context.Context) (*core.RunSummary, error) {
	summary := &core.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := r.logger.With(zap.String("run_id", summary.RunID))

	var state *ports.RunState
	if r.stateEnabled && r.stateStore != nil {
		loaded, err := r.stateStore.Load(ctx)
		if err != nil {
			return summary, fmt.Errorf("loading run state: %w", err)
		}
		state = loaded
	}

	source, err := r.newSource(ctx, state)
	if err != nil {
		return summary, fmt.Errorf("building message source: %w", err)
	}

	if err := source.Connect(ctx); err != nil {
		return summary, fmt.Errorf("connecting to message source: %w", err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			logger.Warn("Error closing message source", zap.Error(err))
		}
	}()

	refs, err := source.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("listing messages: %w", err)
	}

	records := core.SenderMap{}
	if r.merge {
		records, err = r.ledger.Load(ctx)
		if err != nil {
			return summary, fmt.Errorf("loading ledger: %w", err)
		}
	}

	logger.Info("Starting run",
		zap.Int("messages", len(refs)),
		zap.Int("known_senders", len(records)))

	var lastOrd uint64
	interrupted := false
	for _, ref := range refs {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		raw, err := source.Fetch(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				interrupted = true
				break
			}
			logger.Warn("Skipping message that could not be fetched",
				zap.String("message_id", ref.ID),
				zap.Error(err))
			summary.SkippedFetch++
			continue
		}

		msg, err := r.parser.Parse(ref.ID, raw)
		if err != nil {
			var parseErr *parser.ParseError
			if !errors.As(err, &parseErr) {
				return summary, fmt.Errorf("parsing %s: %w", ref.ID, err)
			}
			logger.Warn("Skipping malformed message",
				zap.String("message_id", ref.ID),
				zap.Error(err))
			summary.SkippedParse++
			continue
		}

		res, err := r.service.Classify(ctx, msg)
		if err != nil {
			if ctx.Err() != nil {
				interrupted = true
				break
			}
			return summary, fmt.Errorf("classifying %s: %w", ref.ID, err)
		}

		records = core.Update(records, msg, res)
		summary.Processed++
		if res.Label == core.LabelUnknown {
			summary.ClassifiedUnknown++
		}
		if ref.Ord > lastOrd {
			lastOrd = ref.Ord
		}

		logger.Debug("Processed message",
			zap.String("message_id", ref.ID),
			zap.String("sender", msg.Address),
			zap.String("label", string(res.Label)),
			zap.Float64("score", res.Score))
	}

	if interrupted {
		if summary.Processed == 0 {
			logger.Warn("Run cancelled before any message was processed")
			return summary, ctx.Err()
		}
		logger.Warn("Run cancelled, persisting the partial batch",
			zap.Int("processed", summary.Processed),
			zap.Int("messages", len(refs)))
	}

	// The persistence phase is detached from cancellation: a partial
	// batch that did not land would be refetched and double-counted.
	saveCtx := context.WithoutCancel(ctx)

	if err := r.saveLedger(saveCtx, records); err != nil {
		return summary, err
	}

	r.checkpoint(saveCtx, logger, source, lastOrd)

	summary.FinishedAt = time.Now()
	summary.Senders = len(records)

	if r.statsManager != nil {
		if err := r.statsManager.Write(saveCtx, stats.Build(records, summary)); err != nil {
			logger.Warn("Failed to write stats file", zap.Error(err))
		}
	}

	logger.Info("Run complete",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped_fetch", summary.SkippedFetch),
		zap.Int("skipped_parse", summary.SkippedParse),
		zap.Int("classified_unknown", summary.ClassifiedUnknown),
		zap.Int("senders", summary.Senders),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)))

	return summary, nil
}

// saveLedger persists the sender map, retrying once after a short pause
// before giving up. Losing the batch's aggregation is the one failure
// the system must not shrug off.
func (r *Runner) saveLedger(ctx context.Context, records core.SenderMap) error {
	err := r.ledger.Save(ctx, records)
	if err == nil {
		return nil
	}

	r.logger.Warn("Ledger save failed, retrying",
		zap.Duration("pause", r.retryPause),
		zap.Error(err))

	time.Sleep(r.retryPause)

	if err := r.ledger.Save(ctx, records); err != nil {
		return fmt.Errorf("saving ledger (retried once): %w", err)
	}
	return nil
}

// checkpoint advances the run state when the source supports it. A
// checkpoint failure does not fail the run; the ledger is already safe,
// and failing here would just discard the batch's counts.
func (r *Runner) checkpoint(ctx context.Context, logger *zap.Logger, source ports.MessageSource, lastOrd uint64) {
	if !r.stateEnabled || r.stateStore == nil || lastOrd == 0 {
		return
	}
	cp, ok := source.(ports.Checkpointer)
	if !ok {
		return
	}

	state := cp.Checkpoint(lastOrd)
	if err := r.stateStore.Save(ctx, state); err != nil {
		logger.Error("Failed to save run state, the next run will reprocess this batch",
			zap.Error(err))
		return
	}

	logger.Debug("Saved run state",
		zap.String("mailbox", state.Mailbox),
		zap.Uint32("last_uid", state.LastUID))
}
