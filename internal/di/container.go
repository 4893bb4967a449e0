package di

import (
	"context"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/factory"
	"github.com/mailsift/mailsift/internal/ledger"
	"github.com/mailsift/mailsift/internal/logging"
	"github.com/mailsift/mailsift/internal/parser"
	"github.com/mailsift/mailsift/internal/pipeline"
	"github.com/mailsift/mailsift/internal/ports"
	"github.com/mailsift/mailsift/internal/runstate"
	"github.com/mailsift/mailsift/internal/stats"
	"github.com/mailsift/mailsift/internal/trusted"
	"github.com/mailsift/mailsift/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
// for the pipeline application
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register classifier backend
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register verdict cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.VerdictCache, error) {
		return f.CreateVerdictCache()
	}); err != nil {
		return nil, err
	}

	// Register cache TTL and enabled flag
	if err := container.Provide(func(f *factory.CacheFactory) (time.Duration, error) {
		return f.GetCacheTTL()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) bool {
		return f.IsCacheEnabled()
	}); err != nil {
		return nil, err
	}

	// Register trusted-sender checker
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.TrustedChecker {
		return trusted.NewChecker(cfg.GetStringSlice("trusted.domains"), logger)
	}); err != nil {
		return nil, err
	}

	// Register advertisement threshold
	if err := container.Provide(func(cfg *config.Config) float64 {
		return cfg.GetClassifier().AdThreshold
	}); err != nil {
		return nil, err
	}

	// Register classification service
	if err := container.Provide(core.NewClassificationService); err != nil {
		return nil, err
	}

	// Register message parser
	if err := container.Provide(parser.New); err != nil {
		return nil, err
	}

	// Register ledger
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) ports.Ledger {
		return ledger.NewCSVLedger(cfg.GetLedger().Path, logger)
	}); err != nil {
		return nil, err
	}

	// Register run state store
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) ports.RunStateStore {
		return runstate.NewFileStore(cfg.GetRunState().Path, logger)
	}); err != nil {
		return nil, err
	}

	// Register stats manager
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *stats.Manager {
		return stats.NewManager(cfg.GetStats().Path, logger)
	}); err != nil {
		return nil, err
	}

	// Register per-run source construction
	if err := container.Provide(func(f *factory.SourceFactory) pipeline.SourceFactory {
		return func(ctx context.Context, state *ports.RunState) (ports.MessageSource, error) {
			return f.CreateSource(state)
		}
	}); err != nil {
		return nil, err
	}

	// Register pipeline runner
	if err := container.Provide(func(
		newSource pipeline.SourceFactory,
		msgParser *parser.Parser,
		service *core.ClassificationService,
		l ports.Ledger,
		stateStore ports.RunStateStore,
		statsManager *stats.Manager,
		logger *zap.Logger,
		cfg *config.Config,
	) *pipeline.Runner {
		return pipeline.NewRunner(
			newSource,
			msgParser,
			service,
			l,
			stateStore,
			statsManager,
			logger,
			cfg.GetLedger().Merge,
			cfg.GetRunState().Enabled,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
