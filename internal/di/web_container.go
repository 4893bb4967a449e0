package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/ledger"
	"github.com/mailsift/mailsift/internal/logging"
	"github.com/mailsift/mailsift/internal/ports"
	"github.com/mailsift/mailsift/internal/stats"
	"github.com/mailsift/mailsift/internal/web"
)

// BuildWebContainer creates and configures a dependency injection
// container for the dashboard server
func BuildWebContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(cfg *config.Config) (*zap.Logger, error) {
		return logging.InitLogger(cfg)
	}); err != nil {
		return nil, err
	}

	// Register sender ledger
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) ports.Ledger {
		return ledger.NewCSVLedger(cfg.GetLedger().Path, logger)
	}); err != nil {
		return nil, err
	}

	// Register stats manager
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *stats.Manager {
		return stats.NewManager(cfg.GetStats().Path, logger)
	}); err != nil {
		return nil, err
	}

	// Register web server
	if err := container.Provide(func(
		cfg *config.Config,
		senderLedger ports.Ledger,
		statsManager *stats.Manager,
		logger *zap.Logger,
	) *web.Server {
		webCfg := cfg.GetWeb()
		debug := cfg.GetString("logging.level") == "debug"
		return web.NewServer(webCfg.ListenAddress, webCfg.TopSenders, senderLedger, statsManager, logger, debug)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
