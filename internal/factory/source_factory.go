package factory

import (
	"fmt"

	"github.com/mailsift/mailsift/internal/adapters/eml"
	"github.com/mailsift/mailsift/internal/adapters/imap"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/ports"
	"go.uber.org/zap"
)

// SourceFactory creates message sources based on configuration
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSource creates a message source for one run. state carries the
// previous run's position and may be nil.
func (f *SourceFactory) CreateSource(state *ports.RunState) (ports.MessageSource, error) {
	sourceType := f.cfg.GetSource().Type

	switch sourceType {
	case "imap":
		imapCfg := f.cfg.GetIMAP()
		if imapCfg.Host == "" {
			return nil, fmt.Errorf("imap host is required")
		}
		if imapCfg.Username == "" {
			return nil, fmt.Errorf("imap username is required")
		}
		return imap.NewSource(
			imapCfg.Host,
			imapCfg.Port,
			imapCfg.Username,
			imapCfg.Password,
			imapCfg.Mailbox,
			imapCfg.UseStartTLS,
			state,
			f.logger,
		), nil

	case "eml":
		emlCfg := f.cfg.GetEML()
		if emlCfg.Dir == "" {
			return nil, fmt.Errorf("eml directory is required")
		}
		return eml.NewSource(emlCfg.Dir, f.logger), nil

	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
