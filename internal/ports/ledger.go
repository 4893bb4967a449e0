package ports

import (
	"context"

	"github.com/mailsift/mailsift/internal/core"
)

// Ledger defines the interface for loading and persisting the sender map
type Ledger interface {
	// Load reads the persisted ledger. A missing file yields an empty
	// map, not an error.
	Load(ctx context.Context) (core.SenderMap, error)

	// Save persists the full ledger, replacing any prior contents.
	Save(ctx context.Context, records core.SenderMap) error
}
