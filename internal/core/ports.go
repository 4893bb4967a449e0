package core

import (
	"context"
)

// Classifier defines the interface for text-classification backends
type Classifier interface {
	// ClassifyMessage scores a message for advertisement content
	ClassifyMessage(ctx context.Context, msg *MessageRecord) (*ClassificationResult, error)
}

// TrustedChecker reports whether a sender address belongs to a domain
// the operator vouches for. Trusted senders bypass classification.
type TrustedChecker interface {
	IsTrusted(address string) bool
}

// VerdictCache defines the interface for caching per-sender verdicts
type VerdictCache interface {
	// Get retrieves a cached verdict for a sender
	Get(ctx context.Context, senderAddress string) (*VerdictEntry, error)

	// Set stores a verdict entry
	Set(ctx context.Context, entry *VerdictEntry) error

	// Delete removes a verdict entry
	Delete(ctx context.Context, senderAddress string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
