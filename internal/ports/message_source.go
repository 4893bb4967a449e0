package ports

import (
	"context"
)

// MessageRef identifies one message on a source. ID is stable across
// runs for the same mailbox; Ord is a monotone ordering key used for
// last-processed tracking.
type MessageRef struct {
	ID  string
	Ord uint64
}

// MessageSource defines the interface for retrieving raw messages from a
// mailbox. Sources are read-only: fetching never marks, flags, or
// deletes anything on the server.
type MessageSource interface {
	// Connect establishes the session. A connection or authentication
	// failure here is fatal to the run.
	Connect(ctx context.Context) error

	// List enumerates the available messages in processing order.
	List(ctx context.Context) ([]MessageRef, error)

	// Fetch returns the raw bytes of one message. A fetch failure is
	// recoverable: the caller skips the message and continues.
	Fetch(ctx context.Context, ref MessageRef) ([]byte, error)

	// Close releases the session.
	Close() error
}
