package ports

import (
	"context"
	"time"
)

// RunState records how far a mailbox has been processed. UIDs at or
// below LastUID under the same UIDValidity are excluded from the next
// run, which is what makes re-running the pipeline idempotent over
// already-counted messages. A changed UIDValidity invalidates the state.
type RunState struct {
	Mailbox     string    `json:"mailbox"`
	UIDValidity uint32    `json:"uid_validity"`
	LastUID     uint32    `json:"last_uid"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RunStateStore defines the interface for persisting run state
type RunStateStore interface {
	// Load reads the stored state. A missing file yields nil, not an
	// error.
	Load(ctx context.Context) (*RunState, error)

	// Save persists the state.
	Save(ctx context.Context, state *RunState) error
}

// Checkpointer is implemented by message sources that support run-state
// tracking. Checkpoint reports the state to persist after a run whose
// highest successfully processed ordering key is lastOrd.
type Checkpointer interface {
	Checkpoint(lastOrd uint64) *RunState
}
