package runstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mailsift/mailsift/internal/ports"
	"go.uber.org/zap"
)

// FileStore persists run state as a small JSON file next to the ledger.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a new FileStore
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the stored run state. A missing file returns nil: the next
// run processes everything. A corrupt file is an error rather than a
// silent full reprocess, because reprocessing double-counts messages.
func (s *FileStore) Load(ctx context.Context) (*ports.RunState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading run state %s: %w", s.path, err)
	}

	var state ports.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing run state %s (delete the file to reprocess everything): %w", s.path, err)
	}

	s.logger.Debug("Loaded run state",
		zap.String("mailbox", state.Mailbox),
		zap.Uint32("uid_validity", state.UIDValidity),
		zap.Uint32("last_uid", state.LastUID))

	return &state, nil
}

// Save writes the state atomically.
func (s *FileStore) Save(ctx context.Context, state *ports.RunState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating run state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating run state temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing run state %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing run state temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing run state %s: %w", s.path, err)
	}

	s.logger.Debug("Saved run state",
		zap.String("mailbox", state.Mailbox),
		zap.Uint32("last_uid", state.LastUID))

	return nil
}
