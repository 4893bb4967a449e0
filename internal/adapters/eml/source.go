package eml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mailsift/mailsift/internal/ports"
	"go.uber.org/zap"
)

// Source reads messages from a directory of .eml files, in lexicographic
// filename order. It serves offline runs against exported mail.
type Source struct {
	dir    string
	logger *zap.Logger
}

// NewSource creates a new directory source
func NewSource(dir string, logger *zap.Logger) *Source {
	return &Source{dir: dir, logger: logger}
}

// Connect verifies the directory exists. A missing or unreadable
// directory is fatal to the run.
func (s *Source) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("opening message directory %s: %w", s.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("opening message directory %s: not a directory", s.dir)
	}

	s.logger.Info("Using message directory", zap.String("dir", s.dir))
	return nil
}

// List returns one ref per .eml file, sorted by filename.
func (s *Source) List(ctx context.Context) ([]ports.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing message directory %s: %w", s.dir, err)
	}

	var refs []ports.MessageRef
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".eml") {
			continue
		}
		refs = append(refs, ports.MessageRef{
			ID:  entry.Name(),
			Ord: uint64(len(refs) + 1),
		})
	}

	s.logger.Info("Listed message directory",
		zap.String("dir", s.dir),
		zap.Int("messages", len(refs)))

	return refs, nil
}

// Fetch reads one file.
func (s *Source) Fetch(ctx context.Context, ref ports.MessageRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, ref.ID))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref.ID, err)
	}
	return raw, nil
}

// Close is a no-op for the directory source.
func (s *Source) Close() error {
	return nil
}
