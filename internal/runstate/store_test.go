package runstate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mailsift/mailsift/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadMissingFileIsNil(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "runstate.json"), zap.NewNop())

	state, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "runstate.json"), zap.NewNop())

	saved := &ports.RunState{
		Mailbox:     "INBOX",
		UIDValidity: 12345,
		LastUID:     678,
		UpdatedAt:   time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(context.Background(), saved))

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "INBOX", loaded.Mailbox)
	assert.Equal(t, uint32(12345), loaded.UIDValidity)
	assert.Equal(t, uint32(678), loaded.LastUID)
	assert.True(t, loaded.UpdatedAt.Equal(saved.UpdatedAt))
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runstate.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewFileStore(path, zap.NewNop())
	_, err := s.Load(context.Background())
	require.Error(t, err)
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "runstate.json")
	s := NewFileStore(path, zap.NewNop())

	require.NoError(t, s.Save(context.Background(), &ports.RunState{Mailbox: "INBOX", LastUID: 1}))

	_, err := os.Stat(path)
	require.NoError(t, err)
}
