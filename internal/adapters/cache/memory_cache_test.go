package cache

import (
	"context"
	"testing"
	"time"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	t.Cleanup(c.Stop)
	return c
}

func entryFor(sender string, ttl time.Duration) *core.VerdictEntry {
	now := time.Now()
	return &core.VerdictEntry{
		SenderAddress: sender,
		Label:         core.LabelAdvertisement,
		Score:         0.9,
		Confidence:    0.8,
		LastSeen:      now,
		ExpiresAt:     now.Add(ttl),
	}
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, entryFor("a@example.com", time.Hour)))

	got, err := c.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, core.LabelAdvertisement, got.Label)
	assert.Equal(t, 0.9, got.Score)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, entryFor("b@example.com", -time.Minute)))

	_, err := c.Get(ctx, "b@example.com")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, entryFor("c@example.com", time.Hour)))
	require.NoError(t, c.Delete(ctx, "c@example.com"))

	_, err := c.Get(ctx, "c@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCacheCleanup(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, entryFor("keep@example.com", time.Hour)))
	require.NoError(t, c.Set(ctx, entryFor("drop@example.com", -time.Minute)))

	require.NoError(t, c.Cleanup(ctx))

	_, err := c.Get(ctx, "keep@example.com")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "drop@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
