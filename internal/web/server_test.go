package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/ledger"
	"github.com/mailsift/mailsift/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *ledger.CSVLedger, *stats.Manager) {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	l := ledger.NewCSVLedger(filepath.Join(dir, "senders.csv"), logger)
	m := stats.NewManager(filepath.Join(dir, "stats.json"), logger)
	return NewServer(":0", 10, l, m, logger, false), l, m
}

func seedLedger(t *testing.T, l *ledger.CSVLedger) {
	t.Helper()
	require.NoError(t, l.Save(context.Background(), core.SenderMap{
		"alice@example.com": {
			Address:        "alice@example.com",
			LastContact:    time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			MessageCount:   3,
			AdCount:        2,
			UnsubscribeURL: "https://shop.example/unsub",
		},
		"bob@example.com": {
			Address:      "bob@example.com",
			LastContact:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			MessageCount: 1,
		},
	}))
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStatsReflectsLedger(t *testing.T) {
	s, l, m := newTestServer(t)
	seedLedger(t, l)
	require.NoError(t, m.Write(context.Background(), &stats.Stats{
		LastRun:   time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		LastRunID: "run-9",
	}))

	w := get(t, s, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var got stats.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(4), got.TotalMessagesProcessed)
	assert.Equal(t, int64(2), got.TotalAdvertisements)
	assert.Equal(t, 2, got.UniqueSenders)
	assert.InDelta(t, 0.5, got.AdvertisementRate, 1e-9)
	assert.Equal(t, "run-9", got.LastRunID)
}

func TestStatsWithNoFilesIsZeroes(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var got stats.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Zero(t, got.TotalMessagesProcessed)
	assert.Zero(t, got.UniqueSenders)
}

func TestSendersOrderedByMessageCount(t *testing.T) {
	s, l, _ := newTestServer(t)
	seedLedger(t, l)

	w := get(t, s, "/api/senders")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Senders []senderView `json:"senders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Senders, 2)
	assert.Equal(t, "alice@example.com", got.Senders[0].Address)
	assert.Equal(t, "2024-03-05", got.Senders[0].LastContact)
	assert.Equal(t, int64(2), got.Senders[0].AdCount)
	assert.Equal(t, "bob@example.com", got.Senders[1].Address)
}

func TestSendersLimit(t *testing.T) {
	s, l, _ := newTestServer(t)
	seedLedger(t, l)

	w := get(t, s, "/api/senders?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Senders []senderView `json:"senders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Senders, 1)
	assert.Equal(t, "alice@example.com", got.Senders[0].Address)
}

func TestSendersRejectsBadLimit(t *testing.T) {
	s, _, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/senders?limit=zero").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/senders?limit=-3").Code)
}

func TestDashboardRenders(t *testing.T) {
	s, l, _ := newTestServer(t)
	seedLedger(t, l)

	w := get(t, s, "/")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "alice@example.com")
	assert.Contains(t, body, "2024-03-05")
	assert.Contains(t, body, "advertisements")
}

func TestDashboardRendersWithNoData(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No senders recorded yet")
}
