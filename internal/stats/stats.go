package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mailsift/mailsift/internal/core"
	"go.uber.org/zap"
)

// RunSummaryStats is the per-run slice of the stats file.
type RunSummaryStats struct {
	Processed         int `json:"processed"`
	SkippedFetch      int `json:"skipped_fetch"`
	SkippedParse      int `json:"skipped_parse"`
	ClassifiedUnknown int `json:"classified_unknown"`
}

// Stats is the aggregate stats file written after each run and read by
// the web view. Totals reflect the full sender map, so with ledger
// merging on they are cumulative across runs.
type Stats struct {
	TotalMessagesProcessed int64           `json:"total_messages_processed"`
	TotalAdvertisements    int64           `json:"total_advertisements"`
	UniqueSenders          int             `json:"unique_senders"`
	AdvertisementRate      float64         `json:"advertisement_rate"`
	LastRun                time.Time       `json:"last_run"`
	LastRunID              string          `json:"last_run_id"`
	LastSummary            RunSummaryStats `json:"last_summary"`
}

// Manager reads and writes the stats file.
type Manager struct {
	path   string
	logger *zap.Logger
}

// NewManager creates a new Manager
func NewManager(path string, logger *zap.Logger) *Manager {
	return &Manager{path: path, logger: logger}
}

// Build computes the stats for a finished run.
func Build(records core.SenderMap, summary *core.RunSummary) *Stats {
	totalMessages := records.TotalMessages()
	totalAds := records.TotalAds()

	rate := 0.0
	if totalMessages > 0 {
		rate = float64(totalAds) / float64(totalMessages)
	}

	return &Stats{
		TotalMessagesProcessed: totalMessages,
		TotalAdvertisements:    totalAds,
		UniqueSenders:          len(records),
		AdvertisementRate:      rate,
		LastRun:                summary.FinishedAt,
		LastRunID:              summary.RunID,
		LastSummary: RunSummaryStats{
			Processed:         summary.Processed,
			SkippedFetch:      summary.SkippedFetch,
			SkippedParse:      summary.SkippedParse,
			ClassifiedUnknown: summary.ClassifiedUnknown,
		},
	}
}

// Write persists the stats atomically.
func (m *Manager) Write(ctx context.Context, s *Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating stats directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating stats temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing stats %s: %w", m.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing stats temp file: %w", err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing stats %s: %w", m.path, err)
	}

	m.logger.Debug("Saved stats", zap.String("path", m.path))
	return nil
}

// Read loads the stats file. A missing file is zero stats so the web
// view renders before the first run has happened.
func (m *Manager) Read(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Stats{}, nil
		}
		return nil, fmt.Errorf("reading stats %s: %w", m.path, err)
	}

	var s Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing stats %s: %w", m.path, err)
	}
	return &s, nil
}
