package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/mailsift/mailsift/internal/adapters/keyword"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/ledger"
	"github.com/mailsift/mailsift/internal/parser"
	"github.com/mailsift/mailsift/internal/ports"
	"github.com/mailsift/mailsift/internal/runstate"
	"github.com/mailsift/mailsift/internal/stats"
	"github.com/mailsift/mailsift/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	refs       []ports.MessageRef
	messages   map[string][]byte
	fetchErrs  map[string]error
	connectErr error
	closed     bool
}

func (s *fakeSource) Connect(ctx context.Context) error { return s.connectErr }

func (s *fakeSource) List(ctx context.Context) ([]ports.MessageRef, error) {
	return s.refs, nil
}

func (s *fakeSource) Fetch(ctx context.Context, ref ports.MessageRef) ([]byte, error) {
	if err, ok := s.fetchErrs[ref.ID]; ok {
		return nil, err
	}
	raw, ok := s.messages[ref.ID]
	if !ok {
		return nil, fmt.Errorf("no such message %s", ref.ID)
	}
	return raw, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSource) Checkpoint(lastOrd uint64) *ports.RunState {
	return &ports.RunState{
		Mailbox:     "FAKE",
		UIDValidity: 1,
		LastUID:     uint32(lastOrd),
		UpdatedAt:   time.Now().UTC(),
	}
}

func rawMessage(from, date, subject, body string) []byte {
	return []byte(strings.Join([]string{
		"From: " + from,
		"Date: " + date,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n"))
}

// Two or more keyword indicators label a message advertisement under
// the default threshold.
func adBody() string {
	return "Limited time offer! Huge discount on everything. Buy now."
}

func personalBody() string {
	return "Are we still on for lunch tomorrow around noon?"
}

func newFakeSource(messages map[string][]byte) *fakeSource {
	src := &fakeSource{
		messages:  messages,
		fetchErrs: map[string]error{},
	}
	ids := make([]string, 0, len(messages))
	for id := range messages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, id := range ids {
		src.refs = append(src.refs, ports.MessageRef{ID: id, Ord: uint64(i + 1)})
	}
	return src
}

type testEnv struct {
	runner     *Runner
	ledgerPath string
	statePath  string
	statsPath  string
}

func newTestEnv(t *testing.T, src ports.MessageSource, merge, stateEnabled bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	classifier := keyword.NewClassifier(nil, 2, 4096, logger, utils.NewTextProcessor(logger))
	service := core.NewClassificationService(classifier, nil, logger, false, 0, 0.7, nil)

	env := &testEnv{
		ledgerPath: filepath.Join(dir, "senders.csv"),
		statePath:  filepath.Join(dir, "runstate.json"),
		statsPath:  filepath.Join(dir, "stats.json"),
	}

	factory := func(ctx context.Context, state *ports.RunState) (ports.MessageSource, error) {
		return src, nil
	}

	env.runner = NewRunner(
		factory,
		parser.New(logger),
		service,
		ledger.NewCSVLedger(env.ledgerPath, logger),
		runstate.NewFileStore(env.statePath, logger),
		stats.NewManager(env.statsPath, logger),
		logger,
		merge,
		stateEnabled,
	)
	env.runner.retryPause = time.Millisecond
	return env
}

func scenarioSource() *fakeSource {
	return newFakeSource(map[string][]byte{
		"m1": rawMessage("Alice Example <Alice@Example.com>", "Mon, 01 Jan 2024 10:00:00 +0000", "January deals", adBody()),
		"m2": rawMessage("bob@example.com", "Mon, 15 Jan 2024 08:00:00 +0000", "Meeting notes", personalBody()),
		"m3": rawMessage("Alice@Example.com", "Sat, 10 Feb 2024 12:00:00 +0000", "February deals", adBody()),
		"m4": rawMessage("alice@example.com", "Tue, 05 Mar 2024 09:00:00 +0000", "Quick question", personalBody()),
	})
}

func TestRunAggregatesMixedSenders(t *testing.T) {
	src := scenarioSource()
	env := newTestEnv(t, src, true, false)

	summary, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Processed)
	assert.Zero(t, summary.SkippedFetch)
	assert.Zero(t, summary.SkippedParse)
	assert.Zero(t, summary.ClassifiedUnknown)
	assert.Equal(t, 2, summary.Senders)
	assert.True(t, src.closed)

	content, err := os.ReadFile(env.ledgerPath)
	require.NoError(t, err)

	want := "address,last_contact_date,message_count,advertisement_count,unsubscribe_url\n" +
		"alice@example.com,2024-03-05,3,2,\n" +
		"bob@example.com,2024-01-15,1,0,\n"
	assert.Equal(t, want, string(content))
}

func TestRunSkipsFetchFailures(t *testing.T) {
	src := scenarioSource()
	src.fetchErrs["m2"] = errors.New("server dropped the connection")
	env := newTestEnv(t, src, true, false)

	summary, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.SkippedFetch)

	content, err := os.ReadFile(env.ledgerPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "bob@example.com")
	assert.Contains(t, string(content), "alice@example.com,2024-03-05,3,2")
}

func TestRunSkipsMalformedMessages(t *testing.T) {
	src := scenarioSource()
	src.messages["m2"] = []byte("this is not a mail message at all")
	env := newTestEnv(t, src, true, false)

	summary, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.SkippedParse)

	content, err := os.ReadFile(env.ledgerPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "bob@example.com")
}

func TestRunEmptyBodyCountsUnknown(t *testing.T) {
	src := newFakeSource(map[string][]byte{
		"m1": rawMessage("alice@example.com", "Mon, 01 Jan 2024 10:00:00 +0000", "Empty", ""),
	})
	env := newTestEnv(t, src, true, false)

	summary, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.ClassifiedUnknown)

	content, err := os.ReadFile(env.ledgerPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "alice@example.com,2024-01-01,1,0")
}

func TestRunConnectFailureIsFatal(t *testing.T) {
	src := scenarioSource()
	src.connectErr = errors.New("connection refused")
	env := newTestEnv(t, src, true, false)

	_, err := env.runner.Run(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(env.ledgerPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMergesPriorLedger(t *testing.T) {
	src := newFakeSource(map[string][]byte{
		"m1": rawMessage("alice@example.com", "Tue, 05 Mar 2024 09:00:00 +0000", "Deals", adBody()),
	})
	env := newTestEnv(t, src, true, false)

	prior := "address,last_contact_date,message_count,advertisement_count,unsubscribe_url\n" +
		"alice@example.com,2023-12-01,2,1,\n" +
		"carol@example.com,2023-11-20,1,0,\n"
	require.NoError(t, os.WriteFile(env.ledgerPath, []byte(prior), 0o644))

	_, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	content, err := os.ReadFile(env.ledgerPath)
	require.NoError(t, err)

	want := "address,last_contact_date,message_count,advertisement_count,unsubscribe_url\n" +
		"alice@example.com,2024-03-05,3,2,\n" +
		"carol@example.com,2023-11-20,1,0,\n"
	assert.Equal(t, want, string(content))
}

func TestRunMergeDisabledStartsFresh(t *testing.T) {
	src := newFakeSource(map[string][]byte{
		"m1": rawMessage("alice@example.com", "Tue, 05 Mar 2024 09:00:00 +0000", "Deals", adBody()),
	})
	env := newTestEnv(t, src, false, false)

	prior := "address,last_contact_date,message_count,advertisement_count,unsubscribe_url\n" +
		"carol@example.com,2023-11-20,1,0,\n"
	require.NoError(t, os.WriteFile(env.ledgerPath, []byte(prior), 0o644))

	_, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	content, err := os.ReadFile(env.ledgerPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "carol@example.com")
	assert.Contains(t, string(content), "alice@example.com,2024-03-05,1,1")
}

func TestRunAdvancesRunState(t *testing.T) {
	src := scenarioSource()
	env := newTestEnv(t, src, true, true)

	_, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	store := runstate.NewFileStore(env.statePath, zap.NewNop())
	state, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "FAKE", state.Mailbox)
	assert.Equal(t, uint32(4), state.LastUID)
}

func TestRunStateDisabledWritesNothing(t *testing.T) {
	src := scenarioSource()
	env := newTestEnv(t, src, true, false)

	_, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(env.statePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunWritesStatsFile(t *testing.T) {
	src := scenarioSource()
	env := newTestEnv(t, src, true, false)

	summary, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	s, err := stats.NewManager(env.statsPath, zap.NewNop()).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), s.TotalMessagesProcessed)
	assert.Equal(t, int64(2), s.TotalAdvertisements)
	assert.Equal(t, 2, s.UniqueSenders)
	assert.InDelta(t, 0.5, s.AdvertisementRate, 1e-9)
	assert.Equal(t, summary.RunID, s.LastRunID)
}

type flakyLedger struct {
	inner    ports.Ledger
	failures int
	saves    int
}

func (l *flakyLedger) Load(ctx context.Context) (core.SenderMap, error) {
	return l.inner.Load(ctx)
}

func (l *flakyLedger) Save(ctx context.Context, records core.SenderMap) error {
	l.saves++
	if l.saves <= l.failures {
		return errors.New("disk full")
	}
	return l.inner.Save(ctx, records)
}

func TestRunRetriesLedgerSaveOnce(t *testing.T) {
	src := scenarioSource()
	env := newTestEnv(t, src, true, false)

	flaky := &flakyLedger{
		inner:    ledger.NewCSVLedger(env.ledgerPath, zap.NewNop()),
		failures: 1,
	}
	env.runner.ledger = flaky

	_, err := env.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flaky.saves)

	_, statErr := os.Stat(env.ledgerPath)
	require.NoError(t, statErr)
}

func TestRunFailsWhenLedgerSaveKeepsFailing(t *testing.T) {
	src := scenarioSource()
	env := newTestEnv(t, src, true, false)

	flaky := &flakyLedger{
		inner:    ledger.NewCSVLedger(env.ledgerPath, zap.NewNop()),
		failures: 2,
	}
	env.runner.ledger = flaky

	_, err := env.runner.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, flaky.saves)
}

func TestRunCancelledBeforeAnyWorkWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := scenarioSource()
	env := newTestEnv(t, src, true, true)

	_, err := env.runner.Run(ctx)
	require.Error(t, err)

	// Nothing was processed, so there is nothing to persist.
	_, ledgerErr := os.Stat(env.ledgerPath)
	assert.True(t, os.IsNotExist(ledgerErr))
	_, stateErr := os.Stat(env.statePath)
	assert.True(t, os.IsNotExist(stateErr))
}

// cancellingSource cancels the run context after a fixed number of
// fetches, like a signal landing mid-batch.
type cancellingSource struct {
	*fakeSource
	cancel      context.CancelFunc
	cancelAfter int
	fetches     int
}

func (s *cancellingSource) Fetch(ctx context.Context, ref ports.MessageRef) ([]byte, error) {
	raw, err := s.fakeSource.Fetch(ctx, ref)
	s.fetches++
	if s.fetches == s.cancelAfter {
		s.cancel()
	}
	return raw, err
}

func TestRunCancelledMidBatchPersistsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel lands during the third fetch, so the first two messages
	// finish and the rest of the batch is abandoned.
	src := &cancellingSource{fakeSource: scenarioSource(), cancel: cancel, cancelAfter: 3}
	env := newTestEnv(t, src, true, true)

	summary, err := env.runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)

	// The two processed messages are saved and checkpointed; the rest
	// of the batch is left for the next run.
	content, readErr := os.ReadFile(env.ledgerPath)
	require.NoError(t, readErr)
	want := "address,last_contact_date,message_count,advertisement_count,unsubscribe_url\n" +
		"alice@example.com,2024-01-01,1,1,\n" +
		"bob@example.com,2024-01-15,1,0,\n"
	assert.Equal(t, want, string(content))

	state, stateErr := runstate.NewFileStore(env.statePath, zap.NewNop()).Load(context.Background())
	require.NoError(t, stateErr)
	require.NotNil(t, state)
	assert.Equal(t, uint32(2), state.LastUID)
}
