package imap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/mailsift/mailsift/internal/ports"
	"go.uber.org/zap"
)

// Source reads messages from an IMAP mailbox. All access is read-only:
// bodies are fetched with BODY.PEEK[] so no flags change and nothing is
// deleted on the server.
type Source struct {
	host        string
	port        int
	username    string
	password    string
	mailbox     string
	useStartTLS bool

	state  *ports.RunState
	logger *zap.Logger

	client      *imapclient.Client
	uidValidity uint32
	sinceUID    uint32
}

// NewSource creates a new IMAP source. state is the run state from the
// previous run and may be nil, in which case every message in the
// mailbox is listed.
func NewSource(
	host string,
	port int,
	username string,
	password string,
	mailbox string,
	useStartTLS bool,
	state *ports.RunState,
	logger *zap.Logger,
) *Source {
	return &Source{
		host:        host,
		port:        port,
		username:    username,
		password:    password,
		mailbox:     mailbox,
		useStartTLS: useStartTLS,
		state:       state,
		logger:      logger,
	}
}

// Connect dials the server, authenticates and selects the mailbox
// read-only. Any failure here is fatal to the run.
func (s *Source) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var client *imapclient.Client
	var err error
	if s.useStartTLS {
		client, err = imapclient.DialStartTLS(addr, nil)
	} else {
		client, err = imapclient.DialTLS(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("connecting to IMAP server %s: %w", addr, err)
	}

	if err := client.Login(s.username, s.password).Wait(); err != nil {
		_ = client.Close()
		return fmt.Errorf("authenticating as %s: %w", s.username, err)
	}

	selectData, err := client.Select(s.mailbox, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		_ = client.Logout().Wait()
		return fmt.Errorf("selecting mailbox %s: %w", s.mailbox, err)
	}

	s.client = client
	s.uidValidity = selectData.UIDValidity

	var reset bool
	s.sinceUID, reset = watermarkFor(s.state, s.mailbox, s.uidValidity)
	if reset {
		s.logger.Warn("Mailbox UIDVALIDITY changed, reprocessing from scratch",
			zap.Uint32("stored", s.state.UIDValidity),
			zap.Uint32("current", s.uidValidity))
	}

	s.logger.Info("Connected to IMAP server",
		zap.String("address", addr),
		zap.String("mailbox", s.mailbox),
		zap.Uint32("uid_validity", s.uidValidity),
		zap.Uint32("since_uid", s.sinceUID))

	return nil
}

// List enumerates the mailbox with UID SEARCH ALL and returns refs in
// ascending UID order, excluding UIDs already covered by the run state.
func (s *Source) List(ctx context.Context) ([]ports.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.client == nil {
		return nil, fmt.Errorf("listing mailbox %s: not connected", s.mailbox)
	}

	searchData, err := s.client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching mailbox %s: %w", s.mailbox, err)
	}

	uids := searchData.AllUIDs()
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	refs := make([]ports.MessageRef, 0, len(uids))
	for _, uid := range uids {
		if uint32(uid) <= s.sinceUID {
			continue
		}
		refs = append(refs, ports.MessageRef{
			ID:  fmt.Sprintf("%s:%d:%d", s.mailbox, s.uidValidity, uid),
			Ord: uint64(uid),
		})
	}

	s.logger.Info("Listed mailbox",
		zap.String("mailbox", s.mailbox),
		zap.Int("total", len(uids)),
		zap.Int("new", len(refs)))

	return refs, nil
}

// Fetch retrieves the full raw message for one ref with BODY.PEEK[].
func (s *Source) Fetch(ctx context.Context, ref ports.MessageRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.client == nil {
		return nil, fmt.Errorf("fetching %s: not connected", ref.ID)
	}

	uidSet := imap.UIDSetNum(imap.UID(ref.Ord))
	bodySection := &imap.FetchItemBodySection{Peek: true}

	fetchCmd := s.client.Fetch(uidSet, &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})

	msg := fetchCmd.Next()
	if msg == nil {
		_ = fetchCmd.Close()
		return nil, fmt.Errorf("fetching %s: message not found", ref.ID)
	}

	buf, err := msg.Collect()
	if err != nil {
		_ = fetchCmd.Close()
		return nil, fmt.Errorf("fetching %s: %w", ref.ID, err)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", ref.ID, err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("fetching %s: server returned no body", ref.ID)
	}

	return raw, nil
}

// watermarkFor returns the UID watermark at or below which messages
// are already processed. No stored state, state for another mailbox,
// or a changed UIDVALIDITY means no watermark; reset reports the last
// case so the caller can warn about it.
func watermarkFor(state *ports.RunState, mailbox string, uidValidity uint32) (sinceUID uint32, reset bool) {
	if state == nil || state.Mailbox != mailbox {
		return 0, false
	}
	if state.UIDValidity != uidValidity {
		return 0, true
	}
	return state.LastUID, false
}

// Checkpoint returns the run state to persist after a run that
// processed messages up to lastOrd.
func (s *Source) Checkpoint(lastOrd uint64) *ports.RunState {
	return &ports.RunState{
		Mailbox:     s.mailbox,
		UIDValidity: s.uidValidity,
		LastUID:     uint32(lastOrd),
		UpdatedAt:   time.Now().UTC(),
	}
}

// Close logs out from the server.
func (s *Source) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Logout().Wait()
	s.client = nil
	return err
}
