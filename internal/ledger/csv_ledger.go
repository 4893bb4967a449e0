package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/mailsift/mailsift/internal/core"
	"go.uber.org/zap"
)

// dateLayout is the ISO 8601 calendar date used for last_contact_date.
const dateLayout = "2006-01-02"

var header = []string{
	"address",
	"last_contact_date",
	"message_count",
	"advertisement_count",
	"unsubscribe_url",
}

// CSVLedger persists the sender map as a CSV file, one row per sender,
// sorted by address. Saves go through a temp file and rename so a crash
// never leaves a partial ledger behind.
type CSVLedger struct {
	path   string
	logger *zap.Logger
}

// NewCSVLedger creates a new CSVLedger
func NewCSVLedger(path string, logger *zap.Logger) *CSVLedger {
	return &CSVLedger{path: path, logger: logger}
}

// Load reads the ledger file into a sender map. A missing file is an
// empty map. The unsubscribe_url column is optional so files written
// before it existed still load.
func (l *CSVLedger) Load(ctx context.Context) (core.SenderMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.SenderMap{}, nil
		}
		return nil, fmt.Errorf("opening ledger %s: %w", l.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	first, err := r.Read()
	if err == io.EOF {
		return core.SenderMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", l.path, err)
	}
	if err := validateHeader(first); err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", l.path, err)
	}

	records := core.SenderMap{}
	for row := 2; ; row++ {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ledger %s row %d: %w", l.path, row, err)
		}

		rec, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("reading ledger %s row %d: %w", l.path, row, err)
		}
		if _, exists := records[rec.Address]; exists {
			return nil, fmt.Errorf("reading ledger %s row %d: duplicate address %s", l.path, row, rec.Address)
		}
		records[rec.Address] = rec
	}

	l.logger.Debug("Loaded ledger",
		zap.String("path", l.path),
		zap.Int("senders", len(records)))

	return records, nil
}

// Save writes the sender map sorted by address. The write is atomic:
// temp file in the same directory, fsync, rename.
func (l *CSVLedger) Save(ctx context.Context, records core.SenderMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating ledger temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := writeRecords(tmp, records); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing ledger %s: %w", l.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing ledger %s: %w", l.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing ledger temp file: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing ledger %s: %w", l.path, err)
	}

	l.logger.Info("Saved ledger",
		zap.String("path", l.path),
		zap.Int("senders", len(records)))

	return nil
}

func validateHeader(fields []string) error {
	if len(fields) < 4 || len(fields) > len(header) {
		return fmt.Errorf("unexpected header with %d columns", len(fields))
	}
	for i, field := range fields {
		if field != header[i] {
			return fmt.Errorf("unexpected header column %q, want %q", field, header[i])
		}
	}
	return nil
}

func parseRow(fields []string) (*core.SenderRecord, error) {
	if len(fields) < 4 {
		return nil, fmt.Errorf("expected at least 4 fields, got %d", len(fields))
	}

	address := fields[0]
	if address == "" {
		return nil, errors.New("empty address")
	}

	lastContact, err := time.Parse(dateLayout, fields[1])
	if err != nil {
		return nil, fmt.Errorf("invalid last_contact_date %q: %w", fields[1], err)
	}

	messageCount, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || messageCount < 0 {
		return nil, fmt.Errorf("invalid message_count %q", fields[2])
	}

	adCount, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil || adCount < 0 {
		return nil, fmt.Errorf("invalid advertisement_count %q", fields[3])
	}
	if adCount > messageCount {
		return nil, fmt.Errorf("advertisement_count %d exceeds message_count %d", adCount, messageCount)
	}

	rec := &core.SenderRecord{
		Address:      address,
		LastContact:  lastContact,
		MessageCount: messageCount,
		AdCount:      adCount,
	}
	if len(fields) > 4 {
		rec.UnsubscribeURL = fields[4]
	}
	return rec, nil
}

func writeRecords(f *os.File, records core.SenderMap) error {
	w := csv.NewWriter(f)

	if err := w.Write(header); err != nil {
		return err
	}

	addresses := make([]string, 0, len(records))
	for address := range records {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	for _, address := range addresses {
		rec := records[address]
		row := []string{
			rec.Address,
			rec.LastContact.Format(dateLayout),
			strconv.FormatInt(rec.MessageCount, 10),
			strconv.FormatInt(rec.AdCount, 10),
			rec.UnsubscribeURL,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
