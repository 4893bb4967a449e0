package parser

import (
	"strings"
	"time"
)

// Layouts tried when the standard MIME date parser gives up. Real
// mailboxes contain all of these.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	"Mon Jan 2 15:04:05 2006",
	"2006-01-02 15:04:05 -0700",
}

// parseDateFallback handles Date headers the RFC 5322 parser rejects.
func parseDateFallback(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)

	// Drop a trailing comment like "(UTC)" or "(added by postmaster)"
	if i := strings.LastIndex(s, "("); i > 0 && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[:i])
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
