package core

import (
	"net/mail"
	"strings"
)

// NormalizeAddress reduces an originating header value to a canonical
// address: display name stripped, surrounding whitespace trimmed, local
// and domain parts case-folded. Normalization is idempotent, so two
// spellings of the same mailbox aggregate into one record.
func NormalizeAddress(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if addr, err := mail.ParseAddress(s); err == nil {
		return strings.ToLower(addr.Address)
	}

	// Too malformed for the address parser; strip angle brackets by hand
	if start := strings.LastIndex(s, "<"); start >= 0 {
		if end := strings.Index(s[start:], ">"); end > 0 {
			s = s[start+1 : start+end]
		}
	}

	return strings.ToLower(strings.TrimSpace(s))
}

// AddressDomain returns the domain part of a normalized address, or an
// empty string when the address has no domain.
func AddressDomain(address string) string {
	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
