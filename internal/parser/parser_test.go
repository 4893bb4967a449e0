package parser

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rawMessage(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n"))
}

func TestParseSimpleMessage(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: Alice Example <Alice@Example.com>",
		"To: bob@example.com",
		"Subject: Lunch tomorrow?",
		"Date: Mon, 01 Jan 2024 09:30:00 +0000",
		"",
		"Are you free around noon?",
	)

	msg, err := p.Parse("msg-1", raw)
	require.NoError(t, err)

	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, "alice@example.com", msg.Address)
	assert.Contains(t, msg.From, "Alice@Example.com")
	assert.Equal(t, "Lunch tomorrow?", msg.Subject)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), msg.Date.UTC())
	assert.Equal(t, "Are you free around noon?", strings.TrimSpace(msg.Body))
	assert.Empty(t, msg.UnsubscribeURL)
}

func TestParseMissingFromFails(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"To: bob@example.com",
		"Subject: No sender",
		"Date: Mon, 01 Jan 2024 09:30:00 +0000",
		"",
		"Body.",
	)

	_, err := p.Parse("msg-2", raw)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "msg-2", parseErr.Ref)
}

func TestParseMissingDateFails(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: alice@example.com",
		"Subject: No date",
		"",
		"Body.",
	)

	_, err := p.Parse("msg-3", raw)
	require.Error(t, err)

	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestParseNonStandardDate(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: alice@example.com",
		"Subject: Odd date format",
		"Date: 2024-03-05 10:00:00 +0000",
		"",
		"Body.",
	)

	msg, err := p.Parse("msg-4", raw)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), msg.Date.UTC())
}

func TestParseGarbageBlobFails(t *testing.T) {
	p := New(zap.NewNop())

	_, err := p.Parse("msg-5", []byte("\x00\x01\x02 this is not a message"))
	require.Error(t, err)

	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestParsePrefersPlainTextOverHTML(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: promo@shop.example",
		"Subject: Sale",
		"Date: Sat, 10 Feb 2024 08:00:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=frontier",
		"",
		"--frontier",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<html><body><b>Big sale</b> this weekend</body></html>",
		"--frontier",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Big sale this weekend",
		"--frontier--",
	)

	msg, err := p.Parse("msg-6", raw)
	require.NoError(t, err)
	assert.Equal(t, "Big sale this weekend", strings.TrimSpace(msg.Body))
	assert.NotContains(t, msg.Body, "<b>")
}

func TestParseHTMLOnlyConvertsToText(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: promo@shop.example",
		"Subject: Sale",
		"Date: Sat, 10 Feb 2024 08:00:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<html><body><p>Limited time <b>offer</b> inside</p></body></html>",
	)

	msg, err := p.Parse("msg-7", raw)
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "offer")
	assert.NotContains(t, msg.Body, "<b>")
}

func TestParseSkipsAttachments(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: alice@example.com",
		"Subject: Report attached",
		"Date: Mon, 01 Jan 2024 09:30:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=frontier",
		"",
		"--frontier",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"See the attached report.",
		"--frontier",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Disposition: attachment; filename=report.txt",
		"",
		"ATTACHMENT CONTENT",
		"--frontier--",
	)

	msg, err := p.Parse("msg-8", raw)
	require.NoError(t, err)
	assert.Equal(t, "See the attached report.", strings.TrimSpace(msg.Body))
	assert.NotContains(t, msg.Body, "ATTACHMENT CONTENT")
}

func TestParseDecodesEncodedSubject(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: alice@example.com",
		"Subject: =?utf-8?q?Special_=C3=A9_offer?=",
		"Date: Mon, 01 Jan 2024 09:30:00 +0000",
		"",
		"Body.",
	)

	msg, err := p.Parse("msg-9", raw)
	require.NoError(t, err)
	assert.Equal(t, "Special é offer", msg.Subject)
}

func TestParseDecodesQuotedPrintableBody(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: alice@example.com",
		"Subject: Encoding",
		"Date: Mon, 01 Jan 2024 09:30:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"Caf=C3=A9 at nine",
	)

	msg, err := p.Parse("msg-10", raw)
	require.NoError(t, err)
	assert.Equal(t, "Café at nine", strings.TrimSpace(msg.Body))
}

func TestParseLegacyCharset(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: alice@example.com",
		"Subject: Legacy",
		"Date: Mon, 01 Jan 2024 09:30:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=iso-8859-1",
		"",
		"Caf\xe9 at nine",
	)

	msg, err := p.Parse("msg-11", raw)
	require.NoError(t, err)
	assert.Equal(t, "Café at nine", strings.TrimSpace(msg.Body))
}

func TestParseUnknownCharsetFallsBackToLatin1(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: alice@example.com",
		"Subject: Mystery charset",
		"Date: Mon, 01 Jan 2024 09:30:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=x-mystery-123",
		"",
		"Caf\xe9 at nine",
	)

	msg, err := p.Parse("msg-12", raw)
	require.NoError(t, err)
	assert.Equal(t, "Café at nine", strings.TrimSpace(msg.Body))
}

func TestParseUnsubscribeFromHeader(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: promo@shop.example",
		"Subject: Deals",
		"Date: Sat, 10 Feb 2024 08:00:00 +0000",
		"List-Unsubscribe: <mailto:unsub@shop.example>, <https://shop.example/unsub?id=1>",
		"",
		"Deals inside.",
	)

	msg, err := p.Parse("msg-13", raw)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/unsub?id=1", msg.UnsubscribeURL)
}

func TestParseUnsubscribeFromHTMLAnchor(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: promo@shop.example",
		"Subject: Deals",
		"Date: Sat, 10 Feb 2024 08:00:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		`<html><body>Deals! <a href="https://shop.example/optout/55">Unsubscribe</a></body></html>`,
	)

	msg, err := p.Parse("msg-14", raw)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/optout/55", msg.UnsubscribeURL)
}

func TestParseUnsubscribeFromPlainText(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: promo@shop.example",
		"Subject: Deals",
		"Date: Sat, 10 Feb 2024 08:00:00 +0000",
		"",
		"Deals. To unsubscribe visit https://shop.example/u/77.",
	)

	msg, err := p.Parse("msg-15", raw)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/u/77", msg.UnsubscribeURL)
}

func TestParseNoBodyIsNotAnError(t *testing.T) {
	p := New(zap.NewNop())

	raw := rawMessage(
		"From: alice@example.com",
		"Subject: Empty",
		"Date: Mon, 01 Jan 2024 09:30:00 +0000",
		"",
		"",
	)

	msg, err := p.Parse("msg-16", raw)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(msg.Body))
}
