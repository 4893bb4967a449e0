package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/jaytaylor/html2text"
	"github.com/mailsift/mailsift/internal/core"
	"go.uber.org/zap"
)

// ParseError marks a blob that is not a well-formed message. It is
// recoverable at the run level: the pipeline skips the message and
// counts it separately from processed ones.
type ParseError struct {
	Ref    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Ref, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Ref, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns raw message bytes into MessageRecords
type Parser struct {
	logger *zap.Logger
}

// New creates a new Parser
func New(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse builds a MessageRecord from one raw message. The sender address
// and the date are mandatory; a message missing either fails with a
// ParseError. A message with no decodable text part parses fine with an
// empty body.
func (p *Parser) Parse(ref string, raw []byte) (*core.MessageRecord, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &ParseError{Ref: ref, Reason: "malformed message", Err: err}
	}
	defer mr.Close()

	header := mr.Header

	rawFrom := header.Get("From")
	addrs, err := header.AddressList("From")
	if err != nil || len(addrs) == 0 {
		return nil, &ParseError{Ref: ref, Reason: "missing or unparseable From header", Err: err}
	}
	address := core.NormalizeAddress(addrs[0].Address)
	if address == "" {
		return nil, &ParseError{Ref: ref, Reason: "empty sender address"}
	}

	date, err := header.Date()
	if err != nil || date.IsZero() {
		fallback, ok := parseDateFallback(header.Get("Date"))
		if !ok {
			return nil, &ParseError{Ref: ref, Reason: "missing or unparseable Date header", Err: err}
		}
		date = fallback
	}

	subject, err := header.Subject()
	if err != nil {
		// Broken RFC 2047 encoding; fall back to the raw value
		subject = header.Get("Subject")
	}

	textBody, htmlBody := p.readBodies(ref, mr)

	body := textBody
	if body == "" && htmlBody != "" {
		if converted, err := html2text.FromString(htmlBody); err == nil {
			body = converted
		} else {
			p.logger.Warn("HTML conversion failed, using raw markup",
				zap.String("message_id", ref),
				zap.Error(err))
			body = htmlBody
		}
	}

	return &core.MessageRecord{
		ID:             ref,
		From:           rawFrom,
		Address:        address,
		Date:           date,
		Subject:        subject,
		Body:           body,
		UnsubscribeURL: p.findUnsubscribe(header.Get("List-Unsubscribe"), htmlBody, body),
	}, nil
}

// readBodies walks the MIME parts and keeps the first inline plain-text
// and HTML bodies. Attachments are never read into the record.
func (p *Parser) readBodies(ref string, mr *mail.Reader) (textBody, htmlBody string) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Warn("Stopping at undecodable MIME part",
				zap.String("message_id", ref),
				zap.Error(err))
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		content, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			p.logger.Warn("Skipping unreadable MIME part",
				zap.String("message_id", ref),
				zap.String("content_type", contentType),
				zap.Error(readErr))
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(content)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(content)
		}
	}

	return textBody, htmlBody
}

// findUnsubscribe checks the standard header first, then HTML anchors,
// then the plain text.
func (p *Parser) findUnsubscribe(headerValue, htmlBody, textBody string) string {
	if url := unsubscribeFromHeader(headerValue); url != "" {
		return url
	}
	if htmlBody != "" {
		if url := unsubscribeFromHTML(htmlBody); url != "" {
			return url
		}
	}
	return unsubscribeFromText(textBody)
}
