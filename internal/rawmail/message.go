// Package rawmail models a raw RFC 822 message as a header block and body
// split at the first blank line, and recovers forwarded-message metadata
// embedded in the body.
package rawmail

import (
	"bytes"
	"errors"
	"regexp"
)

// ErrNoBoundary reports a message with no blank-line header/body boundary.
// Callers that can tolerate it should treat the whole content as header.
var ErrNoBoundary = errors.New("no header/body boundary found")

// Message holds a raw message split at its first blank-line boundary.
// Header keeps the trailing newline of its last field line; Body keeps the
// leading blank line, so Bytes() reproduces the input byte for byte.
type Message struct {
	Header string
	Body   string
}

// Split divides a raw message at the first bare line break. Both "\n" and
// "\r\n" line endings are tolerated. When no boundary exists the entire
// content becomes the header with an empty body, and ErrNoBoundary is
// returned alongside the permissive result.
func Split(raw []byte) (*Message, error) {
	end, next := boundaryIndex(raw)
	if end == -1 {
		return &Message{Header: string(raw)}, ErrNoBoundary
	}
	return &Message{
		Header: string(raw[:next]),
		Body:   string(raw[next:]),
	}, nil
}

// Bytes recomposes the message into its serializable form.
func (m *Message) Bytes() []byte {
	return append([]byte(m.Header), m.Body...)
}

// boundaryIndex locates the first blank line. It returns the offset of the
// blank line itself and the offset where the body (including the blank line)
// begins, or (-1, -1) when the message has no boundary.
func boundaryIndex(raw []byte) (int, int) {
	lf := bytes.Index(raw, []byte("\n\n"))
	crlf := bytes.Index(raw, []byte("\n\r\n"))

	switch {
	case lf == -1 && crlf == -1:
		return -1, -1
	case crlf == -1 || (lf != -1 && lf < crlf):
		return lf, lf + 1
	default:
		return crlf, crlf + 1
	}
}

// forwardedMarker is the fixed line Gmail-style clients insert above a
// manually forwarded message.
const forwardedMarker = "---------- Forwarded message ---------"

var (
	forwardedFromRe    = regexp.MustCompile(`From: .* <(.*)>`)
	forwardedDateRe    = regexp.MustCompile(`Date: (.*)`)
	forwardedSubjectRe = regexp.MustCompile(`Subject: (.*)`)
	forwardedToRe      = regexp.MustCompile(`To: <(.*)>`)
)

// ForwardedBlock carries the metadata recovered from a forwarded-message
// marker in a body. Fields are empty when the corresponding line is absent
// or not in the expected shape.
type ForwardedBlock struct {
	From    string
	Date    string
	Subject string
	To      string
}

// ParseForwardedBlock scans a body for the forwarded-message marker and
// extracts the From/Date/Subject/To lines that follow it. Each field is
// matched independently so a partially formed block still yields whatever
// metadata is present. Returns nil when the marker is absent.
func ParseForwardedBlock(body string) *ForwardedBlock {
	start := bytes.Index([]byte(body), []byte(forwardedMarker))
	if start == -1 {
		return nil
	}

	// Limit matching to the block itself: from the marker to the next blank
	// line, or the end of the body for a trailing block.
	chunk := body[start:]
	if end, _ := boundaryIndex([]byte(chunk)); end != -1 {
		chunk = chunk[:end]
	}

	block := &ForwardedBlock{}
	if m := forwardedFromRe.FindStringSubmatch(chunk); m != nil {
		block.From = m[1]
	}
	if m := forwardedDateRe.FindStringSubmatch(chunk); m != nil {
		block.Date = trimLine(m[1])
	}
	if m := forwardedSubjectRe.FindStringSubmatch(chunk); m != nil {
		block.Subject = trimLine(m[1])
	}
	if m := forwardedToRe.FindStringSubmatch(chunk); m != nil {
		block.To = m[1]
	}
	return block
}

// trimLine drops a trailing carriage return left behind by CRLF bodies.
func trimLine(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}
