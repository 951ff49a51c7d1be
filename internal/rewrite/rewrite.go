// Package rewrite rewrites the header block of a forwarded message:
// reply addressing, identity overrides, and removal of integrity-breaking
// fields whose signatures the rewrite invalidates.
package rewrite

import (
	"log/slog"
	"regexp"
	"strings"
)

// Options configures one header rewrite pass. All fields except
// OriginalRecipient are optional; an unset field skips its rewrite step.
type Options struct {
	// FromEmail replaces the address portion of every From field. When
	// empty, OriginalRecipient is substituted instead.
	FromEmail string
	// SubjectPrefix is prepended to every Subject field.
	SubjectPrefix string
	// ToEmail replaces the contents of every To field.
	ToEmail string
	// CcEmail and BccEmail are appended as new fields.
	CcEmail  string
	BccEmail string
	// OriginalRecipient is the inbound recipient that matched the
	// forwarding table, used as the fallback sender address.
	OriginalRecipient string
}

var (
	replyToRe  = regexp.MustCompile(`(?mi)^Reply-To: `)
	fromLineRe = regexp.MustCompile(`(?m)^From: (.*(?:\r?\n[ \t].*)*\r?\n)`)
	fromRe     = regexp.MustCompile(`(?m)^From: .*(?:\r?\n[ \t].*)*`)
	subjectRe  = regexp.MustCompile(`(?m)^Subject: .*`)
	toRe       = regexp.MustCompile(`(?m)^To: .*`)
	angleRe    = regexp.MustCompile(`<(.*)>`)

	returnPathRe = regexp.MustCompile(`(?m)^Return-Path: .*\r?\n`)
	senderRe     = regexp.MustCompile(`(?m)^Sender: .*\r?\n`)
	messageIDRe  = regexp.MustCompile(`(?mi)^Message-ID: .*\r?\n`)
	dkimRe       = regexp.MustCompile(`(?m)^DKIM-Signature: .*\r?\n(?:[ \t].*\r?\n)*`)
)

// Headers applies the rewrite steps to a header block and returns the new
// header. Each step is independently skippable when its precondition is
// unmet, and each is guarded so that re-applying the transformer to its own
// output inserts nothing twice. The body is never touched, so the blank-line
// boundary of the recomposed message is preserved.
func Headers(header string, opts Options) string {
	header = ensureTrailingNewline(header)

	header = addReplyTo(header)
	header = rewriteFrom(header, opts)
	header = prefixSubject(header, opts.SubjectPrefix)
	header = overrideTo(header, opts.ToEmail)
	header = appendRecipientField(header, "CC", opts.CcEmail)
	header = appendRecipientField(header, "BCC", opts.BccEmail)
	header = stripIntegrityFields(header)

	return header
}

// addReplyTo records the original sender: when no Reply-To field exists, the
// From field value (including any folded continuation lines) is carried over
// into new Forwarded-From and Reply-To fields.
func addReplyTo(header string) string {
	if replyToRe.MatchString(header) {
		return header
	}

	m := fromLineRe.FindStringSubmatch(header)
	if m == nil {
		slog.Info("reply-to not added because from address was not properly extracted")
		return header
	}

	from := m[1]
	header += "Forwarded-From: " + from
	header += "Reply-To: " + from
	slog.Info("added reply-to address", "reply_to", strings.TrimSpace(from))
	return header
}

// rewriteFrom replaces the address portion of every From field with the
// configured sender, keeping the display name. Without a configured sender
// the original recipient is substituted and the old address is kept in the
// display text so replies still identify the source.
func rewriteFrom(header string, opts Options) string {
	return fromRe.ReplaceAllStringFunc(header, func(line string) string {
		line, cr := splitCR(line)
		from := strings.TrimPrefix(line, "From: ")
		if opts.FromEmail != "" {
			name := strings.TrimSpace(angleRe.ReplaceAllString(from, ""))
			return "From: " + name + " <" + opts.FromEmail + ">" + cr
		}
		display := strings.TrimSpace(strings.ReplaceAll(from, "<", "at "))
		display = strings.ReplaceAll(display, ">", "")
		return "From: " + display + " <" + opts.OriginalRecipient + ">" + cr
	})
}

// prefixSubject prepends the configured prefix to every Subject field.
// Subjects that already carry the prefix are left alone.
func prefixSubject(header, prefix string) string {
	if prefix == "" {
		return header
	}
	return subjectRe.ReplaceAllStringFunc(header, func(line string) string {
		subject := strings.TrimPrefix(line, "Subject: ")
		if strings.HasPrefix(subject, prefix) {
			return line
		}
		return "Subject: " + prefix + subject
	})
}

// overrideTo replaces the contents of every To field with the fixed address.
func overrideTo(header, toEmail string) string {
	if toEmail == "" {
		return header
	}
	return toRe.ReplaceAllStringFunc(header, func(line string) string {
		_, cr := splitCR(line)
		return "To: " + toEmail + cr
	})
}

// splitCR separates a trailing carriage return from a matched line so CRLF
// messages keep their line endings through a rewrite.
func splitCR(line string) (string, string) {
	if strings.HasSuffix(line, "\r") {
		return line[:len(line)-1], "\r"
	}
	return line, ""
}

// appendRecipientField appends a "name: value" field unless an identical
// field is already present. Existing fields with other values are never
// replaced, only added to.
func appendRecipientField(header, name, value string) string {
	if value == "" {
		return header
	}
	present := regexp.MustCompile(`(?mi)^` + name + `: ` + regexp.QuoteMeta(value) + `\r?$`)
	if present.MatchString(header) {
		return header
	}
	return header + name + ": " + value + "\r\n"
}

// stripIntegrityFields removes Return-Path, Sender, and Message-ID fields,
// and DKIM-Signature fields together with their folded continuation lines.
// The rewrites above invalidate the signature, so it must not survive.
func stripIntegrityFields(header string) string {
	header = returnPathRe.ReplaceAllString(header, "")
	header = senderRe.ReplaceAllString(header, "")
	header = messageIDRe.ReplaceAllString(header, "")
	header = dkimRe.ReplaceAllString(header, "")
	return header
}

// ensureTrailingNewline terminates the last header line so appended fields
// start on their own line. Headers produced by a normal split already end
// with a newline; only the permissive no-boundary fallback does not.
func ensureTrailingNewline(header string) string {
	if header == "" || strings.HasSuffix(header, "\n") {
		return header
	}
	return header + "\r\n"
}
