// Package event validates inbound SES receipt notifications before any
// pipeline stage runs.
package event

import (
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// ErrInvalidEvent is returned for notifications that are not a well-formed
// single-record SES receipt event.
var ErrInvalidEvent = errors.New("received invalid SES message")

// sesEventSource is the only event source this forwarder accepts.
const sesEventSource = "aws:ses"

// sesEventVersion is the only event version this forwarder accepts.
const sesEventVersion = "1.0"

// Parse validates an inbound SES event and extracts the mail record and the
// receipt recipients. The event must carry exactly one record with the
// recognized source and version; any deviation fails with ErrInvalidEvent
// before any processing begins.
func Parse(ev events.SimpleEmailEvent) (*events.SimpleEmailMessage, []string, error) {
	if len(ev.Records) != 1 {
		return nil, nil, fmt.Errorf("%w: expected exactly 1 record, got %d", ErrInvalidEvent, len(ev.Records))
	}

	record := ev.Records[0]
	if record.EventSource != sesEventSource {
		return nil, nil, fmt.Errorf("%w: unexpected event source %q", ErrInvalidEvent, record.EventSource)
	}
	if record.EventVersion != sesEventVersion {
		return nil, nil, fmt.Errorf("%w: unexpected event version %q", ErrInvalidEvent, record.EventVersion)
	}

	mail := record.SES.Mail
	return &mail, record.SES.Receipt.Recipients, nil
}
