// Package dispatch defines the interface for outbound mail transports.
package dispatch

import "context"

// Sender is the interface outbound transports must implement. A pipeline
// run performs two independent sends: the transformed raw message, and a
// structured summary notification derived from it.
type Sender interface {
	// SendRaw submits fully formed RFC 822 content for delivery to the
	// given destinations. The source is the envelope sender.
	SendRaw(ctx context.Context, source string, destinations []string, raw []byte) error

	// SendSummary sends a structured HTML notification.
	SendSummary(ctx context.Context, source string, to []string, subject, htmlBody string) error

	// Name returns the human-readable name of this sender.
	Name() string
}
