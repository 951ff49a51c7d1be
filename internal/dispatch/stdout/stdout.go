// Package stdout implements a Sender that prints mail to standard output,
// useful for local runs and tests.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sender prints outbound mail to stdout in a human-readable format.
type Sender struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Sender that writes to os.Stdout.
func New() *Sender {
	return &Sender{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Sender that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Sender {
	return &Sender{writer: w}
}

// SendRaw prints the raw message with its envelope. It always succeeds.
func (s *Sender) SendRaw(_ context.Context, source string, destinations []string, raw []byte) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("Envelope-From: %s\n", source))
	b.WriteString(fmt.Sprintf("Envelope-To: %s\n", strings.Join(destinations, ", ")))
	b.WriteString("Raw message:\n")
	b.Write(raw)
	b.WriteString("\n========================================\n")

	fmt.Fprint(s.writer, b.String())
	return nil
}

// SendSummary prints the structured notification. It always succeeds.
func (s *Sender) SendSummary(_ context.Context, source string, to []string, subject, htmlBody string) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("From: %s\n", source))
	b.WriteString(fmt.Sprintf("To: %s\n", strings.Join(to, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\n", subject))
	b.WriteString("Body:\n")
	b.WriteString(htmlBody + "\n")
	b.WriteString("========================================\n")

	fmt.Fprint(s.writer, b.String())
	return nil
}

// Name returns the sender name.
func (s *Sender) Name() string {
	return "stdout"
}
