package stdout

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestSendRaw(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewWithWriter(&buf)

	err := s.SendRaw(context.Background(), "a@x.com", []string{"b@y.com", "c@y.com"}, []byte("From: a@x.com\r\n\r\nhello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Envelope-From: a@x.com") {
		t.Errorf("missing envelope sender: %q", out)
	}
	if !strings.Contains(out, "Envelope-To: b@y.com, c@y.com") {
		t.Errorf("missing envelope recipients: %q", out)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("missing raw content: %q", out)
	}
}

func TestSendSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewWithWriter(&buf)

	err := s.SendSummary(context.Background(), "bot@x.com", []string{"team@x.com"}, "Re: order", "<p>summary</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "From: bot@x.com") {
		t.Errorf("missing source: %q", out)
	}
	if !strings.Contains(out, "To: team@x.com") {
		t.Errorf("missing recipients: %q", out)
	}
	if !strings.Contains(out, "Subject: Re: order") {
		t.Errorf("missing subject: %q", out)
	}
	if !strings.Contains(out, "<p>summary</p>") {
		t.Errorf("missing body: %q", out)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	if got := New().Name(); got != "stdout" {
		t.Errorf("Name: got %q, want %q", got, "stdout")
	}
}
