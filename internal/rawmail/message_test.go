package rawmail

import (
	"bytes"
	"errors"
	"testing"
)

func TestSplit_RoundTripIdentity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"crlf", "From: a@x.com\r\nSubject: Hi\r\n\r\nBody line\r\nmore\r\n"},
		{"lf", "From: a@x.com\nSubject: Hi\n\nBody line\nmore\n"},
		{"mixed", "From: a@x.com\r\nSubject: Hi\n\nBody\r\n"},
		{"empty body", "From: a@x.com\r\n\r\n"},
		{"blank lines in body", "Subject: x\n\nfirst\n\nsecond\n"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			msg, err := Split([]byte(tc.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := msg.Bytes(); !bytes.Equal(got, []byte(tc.raw)) {
				t.Errorf("round trip: got %q, want %q", got, tc.raw)
			}
		})
	}
}

func TestSplit_HeaderEndsWithNewline(t *testing.T) {
	t.Parallel()

	msg, err := Split([]byte("From: a@x.com\r\nSubject: Hi\r\n\r\nBody"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Header != "From: a@x.com\r\nSubject: Hi\r\n" {
		t.Errorf("header: got %q", msg.Header)
	}
	if msg.Body != "\r\nBody" {
		t.Errorf("body: got %q", msg.Body)
	}
}

func TestSplit_NoBoundaryFallsBackToHeaderOnly(t *testing.T) {
	t.Parallel()

	raw := "From: a@x.com\r\nSubject: no body here\r\n"
	msg, err := Split([]byte(raw))

	if !errors.Is(err, ErrNoBoundary) {
		t.Fatalf("expected ErrNoBoundary, got %v", err)
	}
	if msg == nil {
		t.Fatal("expected permissive result alongside the error")
	}
	if msg.Header != raw {
		t.Errorf("header: got %q, want entire content", msg.Header)
	}
	if msg.Body != "" {
		t.Errorf("body: got %q, want empty", msg.Body)
	}
}

func TestParseForwardedBlock_AllFields(t *testing.T) {
	t.Parallel()

	body := "\r\nHi team,\r\n\r\n" +
		"---------- Forwarded message ---------\r\n" +
		"From: Jane Doe <jane@customer.com>\r\n" +
		"Date: Tue, 2 May 2023 10:00:00 +0200\r\n" +
		"Subject: Billing question\r\n" +
		"To: <support@company.com>\r\n" +
		"\r\nOriginal content\r\n"

	block := ParseForwardedBlock(body)
	if block == nil {
		t.Fatal("expected a forwarded block")
	}
	if block.From != "jane@customer.com" {
		t.Errorf("From: got %q, want %q", block.From, "jane@customer.com")
	}
	if block.Date != "Tue, 2 May 2023 10:00:00 +0200" {
		t.Errorf("Date: got %q", block.Date)
	}
	if block.Subject != "Billing question" {
		t.Errorf("Subject: got %q", block.Subject)
	}
	if block.To != "support@company.com" {
		t.Errorf("To: got %q", block.To)
	}
}

func TestParseForwardedBlock_PartialFields(t *testing.T) {
	t.Parallel()

	body := "---------- Forwarded message ---------\n" +
		"From: Jane <jane@customer.com>\n" +
		"Subject: Hello\n" +
		"\nrest\n"

	block := ParseForwardedBlock(body)
	if block == nil {
		t.Fatal("expected a forwarded block")
	}
	if block.From != "jane@customer.com" {
		t.Errorf("From: got %q", block.From)
	}
	if block.Subject != "Hello" {
		t.Errorf("Subject: got %q", block.Subject)
	}
	if block.Date != "" {
		t.Errorf("Date: got %q, want empty", block.Date)
	}
	if block.To != "" {
		t.Errorf("To: got %q, want empty", block.To)
	}
}

func TestParseForwardedBlock_AbsentMarker(t *testing.T) {
	t.Parallel()

	if block := ParseForwardedBlock("\r\nJust a normal reply.\r\n"); block != nil {
		t.Errorf("expected nil block, got %+v", block)
	}
}

func TestParseForwardedBlock_IgnoresTextAfterBlock(t *testing.T) {
	t.Parallel()

	body := "---------- Forwarded message ---------\n" +
		"From: Jane <jane@customer.com>\n" +
		"\n" +
		"Subject: this line is quoted content, not metadata\n"

	block := ParseForwardedBlock(body)
	if block == nil {
		t.Fatal("expected a forwarded block")
	}
	if block.Subject != "" {
		t.Errorf("Subject: got %q, want empty", block.Subject)
	}
}
