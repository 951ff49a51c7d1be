// Package forwarder wires the transformation stages of the mail forwarding
// pipeline: resolve recipients, fetch the stored message, rewrite its
// headers, re-send it, and send the generated summary notification.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/maila-ai/ses-forwarder/internal/config"
	"github.com/maila-ai/ses-forwarder/internal/dispatch"
	"github.com/maila-ai/ses-forwarder/internal/event"
	"github.com/maila-ai/ses-forwarder/internal/notify"
	"github.com/maila-ai/ses-forwarder/internal/pipeline"
	"github.com/maila-ai/ses-forwarder/internal/rawmail"
	"github.com/maila-ai/ses-forwarder/internal/resolve"
	"github.com/maila-ai/ses-forwarder/internal/rewrite"
)

// Store fetches raw inbound messages by message ID.
type Store interface {
	Fetch(ctx context.Context, messageID string) ([]byte, error)
}

// Completer drafts reply content from the plain text of the original
// message.
type Completer interface {
	Draft(ctx context.Context, emailText string) (string, error)
}

// Forwarder holds the collaborators the stages call out to. All of them are
// interfaces so tests can substitute any of storage, transport, and
// completion.
type Forwarder struct {
	routing   config.RoutingConfig
	store     Store
	sender    dispatch.Sender
	completer Completer
}

// New creates a Forwarder.
func New(routing config.RoutingConfig, store Store, sender dispatch.Sender, completer Completer) *Forwarder {
	return &Forwarder{
		routing:   routing,
		store:     store,
		sender:    sender,
		completer: completer,
	}
}

// Handle processes one inbound SES event end to end. The event is validated
// before any stage runs; an invalid event is rejected with the validation
// error. Stage failures surface only as the generic pipeline error.
func (f *Forwarder) Handle(ctx context.Context, ev events.SimpleEmailEvent) error {
	mail, recipients, err := event.Parse(ev)
	if err != nil {
		slog.Error("rejected inbound event", "error", err)
		return err
	}

	pc := pipeline.ProcessingContext{
		Mail:       mail,
		Routing:    f.routing,
		Recipients: recipients,
	}

	result := pipeline.Run(ctx, f.Stages(), pc)
	return result.Err
}

// Stages returns the default stage order.
func (f *Forwarder) Stages() []pipeline.Stage {
	return []pipeline.Stage{
		{Name: "resolve-recipients", Run: f.ResolveRecipients},
		{Name: "fetch-raw-message", Run: f.FetchMessage},
		{Name: "transform-headers", Run: f.TransformHeaders},
		{Name: "dispatch-raw-message", Run: f.SendRawMessage},
		{Name: "dispatch-summary-notification", Run: f.SendSummary},
	}
}

// ResolveRecipients maps the original recipients through the forwarding
// table. No match on any recipient means no forwarding is configured: the
// pipeline stops without error.
func (f *Forwarder) ResolveRecipients(_ context.Context, pc pipeline.ProcessingContext) (pipeline.ProcessingContext, error) {
	pc.OriginalRecipients = pc.Recipients

	newRecipients, chosen := resolve.Resolve(pc.Recipients, pc.Routing.ForwardMapping)
	if len(newRecipients) == 0 {
		return pc, fmt.Errorf("%w: no new recipients found for original destinations: %s",
			pipeline.ErrStop, strings.Join(pc.OriginalRecipients, ", "))
	}

	pc.Recipients = newRecipients
	pc.OriginalRecipient = chosen
	return pc, nil
}

// FetchMessage retrieves the raw message from the store and derives its
// text and HTML body views.
func (f *Forwarder) FetchMessage(ctx context.Context, pc pipeline.ProcessingContext) (pipeline.ProcessingContext, error) {
	raw, err := f.store.Fetch(ctx, pc.Mail.MessageID)
	if err != nil {
		return pc, fmt.Errorf("failed to fetch message: %w", err)
	}
	pc.RawMessage = raw

	bodies, err := rawmail.ExtractBodies(raw)
	if err != nil {
		return pc, fmt.Errorf("failed to parse message: %w", err)
	}
	pc.PlainText = bodies.Text
	pc.HTMLBody = bodies.HTML

	return pc, nil
}

// TransformHeaders rewrites the message header block and captures
// forwarded-message metadata from the body.
func (f *Forwarder) TransformHeaders(_ context.Context, pc pipeline.ProcessingContext) (pipeline.ProcessingContext, error) {
	msg, err := rawmail.Split(pc.RawMessage)
	if err != nil {
		// Permissive fallback: the whole content is treated as header.
		slog.Warn("message has no header/body boundary", "error", err)
	}

	if block := rawmail.ParseForwardedBlock(msg.Body); block != nil {
		slog.Info("detected forwarded message block",
			"forwarded_from", block.From,
			"forwarded_to", block.To,
			"forwarded_subject", block.Subject,
		)
		pc.Forwarded = block
	}

	msg.Header = rewrite.Headers(msg.Header, rewrite.Options{
		FromEmail:         pc.Routing.FromEmail,
		SubjectPrefix:     pc.Routing.SubjectPrefix,
		ToEmail:           pc.Routing.ToEmail,
		CcEmail:           pc.Routing.CcEmail,
		BccEmail:          pc.Routing.BccEmail,
		OriginalRecipient: pc.OriginalRecipient,
	})

	pc.RawMessage = msg.Bytes()
	return pc, nil
}

// SendRawMessage re-submits the transformed message to the resolved
// destinations. A missing raw message is a hard failure.
func (f *Forwarder) SendRawMessage(ctx context.Context, pc pipeline.ProcessingContext) (pipeline.ProcessingContext, error) {
	if len(pc.RawMessage) == 0 {
		return pc, errors.New("email data is missing")
	}

	if err := f.sender.SendRaw(ctx, pc.OriginalRecipient, pc.Recipients, pc.RawMessage); err != nil {
		return pc, fmt.Errorf("email sending failed: %w", err)
	}
	return pc, nil
}

// SendSummary drafts a reply from the original plain text and sends it as a
// structured notification. When forwarded-message metadata was detected the
// notification goes to both the company address and the extracted customer
// address; otherwise only to the company address.
func (f *Forwarder) SendSummary(ctx context.Context, pc pipeline.ProcessingContext) (pipeline.ProcessingContext, error) {
	draft, err := f.completer.Draft(ctx, pc.PlainText)
	if err != nil {
		return pc, fmt.Errorf("failed to draft summary: %w", err)
	}

	company := pc.Mail.Source
	subject := pc.Mail.CommonHeaders.Subject
	customer := ""
	if len(pc.Mail.Destination) > 0 {
		customer = pc.Mail.Destination[0]
	}

	if pc.Forwarded != nil {
		if pc.Forwarded.To != "" {
			company = pc.Forwarded.To
		}
		if pc.Forwarded.From != "" {
			customer = pc.Forwarded.From
		}
		if pc.Forwarded.Subject != "" {
			subject = pc.Forwarded.Subject
		}
	}

	to := []string{company}
	if pc.Forwarded != nil && customer != "" {
		to = append(to, customer)
	}

	contact := pc.Routing.FromEmail
	if len(pc.Recipients) > 0 {
		contact = pc.Recipients[0]
	}

	htmlBody, err := notify.Render(notify.Summary{
		Title:   subject,
		Content: draft,
		Contact: contact,
	})
	if err != nil {
		return pc, fmt.Errorf("failed to render summary body: %w", err)
	}

	source := pc.OriginalRecipient
	if len(pc.OriginalRecipients) > 0 {
		source = pc.OriginalRecipients[0]
	}

	if err := f.sender.SendSummary(ctx, source, to, subject, htmlBody); err != nil {
		return pc, fmt.Errorf("email sending failed: %w", err)
	}
	return pc, nil
}
