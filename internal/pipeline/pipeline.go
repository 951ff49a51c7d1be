// Package pipeline runs an ordered list of transformation stages over a
// processing context, one context per inbound message.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/maila-ai/ses-forwarder/internal/config"
	"github.com/maila-ai/ses-forwarder/internal/rawmail"
)

// ErrStop signals early, successful termination of the pipeline, e.g. when
// no forwarding is configured for any recipient. It is not an error result.
var ErrStop = errors.New("pipeline stopped")

// ErrStepFailed is the only error surfaced to callers when a stage fails.
// Stage-specific detail goes to the log, never to the caller.
var ErrStepFailed = errors.New("step returned error")

// ProcessingContext is the state threaded through the pipeline. Each stage
// receives the context by value and returns the next one; stages must not
// retain references to it across stage boundaries.
type ProcessingContext struct {
	// Mail is the validated SES mail record, read-only after ingestion.
	Mail *events.SimpleEmailMessage
	// Routing is the identity/forwarding configuration snapshot for this run.
	Routing config.RoutingConfig

	// Recipients is the current destination set. Never empty by the time
	// dispatch runs; empty resolution terminates the pipeline early.
	Recipients []string
	// OriginalRecipients holds the recipients as received, never mutated
	// after capture.
	OriginalRecipients []string
	// OriginalRecipient is the original recipient that matched the
	// forwarding table, used as the reply source address.
	OriginalRecipient string

	// RawMessage is the full RFC 822 content. It stays syntactically valid
	// at every stage boundary.
	RawMessage []byte
	// PlainText and HTMLBody are views derived once from RawMessage.
	PlainText string
	HTMLBody  string

	// Forwarded carries metadata recovered from a forwarded-message block
	// in the body, nil when the message was not manually forwarded.
	Forwarded *rawmail.ForwardedBlock
}

// StageFunc is one unit of the pipeline: it consumes a processing context
// and produces the next one. Returning ErrStop (or an error wrapping it)
// terminates the pipeline successfully; any other error aborts it.
type StageFunc func(ctx context.Context, pc ProcessingContext) (ProcessingContext, error)

// Stage pairs a stage function with a name used in logs.
type Stage struct {
	Name string
	Run  StageFunc
}

// Result is the terminal outcome of one pipeline run.
type Result struct {
	Outcome Outcome
	// Err is ErrStepFailed when Outcome is OutcomeFailed, nil otherwise.
	Err error
}

// Outcome classifies how a pipeline run ended.
type Outcome int

const (
	// OutcomeCompleted means every stage ran.
	OutcomeCompleted Outcome = iota
	// OutcomeStopped means a stage requested early, successful termination.
	OutcomeStopped
	// OutcomeFailed means a stage returned an error.
	OutcomeFailed
)

// Run executes the stages strictly in order, feeding each stage the context
// returned by its predecessor. No stage starts before the previous one
// finished. The result is returned exactly once: success, intentional early
// exit, or a single generic failure.
func Run(ctx context.Context, stages []Stage, pc ProcessingContext) Result {
	for _, stage := range stages {
		next, err := stage.Run(ctx, pc)
		if err != nil {
			if errors.Is(err, ErrStop) {
				slog.Info("finishing process early", "stage", stage.Name, "reason", err)
				return Result{Outcome: OutcomeStopped}
			}
			slog.Error("step returned error", "stage", stage.Name, "error", err)
			return Result{Outcome: OutcomeFailed, Err: ErrStepFailed}
		}
		pc = next
	}

	slog.Info("process finished successfully")
	return Result{Outcome: OutcomeCompleted}
}
