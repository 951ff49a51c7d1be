// Package ses implements a Sender that delivers mail via AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Sender delivers mail via the AWS SES v2 API.
type Sender struct {
	client SendEmailAPI
}

// New creates a Sender backed by the given SES v2 client.
func New(client SendEmailAPI) *Sender {
	return &Sender{client: client}
}

// SendRaw submits the raw message bytes through SES. The source becomes the
// envelope sender and the destinations the envelope recipients; the message
// headers are passed through untouched.
func (s *Sender) SendRaw(ctx context.Context, source string, destinations []string, raw []byte) error {
	slog.Info("sending raw email via ses",
		"source", source,
		"destinations", strings.Join(destinations, ", "),
	)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: destinations,
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{
				Data: raw,
			},
		},
	}

	return s.send(ctx, input)
}

// SendSummary sends a structured HTML notification via SES.
func (s *Sender) SendSummary(ctx context.Context, source string, to []string, subject, htmlBody string) error {
	slog.Info("sending summary email via ses",
		"source", source,
		"to", strings.Join(to, ", "),
	)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: to,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	return s.send(ctx, input)
}

// Name returns the sender name.
func (s *Sender) Name() string {
	return "ses"
}

// send performs the SendEmail call with retries for transient failures.
func (s *Sender) send(ctx context.Context, input *sesv2.SendEmailInput) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying SES API request",
				"attempt", attempt,
				"max_retries", maxRetries,
			)
			delay := backoffDelay(attempt)
			if err := sleepWithContext(ctx, delay); err != nil {
				return fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		out, err := s.client.SendEmail(ctx, input)
		if err == nil {
			slog.Info("SendEmail successful", "message_id", aws.ToString(out.MessageId))
			return nil
		}

		lastErr = err
		slog.Warn("SES API error",
			"attempt", attempt,
			"error", err,
		)
	}

	return fmt.Errorf("SES API request failed after %d retries: %w", maxRetries, lastErr)
}

// backoffDelay returns the exponential backoff delay for the given attempt number.
func backoffDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
