// Package llm drafts reply content with the Anthropic text-completion API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// clientID identifies this client to the completion API.
const clientID = "ses-forwarder/1.0"

// defaultBaseURL is the completion API endpoint.
const defaultBaseURL = "https://api.anthropic.com"

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// Client calls the Anthropic /v1/complete endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a completion client. An empty baseURL selects the
// public API endpoint.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// NewClientWithHTTPClient creates a completion client with a custom HTTP
// client, used for testing.
func NewClientWithHTTPClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	c := NewClient(apiKey, baseURL)
	c.httpClient = httpClient
	return c
}

// CompletionRequest holds the sampling parameters for one completion call.
// The prompt must already carry its conversation markers.
type CompletionRequest struct {
	Prompt        string   `json:"prompt"`
	Model         string   `json:"model"`
	MaxTokens     int      `json:"max_tokens_to_sample"`
	Temperature   float64  `json:"temperature"`
	StopSequences []string `json:"stop_sequences"`
	Stream        bool     `json:"stream"`
}

// completionResponse is the completion endpoint response body.
type completionResponse struct {
	Completion string `json:"completion"`
	StopReason string `json:"stop_reason"`
	Exception  string `json:"exception"`
}

// apiErrorResponse is the error body returned by the completion API.
type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the request and returns the completion text. Transient
// failures (rate limits, server errors) are retried with exponential
// backoff; permanent failures return immediately.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	bodyJSON, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying completion API request",
				"attempt", attempt,
				"max_retries", maxRetries,
			)
		}

		completion, err := c.doCompleteRequest(ctx, bodyJSON)
		if err == nil {
			return completion, nil
		}

		lastErr = err

		apiErr, ok := err.(*completionError)
		if !ok {
			return "", err
		}

		switch {
		case apiErr.permanent:
			return "", apiErr
		case apiErr.statusCode == http.StatusTooManyRequests:
			delay := retryAfterDelay(apiErr.retryAfter, attempt)
			slog.Info("rate limited by completion API",
				"retry_after", delay,
			)
			if err := sleepWithContext(ctx, delay); err != nil {
				return "", fmt.Errorf("context cancelled during retry wait: %w", err)
			}
			continue
		case apiErr.transient:
			delay := backoffDelay(attempt)
			slog.Info("transient completion API error, retrying",
				"status", apiErr.statusCode,
				"delay", delay,
			)
			if err := sleepWithContext(ctx, delay); err != nil {
				return "", fmt.Errorf("context cancelled during retry wait: %w", err)
			}
			continue
		default:
			return "", apiErr
		}
	}

	return "", fmt.Errorf("completion API request failed after %d retries: %w", maxRetries, lastErr)
}

// doCompleteRequest performs a single HTTP request against /v1/complete.
func (c *Client) doCompleteRequest(ctx context.Context, bodyJSON []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/complete", bytes.NewReader(bodyJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client", clientID)
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &completionError{
			message:   fmt.Sprintf("HTTP request failed: %v", err),
			transient: true,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &completionError{
			message:   fmt.Sprintf("failed to read response body: %v", err),
			transient: true,
		}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErrResp apiErrorResponse
		if jsonErr := json.Unmarshal(body, &apiErrResp); jsonErr == nil && apiErrResp.Error.Message != "" {
			return "", classifyError(resp.StatusCode, apiErrResp.Error.Message, resp.Header.Get("Retry-After"))
		}
		return "", classifyError(resp.StatusCode, string(body), resp.Header.Get("Retry-After"))
	}

	var completion completionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if completion.Exception != "" {
		return "", &completionError{
			message:    completion.Exception,
			statusCode: resp.StatusCode,
			permanent:  true,
		}
	}

	return completion.Completion, nil
}

// completionError represents an error from the completion API with
// classification for retry logic.
type completionError struct {
	message    string
	statusCode int
	permanent  bool
	transient  bool
	retryAfter string
}

func (e *completionError) Error() string {
	return fmt.Sprintf("completion API error (HTTP %d): %s", e.statusCode, e.message)
}

// classifyError categorizes an HTTP error response for retry decisions.
func classifyError(statusCode int, message, retryAfter string) *completionError {
	err := &completionError{
		message:    message,
		statusCode: statusCode,
		retryAfter: retryAfter,
	}

	switch {
	case statusCode == http.StatusBadRequest ||
		statusCode == http.StatusUnauthorized ||
		statusCode == http.StatusForbidden:
		err.permanent = true
	case statusCode == http.StatusTooManyRequests:
		err.transient = true
	case statusCode >= 500:
		err.transient = true
	default:
		err.permanent = true
	}

	return err
}

// retryAfterDelay parses the Retry-After header value and returns the
// appropriate delay. Falls back to exponential backoff if the header is
// missing or unparseable.
func retryAfterDelay(retryAfter string, attempt int) time.Duration {
	if retryAfter == "" {
		return backoffDelay(attempt)
	}

	seconds, err := strconv.Atoi(retryAfter)
	if err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return backoffDelay(attempt)
}

// backoffDelay returns the exponential backoff delay for the given attempt number.
// Delays are: 1s, 2s, 4s
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
