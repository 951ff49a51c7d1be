// Package search grounds drafted replies on web content: it resolves a
// search query to a set of links and fetches the page contents behind them.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// maxPageBytes caps how much of a page body is read.
const maxPageBytes = 64 * 1024

// Page is the fetched content of one search result.
type Page struct {
	Title   string
	URL     string
	Content string
}

// Searcher resolves a query to fetched page contents.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Page, error)
}

// searchResult is one entry in the search endpoint's JSON response.
type searchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Client is a Searcher backed by an HTTP search endpoint. Links are fetched
// in bounded concurrent batches with a delay between batches so target
// sites are not hammered.
type Client struct {
	endpoint   string
	batchSize  int
	batchDelay time.Duration
	httpClient *http.Client
}

// New creates a search client. The endpoint receives the query as its "q"
// parameter and must respond with a JSON array of {title, url} objects.
func New(endpoint string, batchSize int, batchDelay time.Duration) *Client {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Client{
		endpoint:   endpoint,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithHTTPClient creates a search client with a custom HTTP client,
// used for testing.
func NewWithHTTPClient(endpoint string, batchSize int, batchDelay time.Duration, httpClient *http.Client) *Client {
	c := New(endpoint, batchSize, batchDelay)
	c.httpClient = httpClient
	return c
}

// Search resolves the query and fetches the resulting pages. Pages that
// fail to fetch are skipped with a warning; the query itself failing is an
// error.
func (c *Client) Search(ctx context.Context, query string) ([]Page, error) {
	results, err := c.lookup(ctx, query)
	if err != nil {
		return nil, err
	}

	var pages []Page
	for start := 0; start < len(results); start += c.batchSize {
		if start > 0 {
			if err := sleepWithContext(ctx, c.batchDelay); err != nil {
				return nil, err
			}
		}

		end := start + c.batchSize
		if end > len(results) {
			end = len(results)
		}
		batch := results[start:end]

		fetched := make([]Page, len(batch))
		errs := make([]error, len(batch))
		done := make(chan int, len(batch))
		for i, res := range batch {
			go func(i int, res searchResult) {
				defer func() { done <- i }()
				content, err := c.fetchPage(ctx, res.URL)
				if err != nil {
					errs[i] = err
					return
				}
				fetched[i] = Page{Title: res.Title, URL: res.URL, Content: content}
			}(i, res)
		}
		for range batch {
			<-done
		}

		for i := range batch {
			if errs[i] != nil {
				slog.Warn("failed to fetch search result, skipping",
					"url", batch[i].URL,
					"error", errs[i],
				)
				continue
			}
			pages = append(pages, fetched[i])
		}
	}

	return pages, nil
}

// lookup queries the search endpoint for links.
func (c *Client) lookup(ctx context.Context, query string) ([]searchResult, error) {
	u := c.endpoint + "?q=" + url.QueryEscape(strings.TrimSpace(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search endpoint returned HTTP %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}
	return results, nil
}

// fetchPage reads one page and reduces it to text.
func (c *Client) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}

	return pageText(string(body)), nil
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// pageText strips markup and collapses whitespace. Good enough to ground a
// completion; anything smarter belongs to a real extraction service.
func pageText(body string) string {
	body = scriptRe.ReplaceAllString(body, " ")
	body = tagRe.ReplaceAllString(body, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(body, " "))
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
