package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maila-ai/ses-forwarder/internal/search"
)

// answerMaxTokens bounds the drafted reply.
const answerMaxTokens = 50000

// queryMaxTokens bounds the search-query completion; the query is one line.
const queryMaxTokens = 5000

// answerTemperature is the sampling temperature for the final draft.
const answerTemperature = 0.74

// queryTemperature is the sampling temperature for the search query.
const queryTemperature = 0.5

// Drafter produces a grounded reply for an inbound email: first a short
// completion turns the email into a search query, then the fetched page
// contents are folded into the final drafting prompt.
type Drafter struct {
	client       *Client
	searcher     search.Searcher
	model        string
	instantModel string
	signature    string
}

// NewDrafter creates a Drafter. The searcher may be nil, in which case
// replies are drafted without web grounding.
func NewDrafter(client *Client, searcher search.Searcher, model, instantModel, signature string) *Drafter {
	return &Drafter{
		client:       client,
		searcher:     searcher,
		model:        model,
		instantModel: instantModel,
		signature:    signature,
	}
}

// Draft produces the reply body for the given email text.
func (d *Drafter) Draft(ctx context.Context, emailText string) (string, error) {
	sections, err := d.gatherContext(ctx, emailText)
	if err != nil {
		return "", err
	}

	answer, err := d.client.Complete(ctx, CompletionRequest{
		Prompt:        HumanPrompt + " " + AnswerPrompt(sections, emailText) + AIPrompt + ResponsePriming,
		Model:         d.model,
		MaxTokens:     answerMaxTokens,
		Temperature:   answerTemperature,
		StopSequences: []string{ResponseStop, HumanPrompt},
	})
	if err != nil {
		return "", fmt.Errorf("failed to draft reply: %w", err)
	}

	if d.signature != "" {
		answer = strings.ReplaceAll(answer, "[Your Name]", d.signature)
	}
	return strings.TrimSpace(answer), nil
}

// gatherContext resolves the email to a search query and formats the
// fetched pages into resource sections. Grounding is best-effort: a failed
// search degrades to an empty resource block with a warning.
func (d *Drafter) gatherContext(ctx context.Context, emailText string) (string, error) {
	if d.searcher == nil {
		return "", nil
	}

	query, err := d.client.Complete(ctx, CompletionRequest{
		Prompt:        HumanPrompt + " " + SearchQueryPrompt(emailText) + AIPrompt + SearchQueryPriming,
		Model:         d.instantModel,
		MaxTokens:     queryMaxTokens,
		Temperature:   queryTemperature,
		StopSequences: []string{"\n", HumanPrompt},
	})
	if err != nil {
		return "", fmt.Errorf("failed to derive search query: %w", err)
	}

	pages, err := d.searcher.Search(ctx, query)
	if err != nil {
		slog.Warn("search failed, drafting without grounding", "error", err)
		return "", nil
	}

	return FormatSections(pages), nil
}

// FormatSections renders fetched pages as the resource sections the
// drafting prompt expects.
func FormatSections(pages []search.Page) string {
	sections := make([]string, 0, len(pages))
	for i, page := range pages {
		sections = append(sections, fmt.Sprintf(`
<section>
Page number: %d
Title: %s
Content: %s
Link: %s</section>`, i, page.Title, page.Content, page.URL))
	}
	return strings.Join(sections, "---\n")
}
