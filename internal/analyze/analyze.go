// Package analyze turns raw scraped items into scored opportunity
// candidates by asking Claude. Replies are free text that should contain a
// JSON array, so parsing is defensive rather than schema-trusting.
package analyze

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/engineroomai/scout/internal/scout"
)

//go:embed system_prompt.txt
var systemPrompt string

// Items per model call, sized to stay within token limits.
const batchSize = 30

type Analyzer struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func New(apiKey string) *Analyzer {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Analyzer{
		client:    &client,
		model:     anthropic.ModelClaudeSonnet4_5,
		maxTokens: 4000,
	}
}

// Extract analyzes items in batches and returns every candidate found, in
// batch order then intra-batch order. A failed batch contributes zero
// candidates and doesn't stop the remaining batches.
func (a *Analyzer) Extract(ctx context.Context, items []scout.RawItem) []scout.Candidate {
	if len(items) == 0 {
		return nil
	}

	var all []scout.Candidate
	for start := 0; start < len(items); start += batchSize {
		batch := items[start:min(start+batchSize, len(items))]

		candidates, err := a.analyzeBatch(ctx, batch)
		if err != nil {
			slog.Warn("batch analysis failed", "batch_start", start, "error", err)
			continue
		}
		all = append(all, candidates...)
	}

	slog.Info("analysis complete", "raw_items", len(items), "candidates", len(all))
	return all
}

func (a *Analyzer) analyzeBatch(ctx context.Context, items []scout.RawItem) ([]scout.Candidate, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserMessage(items))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error calling claude: %w", err)
	}

	var reply strings.Builder
	for _, content := range resp.Content {
		reply.WriteString(content.Text)
	}

	candidates, err := parseCandidates(reply.String())
	if err != nil {
		return nil, fmt.Errorf("error parsing claude reply: %w", err)
	}

	return candidates, nil
}

// buildUserMessage enumerates the batch for the model, including engagement
// signals when the source carried them.
func buildUserMessage(items []scout.RawItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these %d items scraped today and identify actionable opportunities.\n", len(items))

	for i, item := range items {
		fmt.Fprintf(&b, "\n--- Item %d ---\n", i+1)
		fmt.Fprintf(&b, "Source: %s\n", item.Source)
		fmt.Fprintf(&b, "Title: %s\n", item.Title)
		if desc := item.Description; desc != "" {
			if len(desc) > 300 {
				desc = desc[:300]
			}
			fmt.Fprintf(&b, "Description: %s\n", desc)
		}
		if item.Engagement > 0 {
			fmt.Fprintf(&b, "Upvotes: %d\n", item.Engagement)
		}
		if item.Comments > 0 {
			fmt.Fprintf(&b, "Comments: %d\n", item.Comments)
		}
	}

	b.WriteString(`
Return ONLY a valid JSON array of opportunity objects. Each object must have:
title, description, score (1-10), domain, tags, source_item

If no real opportunities found, return: []`)

	return b.String()
}
