package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/engineroomai/scout/internal/scout"
)

// How many of a feed's newest entries are worth looking at per run.
const feedItemLimit = 25

func (s *Scraper) fetchFeed(ctx context.Context, src FeedSource) ([]scout.RawItem, error) {
	resp, err := s.get(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("error getting feed url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	feed, err := s.feedParser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing feed: %w", err)
	}

	items := []scout.RawItem{}
	for _, entry := range feed.Items {
		if len(items) >= feedItemLimit {
			break
		}

		desc := sanitize(entry.Description)
		if desc == "" {
			desc = sanitize(entry.Content)
		}
		if desc == "" && entry.Link != "" {
			// Some feeds ship bare links. Pull a readable excerpt so the
			// analyzer has something to work with.
			desc = s.excerpt(ctx, entry.Link)
		}

		items = append(items, scout.RawItem{
			Title:       sanitize(entry.Title),
			Description: desc,
			URL:         entry.Link,
			Source:      src.Name,
			Published:   entry.Published,
			ScrapedAt:   time.Now().UTC(),
		})
	}

	return items, nil
}

// excerpt fetches the page at rawURL and extracts readable text, caching the
// result by URL. Any failure returns an empty string.
func (s *Scraper) excerpt(ctx context.Context, rawURL string) string {
	if cached, ok := s.excerpts.Get(rawURL); ok {
		return cached
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	resp, err := s.get(ctx, rawURL)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	parser := readability.NewParser()
	article, err := parser.Parse(resp.Body, u)
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > 500 {
		text = text[:500]
	}
	s.excerpts.Add(rawURL, text)

	return text
}
