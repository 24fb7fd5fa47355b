// Package scrape pulls raw items from the configured public sources: RSS
// feeds, Reddit's JSON API, and the Gumroad discover page. Every source is
// best-effort; a failing source contributes zero items and never aborts the
// run.
package scrape

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goaway "github.com/TwiN/go-away"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/engineroomai/scout/internal/scout"
)

const defaultUserAgent = "scout-intelligence-agent/1.0"

type (
	// FeedSource names a single RSS/Atom feed to pull.
	FeedSource struct {
		Name string
		URL  string
	}

	Config struct {
		Feeds            []FeedSource
		RedditSubreddits []string
		RedditBaseURL    string // overridable for tests
		GumroadURL       string // empty disables the source
		UserAgent        string
	}

	// Scraper fetches all sources sequentially, one attempt each per run.
	Scraper struct {
		client     *http.Client
		feedParser *gofeed.Parser
		cfg        Config

		// Readability excerpts are expensive to fetch, so they're cached
		// across runs keyed by URL.
		excerpts *lru.Cache[string, string]
	}
)

// DefaultFeeds is the stock source list: Product Hunt plus the two Hacker
// News firehoses.
func DefaultFeeds() []FeedSource {
	return []FeedSource{
		{Name: "product_hunt", URL: "https://www.producthunt.com/feed"},
		{Name: "hacker_news_best", URL: "https://hnrss.org/best"},
		{Name: "hacker_news_show", URL: "https://hnrss.org/show"},
	}
}

func New(cfg Config) *Scraper {
	if cfg.RedditBaseURL == "" {
		cfg.RedditBaseURL = "https://www.reddit.com"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	cache, _ := lru.New[string, string](1024)

	return &Scraper{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		feedParser: gofeed.NewParser(),
		cfg:        cfg,
		excerpts:   cache,
	}
}

// FetchAll scrapes every configured source in order and returns the combined
// items plus the names of the sources attempted. Failures are logged per
// source and degrade to zero items.
func (s *Scraper) FetchAll(ctx context.Context) ([]scout.RawItem, []string) {
	var (
		all     []scout.RawItem
		sources []string
	)

	for _, feed := range s.cfg.Feeds {
		sources = append(sources, feed.Name)
		items, err := s.fetchFeed(ctx, feed)
		if err != nil {
			slog.Warn("feed scrape failed", "source", feed.Name, "error", err)
			continue
		}
		all = append(all, keep(items)...)
		slog.Info("scraped feed", "source", feed.Name, "items", len(items))
	}

	if len(s.cfg.RedditSubreddits) > 0 {
		sources = append(sources, "reddit")
		items := s.fetchReddit(ctx)
		all = append(all, keep(items)...)
		slog.Info("scraped reddit", "items", len(items))
	}

	if s.cfg.GumroadURL != "" {
		sources = append(sources, "gumroad")
		items, err := s.fetchGumroad(ctx)
		if err != nil {
			slog.Warn("gumroad scrape failed", "error", err)
		} else {
			all = append(all, keep(items)...)
			slog.Info("scraped gumroad", "items", len(items))
		}
	}

	slog.Info("scrape complete", "total_items", len(all), "sources", sources)
	return all, sources
}

func (s *Scraper) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	return s.client.Do(req)
}

// keep drops items whose titles would pollute the analysis prompt.
func keep(items []scout.RawItem) []scout.RawItem {
	kept := items[:0]
	for _, item := range items {
		if goaway.IsProfane(item.Title) {
			slog.Debug("dropping profane item", "source", item.Source)
			continue
		}
		kept = append(kept, item)
	}

	return kept
}

var stripPolicy = bluemonday.StrictPolicy()

// Removes all html tags from the string, usually a description.
//
// Also limits the length of the string so there's not a massive chunk of text
// being fed to the model.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = stripPolicy.Sanitize(s)
	if len(s) > 2048 {
		s = s[:2048]
	}

	return s
}
