package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/engineroomai/scout/internal/scout"
)

const redditPostLimit = 10

// Represents the slice of a subreddit listing response we care about.
type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				Permalink   string  `json:"permalink"`
				CreatedUTC  float64 `json:"created_utc"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				Stickied    bool    `json:"stickied"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// fetchReddit pulls the hot posts of each configured subreddit. Individual
// subreddit failures are logged and skipped.
func (s *Scraper) fetchReddit(ctx context.Context) []scout.RawItem {
	items := []scout.RawItem{}

	for _, sub := range s.cfg.RedditSubreddits {
		subItems, err := s.fetchSubreddit(ctx, sub)
		if err != nil {
			slog.Warn("subreddit scrape failed", "subreddit", sub, "error", err)
			continue
		}
		items = append(items, subItems...)
	}

	return items
}

func (s *Scraper) fetchSubreddit(ctx context.Context, sub string) ([]scout.RawItem, error) {
	url := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", s.cfg.RedditBaseURL, sub, redditPostLimit)

	resp, err := s.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("error getting subreddit listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("error decoding listing: %w", err)
	}

	items := []scout.RawItem{}
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Stickied {
			continue
		}

		desc := post.Selftext
		if len(desc) > 500 {
			desc = desc[:500]
		}

		items = append(items, scout.RawItem{
			Title:       sanitize(post.Title),
			Description: sanitize(desc),
			URL:         "https://reddit.com" + post.Permalink,
			Source:      fmt.Sprintf("reddit_r/%s", sub),
			Published:   time.Unix(int64(post.CreatedUTC), 0).UTC().Format(time.RFC3339),
			ScrapedAt:   time.Now().UTC(),
			Engagement:  post.Score,
			Comments:    post.NumComments,
		})
	}

	return items, nil
}
