package scrape

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/engineroomai/scout/internal/scout"
)

const gumroadCardLimit = 20

// fetchGumroad scrapes the discover page for trending product cards. The
// selectors are intentionally loose since the page's markup shifts often.
func (s *Scraper) fetchGumroad(ctx context.Context) ([]scout.RawItem, error) {
	resp, err := s.get(ctx, s.cfg.GumroadURL)
	if err != nil {
		return nil, fmt.Errorf("error getting discover page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing discover page: %w", err)
	}

	items := []scout.RawItem{}
	doc.Find(`article, [class*="product"], [class*="card"]`).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		title := card.Find(`h2, h3, [class*="title"]`).First().Text()
		if sanitize(title) == "" {
			return true
		}

		desc := card.Find(`p, [class*="desc"], [class*="summary"]`).First().Text()
		link, _ := card.Find("a[href]").First().Attr("href")

		items = append(items, scout.RawItem{
			Title:       sanitize(title),
			Description: sanitize(desc),
			URL:         link,
			Source:      "gumroad",
			ScrapedAt:   time.Now().UTC(),
		})

		return len(items) < gumroadCardLimit
	})

	return items, nil
}
