// Package filter removes low-scoring and duplicate candidates before they
// reach the store. It is a pure function over a batch and a history
// snapshot; nothing here touches the database.
package filter

import (
	"strings"

	"github.com/engineroomai/scout/internal/scout"
)

// MinScore is the floor a candidate must reach to survive filtering. The
// check is closed: a candidate scoring exactly MinScore is kept.
const MinScore = 4.0

// Apply filters candidates in input order. A candidate is dropped when its
// score is below MinScore, when its normalized title was already seen earlier
// in this batch (first occurrence wins, regardless of score), when its
// normalized title exists in history, or when its URL is non-empty and
// matches a stored URL exactly. Survivors keep their relative order.
func Apply(candidates []scout.Candidate, hist scout.History) []scout.Candidate {
	filtered := []scout.Candidate{}
	seenTitles := map[string]struct{}{}

	for _, c := range candidates {
		if c.Score < MinScore {
			continue
		}

		title := normalizeTitle(c.Title)
		if _, ok := seenTitles[title]; ok {
			continue
		}
		seenTitles[title] = struct{}{}

		if _, ok := hist.Titles[title]; ok {
			continue
		}

		// URLs are compared exactly: differing query strings are distinct.
		if url := strings.TrimSpace(c.URL); url != "" {
			if _, ok := hist.URLs[url]; ok {
				continue
			}
		}

		filtered = append(filtered, c)
	}

	return filtered
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
