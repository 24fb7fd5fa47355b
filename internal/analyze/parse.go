package analyze

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/engineroomai/scout/internal/scout"
)

// parseCandidates extracts a candidate list from a free-text model reply.
// The reply may be fenced in a markdown code block or surrounded by prose.
// Objects missing a title are discarded; every other field is coerced to its
// expected type instead of failing the batch.
func parseCandidates(text string) ([]scout.Candidate, error) {
	payload := extractJSON(text)
	if payload == "" {
		return nil, fmt.Errorf("no json array in reply")
	}

	var raw []map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling reply: %w", err)
	}

	candidates := []scout.Candidate{}
	for _, obj := range raw {
		title := asString(obj["title"])
		if title == "" {
			continue
		}

		domain := asString(obj["domain"])
		if domain == "" {
			domain = "unknown"
		}

		candidates = append(candidates, scout.Candidate{
			Title:       title,
			Description: asString(obj["description"]),
			Score:       asScore(obj["score"]),
			Domain:      domain,
			Tags:        asString(obj["tags"]),
			Source:      asString(obj["source_item"]),
			URL:         asString(obj["url"]),
		})
	}

	return candidates, nil
}

// extractJSON strips markdown fences and pulls the outermost JSON array out
// of surrounding prose. Returns "" when no array is present.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, "```json"); i >= 0 {
		text = text[i+len("```json"):]
	} else if i := strings.Index(text, "```"); i >= 0 {
		text = text[i+len("```"):]
	}
	if i := strings.Index(text, "```"); i >= 0 {
		text = text[:i]
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}

	return text[start : end+1]
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// asScore coerces the model's score to a float, defaulting to 0 when it sent
// something unusable.
func asScore(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		score, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return score
	default:
		return 0
	}
}
