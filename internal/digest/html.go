package digest

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/engineroomai/scout/internal/scout"
)

//go:embed digest.html.tmpl
var digestTemplateSrc string

var digestTemplate = template.Must(template.New("digest").Parse(digestTemplateSrc))

type (
	digestData struct {
		Date  string
		Count int
		Cards []cardData
	}

	cardData struct {
		Title       string
		Description string
		URL         string
		Tags        string
		Score       float64
		ScoreBar    string
		Color       template.CSS
		Label       string
	}
)

var domainPresentation = map[string]struct {
	color string
	label string
}{
	scout.DomainAgentTools:    {"#6366f1", "Agent Tools"},
	scout.DomainAgentServices: {"#10b981", "Agent Services"},
	scout.DomainAgentInfra:    {"#f59e0b", "Agent Infra"},
	scout.DomainAgentProducts: {"#8b5cf6", "Agent Products"},
}

func buildDigestHTML(opportunities []scout.Opportunity) (string, error) {
	data := digestData{
		Date:  time.Now().Format("Monday, January 2, 2006"),
		Count: len(opportunities),
	}

	for _, opp := range opportunities {
		pres, ok := domainPresentation[opp.Domain]
		if !ok {
			pres.color = "#6b7280"
			pres.label = opp.Domain
		}

		data.Cards = append(data.Cards, cardData{
			Title:       opp.Title,
			Description: opp.Description,
			URL:         opp.URL,
			Tags:        opp.Tags,
			Score:       opp.Score,
			ScoreBar:    scoreBar(opp.Score),
			Color:       template.CSS(pres.color),
			Label:       pres.label,
		})
	}

	var b strings.Builder
	if err := digestTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("error executing digest template: %s", err)
	}

	return b.String(), nil
}

// scoreBar renders a ten-segment bar like "██████░░░░" for a 6/10 score.
func scoreBar(score float64) string {
	filled := int(score)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
