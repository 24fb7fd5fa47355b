package digest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engineroomai/scout/internal/scout"
)

type fakeRecorder struct {
	recorded []scout.EmailRecord
}

func (f *fakeRecorder) RecordEmail(_ context.Context, rec scout.EmailRecord) error {
	f.recorded = append(f.recorded, rec)
	return nil
}

func TestSendDigest_NoClient(t *testing.T) {
	rec := &fakeRecorder{}
	m := New("", "scout@resend.dev", "founder@example.com", rec)

	sent := m.SendDigest(context.Background(), []scout.Opportunity{{Title: "A", Score: 8}})

	assert.False(t, sent)
	assert.Empty(t, rec.recorded)
}

func TestSendDigest_NoOpportunities(t *testing.T) {
	rec := &fakeRecorder{}
	m := New("re_test_key", "scout@resend.dev", "founder@example.com", rec)

	sent := m.SendDigest(context.Background(), nil)

	assert.False(t, sent)
	assert.Empty(t, rec.recorded)
}

func TestBuildDigestHTML(t *testing.T) {
	html, err := buildDigestHTML([]scout.Opportunity{
		{
			Title:       "Invoice chasing agent",
			Description: "Automates follow-ups for freelancers.",
			URL:         "https://example.com/invoices",
			Score:       8.5,
			Domain:      scout.DomainAgentTools,
			Tags:        "b2b,automation",
		},
		{
			Title:  "Mystery domain entry",
			Score:  6,
			Domain: "something_else",
		},
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Invoice chasing agent")
	assert.Contains(t, html, "Automates follow-ups for freelancers.")
	assert.Contains(t, html, "https://example.com/invoices")
	assert.Contains(t, html, "Agent Tools")
	assert.Contains(t, html, "#6366f1")
	// Unknown domains fall back to the neutral badge.
	assert.Contains(t, html, "something_else")
	assert.Contains(t, html, "#6b7280")
	assert.Contains(t, html, "8.5")
}

func TestBuildDigestHTML_EscapesContent(t *testing.T) {
	html, err := buildDigestHTML([]scout.Opportunity{
		{Title: `<script>alert("x")</script>`, Score: 7, Domain: scout.DomainAgentTools},
	})
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
}

func TestScoreBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("█", 6)+strings.Repeat("░", 4), scoreBar(6.4))
	assert.Equal(t, strings.Repeat("░", 10), scoreBar(0))
	assert.Equal(t, strings.Repeat("█", 10), scoreBar(12))
	assert.Equal(t, strings.Repeat("░", 10), scoreBar(-3))
}
