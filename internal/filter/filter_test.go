package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engineroomai/scout/internal/scout"
)

func TestApply_ScoreThresholdIsClosed(t *testing.T) {
	candidates := []scout.Candidate{
		{Title: "Exactly at threshold", Score: 4.0},
		{Title: "Just below threshold", Score: 3.99},
		{Title: "Well above", Score: 9},
	}

	got := Apply(candidates, scout.NewHistory())

	require.Len(t, got, 2)
	assert.Equal(t, "Exactly at threshold", got[0].Title)
	assert.Equal(t, "Well above", got[1].Title)
}

func TestApply_IntraBatchDuplicateKeepsFirst(t *testing.T) {
	// The later duplicate has a higher score but still loses.
	candidates := []scout.Candidate{
		{Title: "Agent Tool", Score: 5},
		{Title: " agent tool ", Score: 9},
	}

	got := Apply(candidates, scout.NewHistory())

	require.Len(t, got, 1)
	assert.Equal(t, 5.0, got[0].Score)
}

func TestApply_TitleHistoryIsCaseAndSpaceInsensitive(t *testing.T) {
	hist := scout.NewHistory()
	hist.Titles["agent tool"] = struct{}{}

	got := Apply([]scout.Candidate{
		{Title: "  AGENT Tool ", Score: 8},
		{Title: "Something Else", Score: 8},
	}, hist)

	require.Len(t, got, 1)
	assert.Equal(t, "Something Else", got[0].Title)
}

func TestApply_URLHistoryIsExactMatch(t *testing.T) {
	hist := scout.NewHistory()
	hist.URLs["https://example.com/tool"] = struct{}{}

	got := Apply([]scout.Candidate{
		{Title: "Stored URL", Score: 8, URL: "https://example.com/tool"},
		{Title: "Different query string", Score: 8, URL: "https://example.com/tool?ref=hn"},
		{Title: "No URL at all", Score: 8},
	}, hist)

	require.Len(t, got, 2)
	assert.Equal(t, "Different query string", got[0].Title)
	assert.Equal(t, "No URL at all", got[1].Title)
}

func TestApply_PreservesOrderAndHistory(t *testing.T) {
	hist := scout.NewHistory()
	candidates := []scout.Candidate{
		{Title: "c", Score: 5},
		{Title: "a", Score: 9},
		{Title: "b", Score: 7},
	}

	got := Apply(candidates, hist)

	// Input order survives, no resorting by score.
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Title)
	assert.Equal(t, "a", got[1].Title)
	assert.Equal(t, "b", got[2].Title)

	// The snapshot is not mutated.
	assert.Empty(t, hist.Titles)
	assert.Empty(t, hist.URLs)
}

func TestApply_EmptyInput(t *testing.T) {
	got := Apply(nil, scout.NewHistory())
	assert.Empty(t, got)
}
