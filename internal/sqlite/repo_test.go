package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/engineroomai/scout/internal/migrations"
	"github.com/engineroomai/scout/internal/scout"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()

	dbx, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// One connection, or every statement would see a different empty
	// in-memory database.
	dbx.SetMaxOpenConns(1)
	t.Cleanup(func() { dbx.Close() })

	require.NoError(t, migrations.Run(dbx))

	return New(dbx)
}

func TestSaveOpportunities_Idempotent(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	candidates := []scout.Candidate{
		{Title: "Agent Tool", Score: 6, URL: "https://example.com/a"},
		{Title: "Agent Service", Score: 7},
	}

	added, err := repo.SaveOpportunities(ctx, candidates)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// The exact same batch again adds nothing.
	added, err = repo.SaveOpportunities(ctx, candidates)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestSaveOpportunities_TitleDedupIgnoresCaseAndSpace(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	added, err := repo.SaveOpportunities(ctx, []scout.Candidate{{Title: "Agent Tool", Score: 6}})
	require.NoError(t, err)
	require.Equal(t, 1, added)

	added, err = repo.SaveOpportunities(ctx, []scout.Candidate{{Title: " agent tool ", Score: 8}})
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestSaveOpportunities_URLDedupIsExact(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	added, err := repo.SaveOpportunities(ctx, []scout.Candidate{
		{Title: "First", Score: 6, URL: "https://example.com/tool"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, added)

	// Same URL, different title: duplicate.
	added, err = repo.SaveOpportunities(ctx, []scout.Candidate{
		{Title: "Second", Score: 6, URL: "https://example.com/tool"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	// Differing query string is a distinct URL.
	added, err = repo.SaveOpportunities(ctx, []scout.Candidate{
		{Title: "Third", Score: 6, URL: "https://example.com/tool?ref=hn"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestSaveOpportunities_EmptyURLNeverMatches(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	added, err := repo.SaveOpportunities(ctx, []scout.Candidate{
		{Title: "One", Score: 6},
		{Title: "Two", Score: 6},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
}

func TestSaveOpportunities_EmptyInput(t *testing.T) {
	added, err := newTestRepo(t).SaveOpportunities(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestOpportunities_FilterAndOrder(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	_, err := repo.SaveOpportunities(ctx, []scout.Candidate{
		{Title: "Low", Score: 3},
		{Title: "Mid", Score: 6},
		{Title: "High", Score: 9},
	})
	require.NoError(t, err)

	got, err := repo.Opportunities(ctx, scout.QueryArgs{MinScore: 5})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Highest score first.
	assert.Equal(t, "High", got[0].Title)
	assert.Equal(t, "Mid", got[1].Title)

	// Limit applies after ordering.
	got, err = repo.Opportunities(ctx, scout.QueryArgs{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "High", got[0].Title)
}

func TestOpportunities_ExcludesDismissed(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	_, err := repo.SaveOpportunities(ctx, []scout.Candidate{
		{Title: "Keep", Score: 6},
		{Title: "Drop", Score: 9},
	})
	require.NoError(t, err)

	all, err := repo.Opportunities(ctx, scout.QueryArgs{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	var dropID string
	for _, opp := range all {
		if opp.Title == "Drop" {
			dropID = opp.ID
		}
	}
	require.NoError(t, repo.Dismiss(ctx, dropID))

	got, err := repo.Opportunities(ctx, scout.QueryArgs{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Keep", got[0].Title)
}

func TestDismiss_FlipsStatusAndLogs(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	_, err := repo.SaveOpportunities(ctx, []scout.Candidate{{Title: "A", Score: 6}})
	require.NoError(t, err)
	all, err := repo.Opportunities(ctx, scout.QueryArgs{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, repo.Dismiss(ctx, all[0].ID))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Dismissed)
	assert.Equal(t, 0, stats.New)

	hist, err := repo.HistorySnapshot(ctx)
	require.NoError(t, err)
	assert.Contains(t, hist.DismissedIDs, all[0].ID)
}

func TestDismiss_UnknownIDIsTolerated(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	_, err := repo.SaveOpportunities(ctx, []scout.Candidate{{Title: "A", Score: 6}})
	require.NoError(t, err)

	require.NoError(t, repo.Dismiss(ctx, "nope-opp"))
	require.NoError(t, repo.Bookmark(ctx, "also-nope-opp"))

	// The stored row is untouched.
	all, err := repo.Opportunities(ctx, scout.QueryArgs{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, scout.StatusNew, all[0].Status)
}

func TestBookmark_ShowsUpInBookmarked(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	_, err := repo.SaveOpportunities(ctx, []scout.Candidate{
		{Title: "A", Score: 6},
		{Title: "B", Score: 7},
	})
	require.NoError(t, err)
	all, err := repo.Opportunities(ctx, scout.QueryArgs{})
	require.NoError(t, err)

	var aID string
	for _, opp := range all {
		if opp.Title == "A" {
			aID = opp.ID
		}
	}
	require.NoError(t, repo.Bookmark(ctx, aID))

	marked, err := repo.Bookmarked(ctx)
	require.NoError(t, err)
	require.Len(t, marked, 1)
	assert.Equal(t, "A", marked[0].Title)
	assert.Equal(t, scout.StatusBookmarked, marked[0].Status)
}

func TestTopOpportunities(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	_, err := repo.SaveOpportunities(ctx, []scout.Candidate{
		{Title: "Below digest floor", Score: 4.5},
		{Title: "Digest worthy", Score: 8},
	})
	require.NoError(t, err)

	top, err := repo.TopOpportunities(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Digest worthy", top[0].Title)
}

func TestHistorySnapshot(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	_, err := repo.SaveOpportunities(ctx, []scout.Candidate{
		{Title: "  Agent Tool ", Score: 6, URL: " https://example.com/a "},
		{Title: "No URL", Score: 6},
	})
	require.NoError(t, err)

	hist, err := repo.HistorySnapshot(ctx)
	require.NoError(t, err)

	assert.Contains(t, hist.Titles, "agent tool")
	assert.Contains(t, hist.Titles, "no url")
	assert.Contains(t, hist.URLs, "https://example.com/a")
	assert.Len(t, hist.URLs, 1)
	assert.Empty(t, hist.DismissedIDs)
}

func TestRecordScanAndHistory(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	require.NoError(t, repo.RecordScan(ctx, scout.ScanRecord{
		Sources:            "product_hunt,reddit",
		ItemsFound:         12,
		OpportunitiesAdded: 3,
		Duration:           42 * time.Second,
	}))
	require.NoError(t, repo.RecordScan(ctx, scout.ScanRecord{
		ScanDate: time.Now().UTC().Add(time.Minute),
		Sources:  "product_hunt",
	}))

	recs, err := repo.ScanHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// Newest first.
	assert.Equal(t, "product_hunt", recs[0].Sources)
	assert.Equal(t, "product_hunt,reddit", recs[1].Sources)
	assert.Equal(t, 12, recs[1].ItemsFound)
	assert.Equal(t, 3, recs[1].OpportunitiesAdded)
	assert.Equal(t, 42*time.Second, recs[1].Duration)
}

func TestRecordEmailAndStats(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	require.NoError(t, repo.RecordEmail(ctx, scout.EmailRecord{
		OpportunityCount: 5,
		Subject:          "Scout Daily Brief",
	}))

	_, err := repo.SaveOpportunities(ctx, []scout.Candidate{{Title: "A", Score: 6}})
	require.NoError(t, err)
	require.NoError(t, repo.RecordScan(ctx, scout.ScanRecord{Sources: "product_hunt"}))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 1, stats.Scans)
	assert.False(t, stats.LastScan.IsZero())
}
