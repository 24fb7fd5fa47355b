// Package pipeline sequences a scan end to end: scrape, analyze, filter,
// store, notify. One Runner invocation is one scan; the Coordinator ensures
// at most one scan is in flight at a time.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/engineroomai/scout/internal/filter"
	"github.com/engineroomai/scout/internal/scout"
)

// How many top opportunities the digest pulls, and how many of those the
// result previews.
const (
	digestLimit  = 5
	previewLimit = 3
)

const (
	StatusComplete = "complete"
	StatusNoData   = "no_data"
)

type (
	Scraper interface {
		FetchAll(ctx context.Context) ([]scout.RawItem, []string)
	}

	Analyzer interface {
		Extract(ctx context.Context, items []scout.RawItem) []scout.Candidate
	}

	Mailer interface {
		SendDigest(ctx context.Context, opportunities []scout.Opportunity) bool
	}

	Runner struct {
		scraper  Scraper
		analyzer Analyzer
		mailer   Mailer
		repo     scout.Repository
	}

	// Result summarizes one scan for the status endpoint and the logs.
	Result struct {
		Status                string              `json:"status"`
		ItemsScraped          int                 `json:"items_scraped"`
		OpportunitiesDetected int                 `json:"opportunities_detected"`
		AfterFiltering        int                 `json:"after_filtering"`
		NewStored             int                 `json:"new_stored"`
		EmailSent             bool                `json:"email_sent"`
		DurationSeconds       float64             `json:"duration_seconds"`
		Top                   []scout.Opportunity `json:"top_opportunities,omitempty"`
	}
)

func NewRunner(scraper Scraper, analyzer Analyzer, mailer Mailer, repo scout.Repository) *Runner {
	return &Runner{
		scraper:  scraper,
		analyzer: analyzer,
		mailer:   mailer,
		repo:     repo,
	}
}

// Scan runs the full pipeline once. The stages themselves degrade to empty
// results on failure, so the only errors surfaced here come from the store.
// A scan log row is written on every exit path, including early aborts.
func (r *Runner) Scan(ctx context.Context) (res Result, err error) {
	start := time.Now()
	slog.Info("scan starting")

	items, sources := r.scraper.FetchAll(ctx)
	res.ItemsScraped = len(items)

	defer func() {
		res.DurationSeconds = time.Since(start).Seconds()

		rec := scout.ScanRecord{
			Sources:            strings.Join(sources, ","),
			ItemsFound:         len(items),
			OpportunitiesAdded: res.NewStored,
			Duration:           time.Since(start),
		}
		if recErr := r.repo.RecordScan(context.WithoutCancel(ctx), rec); recErr != nil {
			slog.Error("error recording scan", "error", recErr)
		}

		slog.Info("scan finished",
			"status", res.Status,
			"items_scraped", res.ItemsScraped,
			"detected", res.OpportunitiesDetected,
			"after_filtering", res.AfterFiltering,
			"new_stored", res.NewStored,
			"email_sent", res.EmailSent,
			"duration", time.Since(start),
		)
	}()

	if len(items) == 0 {
		slog.Info("no items scraped, aborting scan")
		res.Status = StatusNoData
		return res, nil
	}

	candidates := r.analyzer.Extract(ctx, items)
	res.OpportunitiesDetected = len(candidates)

	hist, err := r.repo.HistorySnapshot(ctx)
	if err != nil {
		return res, err
	}
	filtered := filter.Apply(candidates, hist)
	res.AfterFiltering = len(filtered)

	added, err := r.repo.SaveOpportunities(ctx, filtered)
	if err != nil {
		return res, err
	}
	res.NewStored = added

	top, err := r.repo.TopOpportunities(ctx, digestLimit)
	if err != nil {
		return res, err
	}
	res.EmailSent = r.mailer.SendDigest(ctx, top)

	if len(top) > previewLimit {
		top = top[:previewLimit]
	}
	res.Top = top
	res.Status = StatusComplete

	return res, nil
}
