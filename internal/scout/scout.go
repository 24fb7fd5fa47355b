// Package scout holds the domain types for the opportunity pipeline:
// raw scraped items, extracted candidates, persisted opportunities, and
// the repository contract they flow through.
package scout

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("resource not found")
)

// Status an opportunity can carry. A row starts as new and is flipped by
// dismiss/bookmark actions; it is never deleted.
type Status string

const (
	StatusNew        Status = "new"
	StatusDismissed  Status = "dismissed"
	StatusBookmarked Status = "bookmarked"
)

// The domains the analyzer buckets opportunities into. Treated as an open
// set on read since the model occasionally invents its own.
const (
	DomainAgentTools    = "agent_tools"
	DomainAgentServices = "agent_services"
	DomainAgentInfra    = "agent_infra"
	DomainAgentProducts = "agent_products"
)

type (
	// RawItem is a single item pulled from one of the scrape sources,
	// before any analysis has happened.
	RawItem struct {
		Title       string
		Description string
		URL         string
		Source      string
		Published   string
		ScrapedAt   time.Time

		// Engagement signals, zero when the source doesn't carry them.
		Engagement int
		Comments   int
	}

	// Candidate is an opportunity proposed by the analyzer. It has no ID
	// or status yet; those are assigned at persistence time.
	Candidate struct {
		Title       string
		Description string
		Score       float64
		Domain      string
		Tags        string
		Source      string
		URL         string
	}

	// Opportunity is a persisted, deduplicated candidate.
	Opportunity struct {
		ID          string    `db:"id"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		Source      string    `db:"source"`
		URL         string    `db:"url"`
		Score       float64   `db:"score"`
		Domain      string    `db:"domain"`
		Tags        string    `db:"tags"`
		Status      Status    `db:"status"`
		FoundDate   time.Time `db:"found_date"`
	}

	// ScanRecord is written exactly once per pipeline run, including runs
	// that abort early with no data.
	ScanRecord struct {
		ID                 string        `db:"id"`
		ScanDate           time.Time     `db:"scan_date"`
		Sources            string        `db:"sources_scanned"`
		ItemsFound         int           `db:"items_found"`
		OpportunitiesAdded int           `db:"opportunities_added"`
		Duration           time.Duration `db:"duration"`
	}

	// EmailRecord is written only after a digest send has succeeded.
	EmailRecord struct {
		ID               string    `db:"id"`
		SentDate         time.Time `db:"sent_date"`
		OpportunityCount int       `db:"opportunity_count"`
		Subject          string    `db:"subject"`
	}

	// History is a point-in-time snapshot of everything already persisted,
	// in the shape the filter wants: normalized titles, exact URLs, and the
	// ids of dismissed opportunities.
	History struct {
		Titles       map[string]struct{}
		URLs         map[string]struct{}
		DismissedIDs map[string]struct{}
	}

	// QueryArgs narrows an opportunity listing.
	QueryArgs struct {
		MinScore float64
		Status   Status // empty means any
		Limit    int
	}

	// Stats is the aggregate view backing the dashboard.
	Stats struct {
		Total      int       `json:"total"`
		New        int       `json:"new"`
		Bookmarked int       `json:"bookmarked"`
		Dismissed  int       `json:"dismissed"`
		Scans      int       `json:"scans"`
		LastScan   time.Time `json:"last_scan"`
	}

	// Repository is the persistence contract for the pipeline and the
	// control surface.
	Repository interface {
		// SaveOpportunities inserts each candidate that doesn't already
		// exist by title (case/whitespace-insensitive) or non-empty URL
		// (exact). Returns the number of rows actually inserted; duplicate
		// or empty input is a no-op, never an error.
		SaveOpportunities(ctx context.Context, candidates []Candidate) (int, error)

		// Opportunities lists rows matching args, always excluding
		// dismissed ones, ordered by score then found date, both descending.
		Opportunities(ctx context.Context, args QueryArgs) ([]Opportunity, error)

		// TopOpportunities returns the best unseen rows for the digest.
		TopOpportunities(ctx context.Context, limit int) ([]Opportunity, error)

		// Bookmarked lists bookmarked opportunities, most recently
		// bookmarked first.
		Bookmarked(ctx context.Context) ([]Opportunity, error)

		// Dismiss and Bookmark append a log row and flip the row's status.
		// An unknown id updates nothing and is not an error.
		Dismiss(ctx context.Context, id string) error
		Bookmark(ctx context.Context, id string) error

		HistorySnapshot(ctx context.Context) (History, error)

		RecordScan(ctx context.Context, rec ScanRecord) error
		RecordEmail(ctx context.Context, rec EmailRecord) error
		ScanHistory(ctx context.Context, limit int) ([]ScanRecord, error)

		Stats(ctx context.Context) (Stats, error)
	}
)

// NewHistory returns an empty snapshot whose sets are ready for use.
func NewHistory() History {
	return History{
		Titles:       map[string]struct{}{},
		URLs:         map[string]struct{}{},
		DismissedIDs: map[string]struct{}{},
	}
}
