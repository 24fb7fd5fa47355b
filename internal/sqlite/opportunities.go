package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/engineroomai/scout/internal/scout"
)

const (
	opportunityNamespace = "-opp"
	dismissalNamespace   = "-dis"
	bookmarkNamespace    = "-bkm"
)

const defaultListLimit = 50

// SaveOpportunities inserts each candidate not already present by title or
// non-empty URL. Each check+insert is its own statement; the pipeline is the
// only writer so there's no cross-candidate transaction.
func (r Repo) SaveOpportunities(ctx context.Context, candidates []scout.Candidate) (int, error) {
	const existsQ = `SELECT COUNT(*) FROM opportunities
	WHERE LOWER(TRIM(title)) = ? OR (? != '' AND url = ?);`
	const insertQ = `INSERT INTO opportunities (id, title, description, source, url, score, domain, tags, status, found_date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	added := 0
	for _, c := range candidates {
		var (
			normTitle = strings.ToLower(strings.TrimSpace(c.Title))
			url       = strings.TrimSpace(c.URL)
		)

		var count int
		if err := r.db.GetContext(ctx, &count, existsQ, normTitle, url, url); err != nil {
			return added, fmt.Errorf("error checking for existing opportunity: %s", err)
		}
		if count > 0 {
			continue
		}

		id := fmt.Sprintf("%s%s", uuid.NewString(), opportunityNamespace)
		if _, err := r.db.ExecContext(ctx, insertQ,
			id, c.Title, c.Description, c.Source, url, c.Score, c.Domain, c.Tags,
			scout.StatusNew, time.Now().UTC(),
		); err != nil {
			return added, fmt.Errorf("error inserting opportunity: %s", err)
		}
		added++
	}

	return added, nil
}

// Opportunities lists rows matching args. Dismissed rows are always excluded,
// matching the dashboard's default view.
func (r Repo) Opportunities(ctx context.Context, args scout.QueryArgs) ([]scout.Opportunity, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := sq.Select("*").
		From("opportunities").
		Where(sq.GtOrEq{"score": args.MinScore}).
		Where("id NOT IN (SELECT opportunity_id FROM dismissed)").
		OrderBy("score DESC", "found_date DESC").
		Limit(uint64(limit))
	if args.Status != "" {
		q = q.Where(sq.Eq{"status": args.Status})
	}

	query, qArgs, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	opps := []scout.Opportunity{}
	if err := r.db.SelectContext(ctx, &opps, query, qArgs...); err != nil {
		return nil, fmt.Errorf("error selecting opportunities: %s", err)
	}

	return opps, nil
}

// TopOpportunities returns the best unseen rows for the email digest.
func (r Repo) TopOpportunities(ctx context.Context, limit int) ([]scout.Opportunity, error) {
	return r.Opportunities(ctx, scout.QueryArgs{
		MinScore: 5.0,
		Status:   scout.StatusNew,
		Limit:    limit,
	})
}

// Bookmarked lists bookmarked opportunities, most recently bookmarked first.
func (r Repo) Bookmarked(ctx context.Context) ([]scout.Opportunity, error) {
	const q = `SELECT o.* FROM opportunities o
	INNER JOIN bookmarked b ON o.id = b.opportunity_id
	ORDER BY b.bookmarked_date DESC;`

	opps := []scout.Opportunity{}
	if err := r.db.SelectContext(ctx, &opps, q); err != nil {
		return nil, fmt.Errorf("error selecting bookmarked opportunities: %s", err)
	}

	return opps, nil
}

// Dismiss appends a dismissal log row and flips the row's status. An unknown
// id still gets a log row and updates nothing; callers don't treat that as an
// error.
func (r Repo) Dismiss(ctx context.Context, id string) error {
	const logQ = `INSERT INTO dismissed (id, opportunity_id, dismissed_date) VALUES (?, ?, ?);`
	const statusQ = `UPDATE opportunities SET status = ? WHERE id = ?;`

	logID := fmt.Sprintf("%s%s", uuid.NewString(), dismissalNamespace)
	if _, err := r.db.ExecContext(ctx, logQ, logID, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("error logging dismissal: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, statusQ, scout.StatusDismissed, id); err != nil {
		return fmt.Errorf("error updating opportunity status: %s", err)
	}

	return nil
}

// Bookmark appends a bookmark log row and flips the row's status.
func (r Repo) Bookmark(ctx context.Context, id string) error {
	const logQ = `INSERT INTO bookmarked (id, opportunity_id, bookmarked_date) VALUES (?, ?, ?);`
	const statusQ = `UPDATE opportunities SET status = ? WHERE id = ?;`

	logID := fmt.Sprintf("%s%s", uuid.NewString(), bookmarkNamespace)
	if _, err := r.db.ExecContext(ctx, logQ, logID, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("error logging bookmark: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, statusQ, scout.StatusBookmarked, id); err != nil {
		return fmt.Errorf("error updating opportunity status: %s", err)
	}

	return nil
}

// HistorySnapshot reads everything the filter needs to dedup a new batch:
// all stored titles (lowercased, trimmed), all non-empty URLs (trimmed,
// exact), and the ids of dismissed opportunities.
func (r Repo) HistorySnapshot(ctx context.Context) (scout.History, error) {
	hist := scout.NewHistory()

	var rows []struct {
		Title string `db:"title"`
		URL   string `db:"url"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT title, url FROM opportunities;`); err != nil {
		return scout.History{}, fmt.Errorf("error selecting history rows: %s", err)
	}
	for _, row := range rows {
		hist.Titles[strings.ToLower(strings.TrimSpace(row.Title))] = struct{}{}
		if url := strings.TrimSpace(row.URL); url != "" {
			hist.URLs[url] = struct{}{}
		}
	}

	var dismissed []string
	if err := r.db.SelectContext(ctx, &dismissed, `SELECT opportunity_id FROM dismissed;`); err != nil {
		return scout.History{}, fmt.Errorf("error selecting dismissed ids: %s", err)
	}
	for _, id := range dismissed {
		hist.DismissedIDs[id] = struct{}{}
	}

	return hist, nil
}

// Stats aggregates the dashboard counters.
func (r Repo) Stats(ctx context.Context) (scout.Stats, error) {
	var stats scout.Stats

	counts := []struct {
		dst   *int
		query string
	}{
		{&stats.Total, `SELECT COUNT(*) FROM opportunities;`},
		{&stats.New, `SELECT COUNT(*) FROM opportunities WHERE status = 'new';`},
		{&stats.Bookmarked, `SELECT COUNT(*) FROM bookmarked;`},
		{&stats.Dismissed, `SELECT COUNT(*) FROM dismissed;`},
		{&stats.Scans, `SELECT COUNT(*) FROM scan_log;`},
	}
	for _, c := range counts {
		if err := r.db.GetContext(ctx, c.dst, c.query); err != nil {
			return scout.Stats{}, fmt.Errorf("error counting for stats: %s", err)
		}
	}

	var lastScan []time.Time
	if err := r.db.SelectContext(ctx, &lastScan, `SELECT scan_date FROM scan_log ORDER BY scan_date DESC LIMIT 1;`); err != nil {
		return scout.Stats{}, fmt.Errorf("error selecting last scan date: %s", err)
	}
	if len(lastScan) > 0 {
		stats.LastScan = lastScan[0]
	}

	return stats, nil
}
