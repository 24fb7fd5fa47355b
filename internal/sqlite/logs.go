package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/engineroomai/scout/internal/scout"
)

const (
	scanNamespace  = "-scan"
	emailNamespace = "-mail"
)

// RecordScan appends one row to the scan log. Called once per run no matter
// how the run ended.
func (r Repo) RecordScan(ctx context.Context, rec scout.ScanRecord) error {
	const q = `INSERT INTO scan_log (id, scan_date, sources_scanned, items_found, opportunities_added, duration)
	VALUES (?, ?, ?, ?, ?, ?);`

	rec.ID = fmt.Sprintf("%s%s", uuid.NewString(), scanNamespace)
	if rec.ScanDate.IsZero() {
		rec.ScanDate = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.ScanDate, rec.Sources, rec.ItemsFound, rec.OpportunitiesAdded, rec.Duration,
	); err != nil {
		return fmt.Errorf("error recording scan: %s", err)
	}

	return nil
}

// RecordEmail appends one row to the email log.
func (r Repo) RecordEmail(ctx context.Context, rec scout.EmailRecord) error {
	const q = `INSERT INTO email_log (id, sent_date, opportunity_count, subject) VALUES (?, ?, ?, ?);`

	rec.ID = fmt.Sprintf("%s%s", uuid.NewString(), emailNamespace)
	if rec.SentDate.IsZero() {
		rec.SentDate = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, q, rec.ID, rec.SentDate, rec.OpportunityCount, rec.Subject); err != nil {
		return fmt.Errorf("error recording email: %s", err)
	}

	return nil
}

// ScanHistory returns the most recent scans, newest first.
func (r Repo) ScanHistory(ctx context.Context, limit int) ([]scout.ScanRecord, error) {
	const q = `SELECT * FROM scan_log ORDER BY scan_date DESC LIMIT ?;`

	if limit <= 0 {
		limit = 10
	}
	recs := []scout.ScanRecord{}
	if err := r.db.SelectContext(ctx, &recs, q, limit); err != nil {
		return nil, fmt.Errorf("error selecting scan history: %s", err)
	}

	return recs, nil
}
