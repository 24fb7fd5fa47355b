package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	scouterrs "github.com/engineroomai/scout/internal/errors"
	"github.com/engineroomai/scout/internal/pipeline"
	"github.com/engineroomai/scout/internal/scout"
	"github.com/engineroomai/scout/internal/serverutil"
)

type scanAccepted struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type scanRejected struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	StartedAt time.Time `json:"started_at"`
}

// postScan kicks off a scan in the background and returns immediately. A
// trigger arriving while a scan is in flight gets a conflict response
// carrying the running scan's start time.
func (s *Server) postScan(w http.ResponseWriter, r *http.Request) error {
	err := s.coordinator.Trigger(r.Context())

	var running *pipeline.AlreadyRunningError
	if errors.As(err, &running) {
		return serverutil.WriteJSON(w, http.StatusConflict, scanRejected{
			Status:    "already_running",
			Message:   "Scan is already in progress",
			StartedAt: running.StartedAt,
		})
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusAccepted, scanAccepted{
		Status:  "started",
		Message: "Scan started in background. Check /api/scan/status for progress.",
	})
}

func (s *Server) getScanStatus(w http.ResponseWriter, r *http.Request) error {
	return serverutil.WriteJSON(w, http.StatusOK, s.coordinator.State())
}

func (s *Server) getOpportunities(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	q := r.URL.Query()

	if q.Get("filter") == "bookmarked" {
		opps, err := s.repo.Bookmarked(ctx)
		if err != nil {
			return err
		}
		return serverutil.WriteJSON(w, http.StatusOK, opps)
	}

	args := scout.QueryArgs{
		Status: scout.Status(q.Get("status")),
	}
	if raw := q.Get("min_score"); raw != "" {
		minScore, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return scouterrs.E("invalid min_score", http.StatusBadRequest,
				scouterrs.Detail{Field: "min_score", Error: err.Error()})
		}
		args.MinScore = minScore
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return scouterrs.E("invalid limit", http.StatusBadRequest,
				scouterrs.Detail{Field: "limit", Error: err.Error()})
		}
		args.Limit = limit
	}

	opps, err := s.repo.Opportunities(ctx, args)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, opps)
}

// postDismiss flips an opportunity to dismissed. An unknown id is a silent
// no-op in the store, so this always reports success.
func (s *Server) postDismiss(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["id"]
	if err := s.repo.Dismiss(r.Context(), id); err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "dismissed",
		"id":     id,
	})
}

func (s *Server) postBookmark(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["id"]
	if err := s.repo.Bookmark(r.Context(), id); err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "bookmarked",
		"id":     id,
	})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) error {
	stats, err := s.repo.Stats(r.Context())
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, stats)
}

type scanHistoryEntry struct {
	ScanDate           time.Time `json:"scan_date"`
	Sources            string    `json:"sources_scanned"`
	ItemsFound         int       `json:"items_found"`
	OpportunitiesAdded int       `json:"opportunities_added"`
	DurationSeconds    float64   `json:"duration_seconds"`
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) error {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return scouterrs.E("invalid limit", http.StatusBadRequest,
				scouterrs.Detail{Field: "limit", Error: err.Error()})
		}
		limit = parsed
	}

	recs, err := s.repo.ScanHistory(r.Context(), limit)
	if err != nil {
		return err
	}

	entries := make([]scanHistoryEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, scanHistoryEntry{
			ScanDate:           rec.ScanDate,
			Sources:            rec.Sources,
			ItemsFound:         rec.ItemsFound,
			OpportunitiesAdded: rec.OpportunitiesAdded,
			DurationSeconds:    rec.Duration.Seconds(),
		})
	}

	return serverutil.WriteJSON(w, http.StatusOK, entries)
}

type healthResp struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	ScanRunning bool   `json:"scan_running"`
	NextScan    string `json:"next_scan,omitempty"`
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) error {
	resp := healthResp{
		Status:      "ok",
		Service:     "scout",
		ScanRunning: s.coordinator.State().Running,
	}
	if s.nextScan != nil {
		if next := s.nextScan(); !next.IsZero() {
			resp.NextScan = next.Format(time.RFC3339)
		}
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}
