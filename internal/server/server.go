// Package server exposes the control surface: triggering scans, querying
// their status, browsing opportunities, and acting on them.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"

	"github.com/engineroomai/scout/internal/pipeline"
	"github.com/engineroomai/scout/internal/scout"
	"github.com/engineroomai/scout/internal/serverutil"
)

type (
	// ScanCoordinator is the slice of the run coordinator the server needs.
	ScanCoordinator interface {
		Trigger(ctx context.Context) error
		State() pipeline.RunState
	}

	Server struct {
		*http.Server

		repo        scout.Repository
		coordinator ScanCoordinator
		nextScan    func() time.Time

		secureCookie *securecookie.SecureCookie
		password     string
		httpsCookies bool
	}

	Config struct {
		Port              int
		DashboardPassword string
		CookieHashKey     []byte
		CookieBlockKey    []byte
		HttpsCookies      bool
		CorsHeader        string

		// NextScan reports the next scheduled run for the health endpoint.
		// May be nil.
		NextScan func() time.Time
	}
)

func New(config Config, repo scout.Repository, coordinator ScanCoordinator) *Server {
	r := serverutil.ErrRouter{Router: mux.NewRouter()}

	srvr := Server{
		repo:         repo,
		coordinator:  coordinator,
		nextScan:     config.NextScan,
		secureCookie: securecookie.New(config.CookieHashKey, config.CookieBlockKey),
		password:     config.DashboardPassword,
		httpsCookies: config.HttpsCookies,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsHeader}),
				handlers.AllowCredentials(),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything
	r.HandleFuncE("/health", srvr.getHealth).Methods(http.MethodGet)
	r.HandleFuncE("/api/login", srvr.postLogin).Methods(http.MethodPost)
	r.HandleFuncE("/api/logout", srvr.getLogout).Methods(http.MethodGet)

	authed := serverutil.ErrRouter{Router: r.NewRoute().Subrouter()}
	authed.Use(requireSessionMiddleware(srvr.secureCookie))

	// Scan control
	authed.HandleFuncE("/api/scan", srvr.postScan).Methods(http.MethodPost)
	authed.HandleFuncE("/api/scan/status", srvr.getScanStatus).Methods(http.MethodGet)

	// Opportunity browsing and actions
	authed.HandleFuncE("/api/opportunities", srvr.getOpportunities).Methods(http.MethodGet)
	authed.HandleFuncE("/api/opportunities/{id}/dismiss", srvr.postDismiss).Methods(http.MethodPost)
	authed.HandleFuncE("/api/opportunities/{id}/bookmark", srvr.postBookmark).Methods(http.MethodPost)

	// Dashboard aggregates
	authed.HandleFuncE("/api/stats", srvr.getStats).Methods(http.MethodGet)
	authed.HandleFuncE("/api/history", srvr.getHistory).Methods(http.MethodGet)

	slog.Debug("configured scout server", "port", config.Port)

	return &srvr
}
