// Scout scans public feeds for agentic-web business opportunities.
//
// Once a day (and on demand through the API) it scrapes the configured
// sources, asks Claude to extract and score opportunity candidates, filters
// them against history, stores the survivors, and emails a digest of the
// best ones.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/oklog/run"
	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-envconfig"
	_ "golang.org/x/crypto/x509roots/fallback"
	_ "modernc.org/sqlite"

	"github.com/engineroomai/scout/internal/analyze"
	"github.com/engineroomai/scout/internal/digest"
	"github.com/engineroomai/scout/internal/logger"
	"github.com/engineroomai/scout/internal/migrations"
	"github.com/engineroomai/scout/internal/pipeline"
	"github.com/engineroomai/scout/internal/scrape"
	"github.com/engineroomai/scout/internal/server"
	scoutqlite "github.com/engineroomai/scout/internal/sqlite"
)

type config struct {
	Database     string `env:"DATABASE, default=scout.db"`
	Port         int    `env:"PORT, default=5002"`
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"SCOUT_EMAIL_FROM, default=scout@resend.dev"`
	EmailTo      string `env:"SCOUT_EMAIL_TO"`

	DashboardPassword string `env:"DASHBOARD_PASSWORD, required"`
	CookieHashKey     string `env:"COOKIE_HASH_KEY"`
	CookieBlockKey    string `env:"COOKIE_BLOCK_KEY"`
	HTTPSCookies      bool   `env:"HTTPS_COOKIES, default=false"`
	CorsHeader        string `env:"CORS_HEADER, default=*"`

	// Standard five-field cron spec, defaulting to 07:00 UTC daily.
	ScanSchedule string `env:"SCAN_SCHEDULE, default=0 7 * * *"`

	RedditSubreddits []string `env:"REDDIT_SUBREDDITS"`
	GumroadURL       string   `env:"GUMROAD_URL, default=https://gumroad.com/discover"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	// Determine which logger format to use
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, nil)
	if cfg.LoggerFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	l := slog.New(logger.NewContextHandler(handler))
	slog.SetDefault(l)

	if err := runApp(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func runApp(ctx context.Context, cfg config) error {
	// Connect to the sqlite db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_txlock=immediate&_journal_mode=WAL&_busy_timeout=5000", cfg.Database))
	if err != nil {
		return fmt.Errorf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Migrate, always
	if err := migrations.Run(dbx); err != nil {
		return fmt.Errorf("error migrating: %s", err)
	}

	repo := scoutqlite.New(dbx)

	subs := cfg.RedditSubreddits
	if len(subs) == 0 {
		subs = []string{"SaaS", "smallbusiness", "Entrepreneur", "LocalLLaMA", "artificial"}
	}
	scraper := scrape.New(scrape.Config{
		Feeds:            scrape.DefaultFeeds(),
		RedditSubreddits: subs,
		GumroadURL:       cfg.GumroadURL,
	})

	if cfg.AnthropicAPIKey == "" {
		slog.Warn("ANTHROPIC_API_KEY not set, analysis calls will fail and scans will find nothing")
	}
	analyzer := analyze.New(cfg.AnthropicAPIKey)

	resendKey := cfg.ResendAPIKey
	if cfg.EmailTo == "" {
		slog.Info("SCOUT_EMAIL_TO not set, digests disabled")
		resendKey = ""
	}
	mailer := digest.New(resendKey, cfg.EmailFrom, cfg.EmailTo, repo)

	runner := pipeline.NewRunner(scraper, analyzer, mailer, repo)
	coordinator := pipeline.NewCoordinator(runner)

	// Schedule the daily scan. A trigger that lands while a scan is in
	// flight is skipped, not queued.
	scheduler := cron.New()
	entryID, err := scheduler.AddFunc(cfg.ScanSchedule, func() {
		var already *pipeline.AlreadyRunningError
		if err := coordinator.Trigger(ctx); errors.As(err, &already) {
			slog.Info("scheduled scan skipped, previous scan still running", "started_at", already.StartedAt)
		}
	})
	if err != nil {
		return fmt.Errorf("error scheduling scan: %s", err)
	}

	srvr := server.New(server.Config{
		Port:              cfg.Port,
		DashboardPassword: cfg.DashboardPassword,
		CookieHashKey:     cookieKey(cfg.CookieHashKey, 64),
		CookieBlockKey:    cookieKey(cfg.CookieBlockKey, 32),
		HttpsCookies:      cfg.HTTPSCookies,
		CorsHeader:        cfg.CorsHeader,
		NextScan: func() time.Time {
			return scheduler.Entry(entryID).Next
		},
	}, repo, coordinator)

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	g.Add(func() error {
		slog.Info("listening", "port", cfg.Port)
		if err := srvr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %s", err)
		}
		return nil
	}, func(error) {
		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srvr.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	})
	g.Add(func() error {
		slog.Info("scheduler started", "spec", cfg.ScanSchedule)
		scheduler.Run()
		return nil
	}, func(error) {
		<-scheduler.Stop().Done()
	})

	err = g.Run()
	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		slog.Info("shutting down", "signal", sigErr.Signal)
		return nil
	}

	return err
}

// cookieKey returns the configured key, generating a random one when unset
// so the server always boots; sessions then just don't survive restarts.
func cookieKey(configured string, size int) []byte {
	if configured != "" {
		return []byte(configured)
	}

	return securecookie.GenerateRandomKey(size)
}
