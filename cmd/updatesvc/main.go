// Entry point for the update-metadata and telemetry service: manifest
// resolution with dual-source fallback behind a TTL cache, event ingestion
// into SQLite, and daily aggregate queries.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/thankyou-cheems/bomana-update-service/config"
	"github.com/thankyou-cheems/bomana-update-service/dbopen"
	"github.com/thankyou-cheems/bomana-update-service/manifest"
	"github.com/thankyou-cheems/bomana-update-service/shield"
	"github.com/thankyou-cheems/bomana-update-service/telemetry"
	_ "modernc.org/sqlite"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Event store.
	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("stats db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := telemetry.NewStore(db)
	if err != nil {
		slog.Error("event store", "error", err)
		os.Exit(1)
	}

	// Manifest sources, ordered per MANIFEST_MODE.
	local := manifest.NewStore(cfg.ManifestDir)
	github := manifest.NewFetcher(manifest.FetcherConfig{
		Owner:   cfg.RepoOwner,
		Repo:    cfg.RepoName,
		Token:   cfg.GitHubToken,
		APIBase: cfg.GitHubAPIBase,
		Timeout: cfg.HTTPTimeout(),
	})

	var sources []manifest.Source
	switch cfg.Mode() {
	case config.ModeLocalOnly:
		sources = []manifest.Source{local}
	case config.ModeGitHubOnly:
		sources = []manifest.Source{github}
	case config.ModeLocalThenGitHub:
		sources = []manifest.Source{local, github}
	default:
		sources = []manifest.Source{github, local}
	}

	cache := manifest.NewCache(cfg.CacheTTL())
	resolver, err := manifest.NewResolver(manifest.ResolverConfig{
		Sources:         sources,
		Cache:           cache,
		StatsOnly:       cfg.StatsOnly,
		AutoGitHubURL:   cfg.AutoGitHubPackageURL,
		Owner:           cfg.RepoOwner,
		Repo:            cfg.RepoName,
		DownloadBaseURL: cfg.DownloadBaseURL,
		Logger:          logger,
	})
	if err != nil {
		slog.Error("resolver", "error", err)
		os.Exit(1)
	}

	// Operator edits to the fallback directory invalidate the cache early;
	// without the watcher, freshness falls back to the TTL alone.
	watcher, err := manifest.NewWatcher(cfg.ManifestDir, cache, logger)
	if err != nil {
		slog.Warn("manifest watcher disabled", "dir", cfg.ManifestDir, "error", err)
	} else {
		defer watcher.Close()
		go watcher.Run(ctx)
	}

	// The version endpoint doubles as the DAU signal: every resolution
	// records a version_check event. Telemetry failures never fail the
	// version response.
	onCheck := func(r *http.Request, rec *manifest.Record) {
		q := r.URL.Query()
		ev := telemetry.EventRecord{
			Event:           telemetry.EventVersionCheck,
			Channel:         q.Get("channel"),
			LauncherVersion: q.Get("launcher_version"),
			LocalVersion:    q.Get("local_version"),
			DeviceID:        q.Get("device_id"),
			InstallID:       q.Get("install_id"),
			AppVersion:      rec.AppVersion,
			IP:              telemetry.RequestIP(r),
			UserAgent:       r.UserAgent(),
		}
		if _, err := store.Append(r.Context(), ev); err != nil {
			slog.Debug("version_check event dropped", "error", err)
		}
	}

	// Router.
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack() {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":       true,
			"time_utc": time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		})
	})

	manifest.NewAPI(resolver, onCheck, logger).Register(r)
	telemetry.NewAPI(store, logger).Register(r)

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "mode", cfg.Mode(),
			"stats_only", cfg.StatsOnly, "cache_ttl_sec", cfg.CacheTTLSec)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
