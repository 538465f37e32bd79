package manifest

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Source produces a manifest for a channel or fails explicitly. Sources are
// capability-equivalent: the resolver iterates them in order and does not
// know which concrete source it is calling.
type Source interface {
	Name() string
	Load(ctx context.Context, ch Channel) (*Record, error)
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Sources are consulted in order; the first valid manifest wins.
	Sources []Source
	Cache   *Cache

	// StatsOnly requires every resolved record to carry a download URL.
	StatsOnly bool
	// AutoGitHubURL enables URL synthesis from the release naming
	// convention (owner/repo/releases/latest/download/<asset>).
	AutoGitHubURL bool
	Owner         string
	Repo          string
	// DownloadBaseURL is the self-hosted prefix used in compatibility
	// mode when no explicit or synthesized URL exists.
	DownloadBaseURL string

	Logger *slog.Logger
}

// Resolver orchestrates the configured sources behind the cache, with
// per-channel coalescing of concurrent misses.
type Resolver struct {
	sources []Source
	cache   *Cache
	group   singleflight.Group
	cfg     ResolverConfig
	logger  *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("resolver: at least one source is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("resolver: cache is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		sources: cfg.Sources,
		cache:   cfg.Cache,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Resolve returns the current manifest for a channel. A fresh cache entry
// is returned immediately; on miss or expiry, concurrent calls for the
// same channel coalesce into one source round-trip. All-sources failure
// yields a *ResolutionError; stale entries are never served (fail-closed).
func (r *Resolver) Resolve(ctx context.Context, ch Channel) (*Record, error) {
	if rec, ok := r.cache.Get(ch); ok {
		return rec, nil
	}
	v, err, _ := r.group.Do(string(ch), func() (any, error) {
		// A caller queued behind a finished flight re-checks the cache
		// before triggering another fetch sequence.
		if rec, ok := r.cache.Get(ch); ok {
			return *rec, nil
		}
		return r.resolve(ctx, ch)
	})
	if err != nil {
		return nil, err
	}
	rec := v.(Record)
	return &rec, nil
}

func (r *Resolver) resolve(ctx context.Context, ch Channel) (Record, error) {
	var causes []error
	for _, src := range r.sources {
		rec, err := src.Load(ctx, ch)
		if err == nil {
			err = r.resolvePackageURL(rec)
		}
		if err != nil {
			r.logger.Warn("manifest source failed",
				"channel", ch, "source", src.Name(), "error", err)
			causes = append(causes, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		r.cache.Put(ch, *rec)
		r.logger.Info("manifest resolved",
			"channel", ch, "source", rec.SourceName, "app_version", rec.AppVersion)
		return *rec, nil
	}
	return Record{}, &ResolutionError{Channel: ch, Causes: causes}
}

// resolvePackageURL guarantees the invariant on rec.PackageURL: explicit
// URLs win; otherwise the URL is synthesized from the release naming
// convention, or from the self-hosted download prefix in compatibility
// mode. In stats-only mode a record without a URL is a failure, never a
// degraded success.
func (r *Resolver) resolvePackageURL(rec *Record) error {
	if rec.PackageURL != "" {
		return nil
	}
	if r.cfg.AutoGitHubURL && rec.PackageAsset != "" && r.cfg.Owner != "" && r.cfg.Repo != "" {
		rec.PackageURL = fmt.Sprintf("https://github.com/%s/%s/releases/latest/download/%s",
			r.cfg.Owner, r.cfg.Repo, rec.PackageAsset)
		rec.SourceName += "+synthesized"
		return nil
	}
	if r.cfg.StatsOnly {
		return ErrNoPackageURL
	}
	if rec.PackageAsset == "" || r.cfg.DownloadBaseURL == "" {
		return ErrNoPackageURL
	}
	rec.PackageURL = fmt.Sprintf("%s/downloads/%s", r.cfg.DownloadBaseURL, rec.PackageAsset)
	rec.SourceName += "+synthesized"
	return nil
}
