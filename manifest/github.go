package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.github.com"

// FetcherConfig configures the GitHub release source.
type FetcherConfig struct {
	Owner string
	Repo  string
	// Token is an optional bearer token for the GitHub API (rate limits).
	Token string
	// APIBase overrides the GitHub API base URL (for testing).
	APIBase string
	// Timeout bounds one HTTP round-trip. Default: 8s.
	Timeout time.Duration
	// MaxBytes limits response body reads. Default: 4MB.
	MaxBytes int64
	// UserAgent sent with requests.
	UserAgent string
}

func (c *FetcherConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 4 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "BomanaUpdateService/1.0"
	}
	if c.APIBase == "" {
		c.APIBase = defaultAPIBase
	}
}

// Fetcher retrieves channel manifests from the latest GitHub release of the
// configured repository. The release must carry a manifest_<Channel>.json
// asset; the manifest body is downloaded from that asset's URL.
type Fetcher struct {
	client *http.Client
	config FetcherConfig
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	cfg.defaults()
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

// Name implements Source.
func (f *Fetcher) Name() string { return "github" }

type releaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

type release struct {
	TagName string         `json:"tag_name"`
	Assets  []releaseAsset `json:"assets"`
}

// Load implements Source. Any transport error, non-2xx response, or JSON
// shape violation is a source failure, never a process fatal error.
func (f *Fetcher) Load(ctx context.Context, ch Channel) (*Record, error) {
	relURL := fmt.Sprintf("%s/repos/%s/%s/releases/latest",
		strings.TrimRight(f.config.APIBase, "/"), f.config.Owner, f.config.Repo)

	var rel release
	if err := f.getJSON(ctx, relURL, &rel); err != nil {
		return nil, fmt.Errorf("%w: release api: %v", ErrSourceUnavailable, err)
	}

	asset := findAsset(rel.Assets, ch.FileName())
	if asset == nil {
		return nil, fmt.Errorf("%w: latest release missing %s", ErrSourceUnavailable, ch.FileName())
	}
	if asset.BrowserDownloadURL == "" {
		return nil, fmt.Errorf("%w: empty download url for %s", ErrSourceUnavailable, ch.FileName())
	}

	body, err := f.get(ctx, asset.BrowserDownloadURL)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest download: %v", ErrSourceUnavailable, err)
	}
	rec, err := decodeRecord(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ch.FileName(), err)
	}

	// Resolve the download URL from the release's own asset list when the
	// manifest names an asset but carries no explicit URL.
	if rec.PackageURL == "" && rec.PackageAsset != "" {
		if a := findAsset(rel.Assets, rec.PackageAsset); a != nil {
			rec.PackageURL = a.BrowserDownloadURL
		}
	}

	tag := strings.TrimSpace(rel.TagName)
	if tag == "" {
		tag = "latest"
	}
	rec.SourceName = f.Name() + ":" + tag
	return rec, nil
}

func findAsset(assets []releaseAsset, name string) *releaseAsset {
	for i := range assets {
		if strings.EqualFold(strings.TrimSpace(assets[i].Name), name) {
			return &assets[i]
		}
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json, application/json, */*")
	if f.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.config.Token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (f *Fetcher) getJSON(ctx context.Context, url string, v any) error {
	body, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
