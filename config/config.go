// Package config loads the update service configuration from an optional
// YAML file overlaid by environment variables. Environment variables always
// win over file values, so container deployments can override a baked-in
// config without editing it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects which manifest sources are consulted, and in what order.
type Mode string

const (
	ModeGitHubThenLocal Mode = "github_then_local"
	ModeLocalThenGitHub Mode = "local_then_github"
	ModeGitHubOnly      Mode = "github"
	ModeLocalOnly       Mode = "local"
)

// Config holds all settings for the update service.
type Config struct {
	Port        string `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	ManifestDir string `yaml:"manifest_dir"`
	DBPath      string `yaml:"db_path"`

	ManifestMode   string `yaml:"manifest_mode"`
	CacheTTLSec    int    `yaml:"cache_ttl_sec"`
	HTTPTimeoutSec int    `yaml:"http_timeout_sec"`

	// StatsOnly forbids serving manifests without a resolvable download URL:
	// this service never hosts package bytes itself.
	StatsOnly bool `yaml:"stats_only"`

	// AutoGitHubPackageURL enables synthesizing a download URL from the
	// release naming convention when a manifest omits package_url.
	AutoGitHubPackageURL bool `yaml:"auto_github_package_url"`

	RepoOwner     string `yaml:"github_repo_owner"`
	RepoName      string `yaml:"github_repo_name"`
	GitHubAPIBase string `yaml:"github_api_base"`
	GitHubToken   string `yaml:"-"`

	// DownloadBaseURL is the self-hosted download prefix used in
	// compatibility mode (StatsOnly off) when no explicit URL exists.
	DownloadBaseURL string `yaml:"download_base_url"`
}

// Load reads the optional YAML file at path (empty path skips the file),
// overlays environment variables, and applies defaults and floors.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:                 "8086",
		LogLevel:             "info",
		ManifestDir:          "/data/manifests",
		DBPath:               "/data/stats.db",
		ManifestMode:         string(ModeGitHubThenLocal),
		CacheTTLSec:          300,
		HTTPTimeoutSec:       8,
		StatsOnly:            true,
		AutoGitHubPackageURL: true,
		RepoOwner:            "Thankyou-Cheems",
		RepoName:             "Bomana",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.fromEnv()
	cfg.floors()
	return cfg, nil
}

func (c *Config) fromEnv() {
	setStr(&c.Port, "PORT")
	setStr(&c.LogLevel, "LOG_LEVEL")
	setStr(&c.ManifestDir, "MANIFEST_DIR")
	setStr(&c.DBPath, "DB_PATH")
	setStr(&c.ManifestMode, "MANIFEST_MODE")
	setInt(&c.CacheTTLSec, "GITHUB_CACHE_TTL_SEC")
	setInt(&c.HTTPTimeoutSec, "HTTP_TIMEOUT_SEC")
	setBool(&c.StatsOnly, "STATS_ONLY_MODE")
	setBool(&c.AutoGitHubPackageURL, "AUTO_GITHUB_PACKAGE_URL")
	setStr(&c.RepoOwner, "GITHUB_REPO_OWNER")
	setStr(&c.RepoName, "GITHUB_REPO_NAME")
	setStr(&c.GitHubToken, "GITHUB_TOKEN")
	setStr(&c.DownloadBaseURL, "DOWNLOAD_BASE_URL")
}

func (c *Config) floors() {
	if c.CacheTTLSec < 30 {
		c.CacheTTLSec = 30
	}
	if c.HTTPTimeoutSec < 2 {
		c.HTTPTimeoutSec = 2
	}
}

// Mode returns the normalized resolution mode. Unknown values fall back to
// github_then_local rather than failing startup.
func (c *Config) Mode() Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(c.ManifestMode))) {
	case ModeLocalThenGitHub:
		return ModeLocalThenGitHub
	case ModeGitHubOnly:
		return ModeGitHubOnly
	case ModeLocalOnly:
		return ModeLocalOnly
	default:
		return ModeGitHubThenLocal
	}
}

// CacheTTL returns the manifest cache freshness window.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// HTTPTimeout returns the bound on a single source round-trip.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = ParseBool(v)
	}
}

// ParseBool interprets operator-supplied flag values. Only explicit
// negatives disable a flag; anything else enables it.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "false", "off", "no":
		return false
	}
	return true
}
