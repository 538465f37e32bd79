package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8086" {
		t.Errorf("Port = %q, want 8086", cfg.Port)
	}
	if cfg.Mode() != ModeGitHubThenLocal {
		t.Errorf("Mode = %q, want %q", cfg.Mode(), ModeGitHubThenLocal)
	}
	if cfg.CacheTTL() != 300*time.Second {
		t.Errorf("CacheTTL = %v, want 300s", cfg.CacheTTL())
	}
	if !cfg.StatsOnly {
		t.Error("StatsOnly should default to true")
	}
	if !cfg.AutoGitHubPackageURL {
		t.Error("AutoGitHubPackageURL should default to true")
	}
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("MANIFEST_MODE", "local_then_github")
	t.Setenv("GITHUB_CACHE_TTL_SEC", "120")
	t.Setenv("STATS_ONLY_MODE", "off")
	t.Setenv("GITHUB_REPO_OWNER", "acme")
	t.Setenv("PORT", "9000")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode() != ModeLocalThenGitHub {
		t.Errorf("Mode = %q, want local_then_github", cfg.Mode())
	}
	if cfg.CacheTTLSec != 120 {
		t.Errorf("CacheTTLSec = %d, want 120", cfg.CacheTTLSec)
	}
	if cfg.StatsOnly {
		t.Error("StatsOnly should be off")
	}
	if cfg.RepoOwner != "acme" {
		t.Errorf("RepoOwner = %q, want acme", cfg.RepoOwner)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
}

func TestLoadYAMLFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("port: \"7070\"\nmanifest_mode: local\ncache_ttl_sec: 60\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7071")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "7071" {
		t.Errorf("Port = %q, env should win over file", cfg.Port)
	}
	if cfg.Mode() != ModeLocalOnly {
		t.Errorf("Mode = %q, want local", cfg.Mode())
	}
	if cfg.CacheTTLSec != 60 {
		t.Errorf("CacheTTLSec = %d, want 60 from file", cfg.CacheTTLSec)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestFloors(t *testing.T) {
	t.Setenv("GITHUB_CACHE_TTL_SEC", "5")
	t.Setenv("HTTP_TIMEOUT_SEC", "1")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheTTLSec != 30 {
		t.Errorf("CacheTTLSec = %d, want floor 30", cfg.CacheTTLSec)
	}
	if cfg.HTTPTimeoutSec != 2 {
		t.Errorf("HTTPTimeoutSec = %d, want floor 2", cfg.HTTPTimeoutSec)
	}
}

func TestModeFallback(t *testing.T) {
	t.Setenv("MANIFEST_MODE", "banana")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode() != ModeGitHubThenLocal {
		t.Errorf("unknown mode should fall back, got %q", cfg.Mode())
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"yes", true},
		{"", true},
		{"0", false},
		{"false", false},
		{"OFF", false},
		{" no ", false},
	}
	for _, tt := range tests {
		if got := ParseBool(tt.in); got != tt.want {
			t.Errorf("ParseBool(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
