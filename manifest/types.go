// Package manifest resolves per-channel release manifests from an ordered
// list of sources (GitHub releases, local fallback files) with TTL caching
// and per-channel request coalescing.
package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Channel is a named release track of the application.
type Channel string

const (
	ChannelEnhanced Channel = "Enhanced"
	ChannelStandard Channel = "Standard"
	ChannelLite     Channel = "Lite"
)

// Channels lists every supported release track.
var Channels = []Channel{ChannelEnhanced, ChannelStandard, ChannelLite}

// ParseChannel validates a client-supplied channel name.
func ParseChannel(s string) (Channel, error) {
	for _, c := range Channels {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// FileName returns the manifest file name for the channel, shared by the
// local directory layout and the GitHub release asset naming convention.
func (c Channel) FileName() string {
	return "manifest_" + string(c) + ".json"
}

// channelFromFileName is the inverse of FileName; ok is false for files
// that are not channel manifests.
func channelFromFileName(name string) (Channel, bool) {
	base := strings.TrimSuffix(strings.TrimPrefix(name, "manifest_"), ".json")
	if base == name || !strings.HasPrefix(name, "manifest_") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	c, err := ParseChannel(base)
	if err != nil {
		return "", false
	}
	return c, true
}

// DefaultEntrypoint is the relaunch command used when a manifest omits one.
const DefaultEntrypoint = "Bomana.pyw"

// Record describes the latest release of one channel.
type Record struct {
	AppVersion    string `json:"app_version"`
	PackageAsset  string `json:"package_asset,omitempty"`
	PackageSHA256 string `json:"package_sha256"`
	Entrypoint    string `json:"entrypoint"`
	PackageURL    string `json:"package_url"`
	SourceName    string `json:"source_name"`
}

// decodeRecord parses raw manifest JSON and enforces the minimal shape:
// app_version must be present. Entrypoint falls back to the default.
func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}
	rec.AppVersion = strings.TrimSpace(rec.AppVersion)
	rec.PackageAsset = strings.TrimSpace(rec.PackageAsset)
	rec.PackageSHA256 = strings.TrimSpace(rec.PackageSHA256)
	rec.PackageURL = strings.TrimSpace(rec.PackageURL)
	rec.Entrypoint = strings.TrimSpace(rec.Entrypoint)
	if rec.AppVersion == "" {
		return nil, fmt.Errorf("%w: missing app_version", ErrMalformedManifest)
	}
	if rec.Entrypoint == "" {
		rec.Entrypoint = DefaultEntrypoint
	}
	return &rec, nil
}
