package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownChannel marks a request for a channel outside the enum.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrSourceUnavailable marks a source that could not be reached or does
	// not carry the requested channel. Recovered by falling back.
	ErrSourceUnavailable = errors.New("manifest source unavailable")

	// ErrMalformedManifest marks a payload that violates the manifest
	// shape. Treated exactly like ErrSourceUnavailable by the resolver.
	ErrMalformedManifest = errors.New("malformed manifest")

	// ErrNoPackageURL marks a record whose download URL could neither be
	// read nor synthesized while one is required.
	ErrNoPackageURL = errors.New("no package_url available")
)

// ResolutionError reports that every configured source failed for a channel.
type ResolutionError struct {
	Channel Channel
	Causes  []error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("manifest unavailable for channel %s: %v", e.Channel, errors.Join(e.Causes...))
}

func (e *ResolutionError) Unwrap() []error { return e.Causes }
