// Package telemetry ingests launcher telemetry events into an append-only
// SQLite store and serves daily aggregates (deduplicated active devices,
// raw launch counters) computed on demand.
package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventType enumerates the telemetry events emitted by the launcher.
type EventType string

const (
	EventVersionCheck  EventType = "version_check"
	EventLauncherStart EventType = "launcher_start"
	EventAppLaunch     EventType = "app_launch"
	EventUpdateResult  EventType = "update_result"
)

// Valid reports whether t is a recognized event type.
func (t EventType) Valid() bool {
	switch t {
	case EventVersionCheck, EventLauncherStart, EventAppLaunch, EventUpdateResult:
		return true
	}
	return false
}

// ErrInvalidEvent marks a payload rejected at validation. The event is
// discarded, never retried.
var ErrInvalidEvent = errors.New("invalid event")

// EventRecord is one telemetry occurrence as posted by a client.
// Records are immutable once stored.
type EventRecord struct {
	Event           EventType `json:"event"`
	EventTimeUTC    string    `json:"event_time_utc,omitempty"`
	Channel         string    `json:"channel,omitempty"`
	LauncherVersion string    `json:"launcher_version,omitempty"`
	AppVersion      string    `json:"app_version,omitempty"`
	LocalVersion    string    `json:"local_version,omitempty"`
	DeviceID        string    `json:"device_id"`
	InstallID       string    `json:"install_id,omitempty"`
	UpdateOK        *bool     `json:"update_ok,omitempty"`
	UpdateSource    string    `json:"update_source,omitempty"`
	UpdateError     string    `json:"update_error,omitempty"`

	// Request metadata, filled server-side.
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

const (
	timeLayout = "2006-01-02T15:04:05Z"
	dayLayout  = "2006-01-02"
)

// validate trims and checks the record, returning the normalized event
// time and its UTC calendar day. A missing or unparseable timestamp
// defaults to now — never a rejection on its own.
func (e *EventRecord) validate(now time.Time) (eventTime, day string, err error) {
	e.DeviceID = strings.TrimSpace(e.DeviceID)
	e.Channel = strings.TrimSpace(e.Channel)
	e.Event = EventType(strings.TrimSpace(string(e.Event)))

	if e.DeviceID == "" {
		return "", "", fmt.Errorf("%w: missing device_id", ErrInvalidEvent)
	}
	if !e.Event.Valid() {
		return "", "", fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, e.Event)
	}

	ts := now.UTC()
	if raw := strings.TrimSpace(e.EventTimeUTC); raw != "" {
		if parsed, perr := time.Parse(time.RFC3339, raw); perr == nil {
			ts = parsed.UTC()
		}
	}
	return ts.Format(timeLayout), ts.Format(dayLayout), nil
}
