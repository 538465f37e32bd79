package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/thankyou-cheems/bomana-update-service/idgen"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id              TEXT PRIMARY KEY,
    event_time_utc  TEXT NOT NULL,
    day_utc         TEXT NOT NULL,
    event           TEXT NOT NULL,
    channel         TEXT NOT NULL DEFAULT '',
    launcher_version TEXT NOT NULL DEFAULT '',
    app_version     TEXT NOT NULL DEFAULT '',
    local_version   TEXT NOT NULL DEFAULT '',
    device_id       TEXT NOT NULL,
    install_id      TEXT NOT NULL DEFAULT '',
    update_ok       INTEGER,
    update_source   TEXT NOT NULL DEFAULT '',
    update_error    TEXT NOT NULL DEFAULT '',
    ip              TEXT NOT NULL DEFAULT '',
    user_agent      TEXT NOT NULL DEFAULT '',
    payload_json    TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_day ON events(day_utc);
CREATE INDEX IF NOT EXISTS idx_events_day_event_channel ON events(day_utc, event, channel);
CREATE INDEX IF NOT EXISTS idx_events_day_device ON events(day_utc, device_id);
`

// Store is the append-only event store. Events are validated on Append and
// durable before acknowledgment; there are no update or delete operations.
type Store struct {
	db    *sql.DB
	newID idgen.Generator
	now   func() time.Time // test hook
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator sets a custom ID generator for event IDs.
func WithIDGenerator(gen idgen.Generator) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates a Store and applies the events schema.
func NewStore(db *sql.DB, opts ...StoreOption) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("telemetry: DB is required")
	}
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("telemetry schema: %w", err)
		}
	}
	s := &Store{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Append validates and durably stores one event, returning its ID.
// Validation failures wrap ErrInvalidEvent; any other error means the
// store is unavailable and the event was not accepted.
func (s *Store) Append(ctx context.Context, rec EventRecord) (string, error) {
	eventTime, day, err := rec.validate(s.now())
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	if len(rec.UserAgent) > 300 {
		rec.UserAgent = rec.UserAgent[:300]
	}

	var updateOK any
	if rec.UpdateOK != nil {
		if *rec.UpdateOK {
			updateOK = 1
		} else {
			updateOK = 0
		}
	}

	id := s.newID()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (
			id, event_time_utc, day_utc, event, channel, launcher_version,
			app_version, local_version, device_id, install_id,
			update_ok, update_source, update_error, ip, user_agent,
			payload_json, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, eventTime, day, string(rec.Event), rec.Channel, rec.LauncherVersion,
		rec.AppVersion, rec.LocalVersion, rec.DeviceID, rec.InstallID,
		updateOK, rec.UpdateSource, rec.UpdateError, rec.IP, rec.UserAgent,
		string(payload), s.now().Unix())
	if err != nil {
		return "", fmt.Errorf("append event: %w", err)
	}
	return id, nil
}
