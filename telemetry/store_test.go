package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thankyou-cheems/bomana-update-service/dbopen"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustAppend(t *testing.T, s *Store, rec EventRecord) {
	t.Helper()
	if _, err := s.Append(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
}

func TestAppend(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Append(context.Background(), EventRecord{
		Event:        EventLauncherStart,
		DeviceID:     "dev-1",
		Channel:      "Standard",
		EventTimeUTC: "2026-08-27T10:00:00Z",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty event id")
	}

	n, err := s.EventCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestAppendValidation(t *testing.T) {
	s := newTestStore(t)
	tests := []struct {
		name string
		rec  EventRecord
	}{
		{"missing device_id", EventRecord{Event: EventAppLaunch}},
		{"blank device_id", EventRecord{Event: EventAppLaunch, DeviceID: "   "}},
		{"unknown event type", EventRecord{Event: "telemetry_spam", DeviceID: "dev-1"}},
		{"empty event type", EventRecord{DeviceID: "dev-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Append(context.Background(), tt.rec)
			if !errors.Is(err, ErrInvalidEvent) {
				t.Fatalf("err = %v, want ErrInvalidEvent", err)
			}
		})
	}

	// Rejected events must not surface in aggregates.
	n, err := s.EventCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rejected events stored: count = %d", n)
	}
}

func TestAppendDefaultsTimestamp(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2026, 8, 27, 15, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	for _, raw := range []string{"", "not-a-time"} {
		mustAppend(t, s, EventRecord{Event: EventAppLaunch, DeviceID: "dev-1", EventTimeUTC: raw})
	}

	stats, err := s.DailyStats(context.Background(), fixed, fixed, "")
	if err != nil {
		t.Fatal(err)
	}
	if stats[0].AppLaunches != 2 {
		t.Errorf("AppLaunches = %d, want 2 (timestamp defaults to receipt time)", stats[0].AppLaunches)
	}
}

func TestDailyStatsDAUDeduplication(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	at := func(h int) string { return day.Add(time.Duration(h) * time.Hour).Format(time.RFC3339) }

	// Three version checks from device A, one from device B: dau = 2.
	for _, h := range []int{1, 5, 9} {
		mustAppend(t, s, EventRecord{Event: EventVersionCheck, DeviceID: "A", InstallID: "iA", EventTimeUTC: at(h)})
	}
	mustAppend(t, s, EventRecord{Event: EventVersionCheck, DeviceID: "B", InstallID: "iB", EventTimeUTC: at(2)})

	stats, err := s.DailyStats(context.Background(), day, day, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Fatalf("len = %d, want 1", len(stats))
	}
	st := stats[0]
	if st.DAU != 2 {
		t.Errorf("DAU = %d, want 2", st.DAU)
	}
	if st.DAUInstalls != 2 {
		t.Errorf("DAUInstalls = %d, want 2", st.DAUInstalls)
	}
	if st.VersionChecks != 4 {
		t.Errorf("VersionChecks = %d, want raw 4", st.VersionChecks)
	}
	if st.TotalEvents != 4 {
		t.Errorf("TotalEvents = %d", st.TotalEvents)
	}
}

func TestDailyStatsRawLaunchCounters(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	ts := day.Format(time.RFC3339)

	// Same device over and over: launch counters are volume, not reach.
	for i := 0; i < 3; i++ {
		mustAppend(t, s, EventRecord{Event: EventLauncherStart, DeviceID: "A", EventTimeUTC: ts})
	}
	for i := 0; i < 2; i++ {
		mustAppend(t, s, EventRecord{Event: EventAppLaunch, DeviceID: "A", EventTimeUTC: ts})
	}

	stats, err := s.DailyStats(context.Background(), day, day, "")
	if err != nil {
		t.Fatal(err)
	}
	st := stats[0]
	if st.LauncherStarts != 3 {
		t.Errorf("LauncherStarts = %d, want 3", st.LauncherStarts)
	}
	if st.AppLaunches != 2 {
		t.Errorf("AppLaunches = %d, want 2", st.AppLaunches)
	}
	if st.DAU != 0 {
		t.Errorf("DAU = %d, launches must not count as active devices", st.DAU)
	}
}

func TestDailyStatsUpdateOK(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	ts := day.Format(time.RFC3339)
	ok, fail := true, false

	mustAppend(t, s, EventRecord{Event: EventUpdateResult, DeviceID: "A", UpdateOK: &ok, EventTimeUTC: ts})
	mustAppend(t, s, EventRecord{Event: EventUpdateResult, DeviceID: "B", UpdateOK: &fail, EventTimeUTC: ts})

	stats, err := s.DailyStats(context.Background(), day, day, "")
	if err != nil {
		t.Fatal(err)
	}
	if stats[0].UpdateOKTotal != 1 {
		t.Errorf("UpdateOKTotal = %d, want 1", stats[0].UpdateOKTotal)
	}
}

func TestDailyStatsChannelFilter(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	ts := day.Format(time.RFC3339)

	mustAppend(t, s, EventRecord{Event: EventVersionCheck, DeviceID: "A", Channel: "Standard", EventTimeUTC: ts})
	mustAppend(t, s, EventRecord{Event: EventVersionCheck, DeviceID: "B", Channel: "Lite", EventTimeUTC: ts})

	stats, err := s.DailyStats(context.Background(), day, day, "Standard")
	if err != nil {
		t.Fatal(err)
	}
	if stats[0].DAU != 1 {
		t.Errorf("filtered DAU = %d, want 1", stats[0].DAU)
	}
}

func TestDailyStatsRangeOrderingAndZeroFill(t *testing.T) {
	s := newTestStore(t)
	from := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	// Events on the first and last day only; the middle day is zero-filled.
	mustAppend(t, s, EventRecord{Event: EventVersionCheck, DeviceID: "A",
		EventTimeUTC: from.Add(time.Hour).Format(time.RFC3339)})
	mustAppend(t, s, EventRecord{Event: EventVersionCheck, DeviceID: "A",
		EventTimeUTC: to.Add(time.Hour).Format(time.RFC3339)})

	stats, err := s.DailyStats(context.Background(), from, to, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 3 {
		t.Fatalf("len = %d, want 3", len(stats))
	}
	wantDays := []string{"2026-08-24", "2026-08-25", "2026-08-26"}
	for i, day := range wantDays {
		if stats[i].DateUTC != day {
			t.Errorf("stats[%d].DateUTC = %q, want %q", i, stats[i].DateUTC, day)
		}
	}
	if stats[0].DAU != 1 || stats[1].DAU != 0 || stats[2].DAU != 1 {
		t.Errorf("DAU by day = %d,%d,%d", stats[0].DAU, stats[1].DAU, stats[2].DAU)
	}
}

func TestDailyStatsEmptyStore(t *testing.T) {
	s := newTestStore(t)
	day := time.Now().UTC()

	stats, err := s.DailyStats(context.Background(), day, day, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Fatalf("len = %d, want 1 zero-filled day", len(stats))
	}
	if stats[0].DAU != 0 || stats[0].TotalEvents != 0 {
		t.Errorf("empty store should zero-fill: %+v", stats[0])
	}
}

func TestDailyStatsRangeValidation(t *testing.T) {
	s := newTestStore(t)
	from := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	if _, err := s.DailyStats(context.Background(), from, from.AddDate(0, 0, -1), ""); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("reversed range: err = %v", err)
	}
	if _, err := s.DailyStats(context.Background(), from, from.AddDate(0, 0, 400), ""); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("oversized range: err = %v", err)
	}
}

func TestDailyStatsDayBoundaryUTC(t *testing.T) {
	s := newTestStore(t)
	// 23:59Z and 00:01Z land on different UTC days.
	mustAppend(t, s, EventRecord{Event: EventVersionCheck, DeviceID: "A",
		EventTimeUTC: "2026-08-25T23:59:00Z"})
	mustAppend(t, s, EventRecord{Event: EventVersionCheck, DeviceID: "A",
		EventTimeUTC: "2026-08-26T00:01:00Z"})

	from := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	stats, err := s.DailyStats(context.Background(), from, to, "")
	if err != nil {
		t.Fatal(err)
	}
	if stats[0].DAU != 1 || stats[1].DAU != 1 {
		t.Errorf("DAU split = %d,%d, want 1,1", stats[0].DAU, stats[1].DAU)
	}
}
