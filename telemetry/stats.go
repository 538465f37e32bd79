package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DailyStat is the derived per-day aggregate view. It is recomputed per
// query and never persisted.
type DailyStat struct {
	DateUTC        string `json:"date_utc"`
	DAU            int    `json:"dau"`
	DAUInstalls    int    `json:"dau_unique_install"`
	LauncherStarts int    `json:"launcher_starts"`
	AppLaunches    int    `json:"app_launches"`
	VersionChecks  int    `json:"version_checks"`
	UpdateOKTotal  int    `json:"update_ok_total"`
	TotalEvents    int    `json:"total_events"`
}

// maxStatsRangeDays bounds one query to roughly a year of days.
const maxStatsRangeDays = 366

// DailyStats computes one DailyStat per UTC day in [from, to], both bounds
// inclusive, ordered ascending and zero-filled for days without events.
// channel filters when non-empty. DAU counts distinct device_id values
// among version_check events; launch counters stay raw event counts.
// An empty store yields zero-filled rows, never an error.
func (s *Store) DailyStats(ctx context.Context, from, to time.Time, channel string) ([]DailyStat, error) {
	fromDay := from.UTC().Format(dayLayout)
	toDay := to.UTC().Format(dayLayout)
	if toDay < fromDay {
		return nil, fmt.Errorf("%w: to before from", ErrInvalidEvent)
	}

	start, _ := time.Parse(dayLayout, fromDay)
	end, _ := time.Parse(dayLayout, toDay)
	days := int(end.Sub(start).Hours()/24) + 1
	if days > maxStatsRangeDays {
		return nil, fmt.Errorf("%w: range exceeds %d days", ErrInvalidEvent, maxStatsRangeDays)
	}

	where := "day_utc BETWEEN ? AND ?"
	args := []any{fromDay, toDay}
	if channel != "" {
		where += " AND channel = ?"
		args = append(args, channel)
	}

	byDay := make(map[string]*DailyStat, days)
	stats := make([]DailyStat, days)
	for i := 0; i < days; i++ {
		stats[i] = DailyStat{DateUTC: start.AddDate(0, 0, i).Format(dayLayout)}
		byDay[stats[i].DateUTC] = &stats[i]
	}

	assign := func(query string, set func(st *DailyStat, n int)) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var day string
			var n int
			if err := rows.Scan(&day, &n); err != nil {
				return err
			}
			if st, ok := byDay[day]; ok {
				set(st, n)
			}
		}
		return rows.Err()
	}

	counters := []struct {
		query string
		set   func(st *DailyStat, n int)
	}{
		{
			"SELECT day_utc, COUNT(1) FROM events WHERE " + where + " GROUP BY day_utc",
			func(st *DailyStat, n int) { st.TotalEvents = n },
		},
		{
			"SELECT day_utc, COUNT(1) FROM events WHERE " + where +
				" AND event='launcher_start' GROUP BY day_utc",
			func(st *DailyStat, n int) { st.LauncherStarts = n },
		},
		{
			"SELECT day_utc, COUNT(1) FROM events WHERE " + where +
				" AND event='app_launch' GROUP BY day_utc",
			func(st *DailyStat, n int) { st.AppLaunches = n },
		},
		{
			"SELECT day_utc, COUNT(1) FROM events WHERE " + where +
				" AND event='version_check' GROUP BY day_utc",
			func(st *DailyStat, n int) { st.VersionChecks = n },
		},
		{
			"SELECT day_utc, COUNT(1) FROM events WHERE " + where +
				" AND event='update_result' AND update_ok=1 GROUP BY day_utc",
			func(st *DailyStat, n int) { st.UpdateOKTotal = n },
		},
		{
			"SELECT day_utc, COUNT(DISTINCT device_id) FROM events WHERE " + where +
				" AND event='version_check' AND device_id<>'' GROUP BY day_utc",
			func(st *DailyStat, n int) { st.DAU = n },
		},
		{
			"SELECT day_utc, COUNT(DISTINCT install_id) FROM events WHERE " + where +
				" AND event='version_check' AND install_id<>'' GROUP BY day_utc",
			func(st *DailyStat, n int) { st.DAUInstalls = n },
		},
	}
	for _, c := range counters {
		if err := assign(c.query, c.set); err != nil {
			return nil, fmt.Errorf("daily stats: %w", err)
		}
	}
	return stats, nil
}

// EventCount returns the total number of stored events.
func (s *Store) EventCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM events").Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return n, nil
}
