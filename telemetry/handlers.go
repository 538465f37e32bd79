package telemetry

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// API serves the event ingestion and daily stats endpoints.
type API struct {
	store  *Store
	logger *slog.Logger
	now    func() time.Time // test hook
}

// NewAPI creates the telemetry API.
func NewAPI(store *Store, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{store: store, logger: logger, now: time.Now}
}

// Register mounts the telemetry routes on the router.
func (a *API) Register(r chi.Router) {
	r.Post("/api/v1/event", a.handleEvent)
	r.Get("/api/v1/stats/daily", a.handleDailyStats)
}

func (a *API) handleEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 32*1024)

	var rec EventRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rec.IP = RequestIP(r)
	rec.UserAgent = r.UserAgent()

	id, err := a.store.Append(r.Context(), rec)
	if err != nil {
		if errors.Is(err, ErrInvalidEvent) {
			jsonErr(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.logger.Error("event append failed", "event", rec.Event, "error", err)
		jsonErr(w, "store unavailable", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "id": id})
}

func (a *API) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := a.now().UTC()

	from, to := today, today
	var err error
	if d := strings.TrimSpace(q.Get("date")); d != "" {
		// Single-day shorthand kept for older dashboard clients.
		from, err = time.Parse(dayLayout, d)
		to = from
	} else {
		if f := strings.TrimSpace(q.Get("from")); f != "" && err == nil {
			from, err = time.Parse(dayLayout, f)
		}
		if t := strings.TrimSpace(q.Get("to")); t != "" && err == nil {
			to, err = time.Parse(dayLayout, t)
		}
	}
	if err != nil {
		jsonErr(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	stats, err := a.store.DailyStats(r.Context(), from, to, strings.TrimSpace(q.Get("channel")))
	if err != nil {
		if errors.Is(err, ErrInvalidEvent) {
			jsonErr(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.logger.Error("daily stats failed", "error", err)
		jsonErr(w, "store unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// RequestIP extracts the client address: first X-Forwarded-For hop when the
// edge forwarder set one, else the connection peer.
func RequestIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
