package manifest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// VersionCheckFunc is invoked after a successful resolution so the caller
// can record telemetry. Failures inside the hook must not affect the
// version response.
type VersionCheckFunc func(r *http.Request, rec *Record)

// API serves the version endpoint.
type API struct {
	resolver *Resolver
	onCheck  VersionCheckFunc
	logger   *slog.Logger
}

// NewAPI creates the version API. onCheck may be nil.
func NewAPI(resolver *Resolver, onCheck VersionCheckFunc, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{resolver: resolver, onCheck: onCheck, logger: logger}
}

// Register mounts the version route on the router.
func (a *API) Register(r chi.Router) {
	r.Get("/api/v1/version", a.handleVersion)
}

func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) {
	ch, err := ParseChannel(r.URL.Query().Get("channel"))
	if err != nil {
		jsonErr(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := a.resolver.Resolve(r.Context(), ch)
	if err != nil {
		var re *ResolutionError
		if errors.As(err, &re) {
			a.logger.Error("resolution exhausted", "channel", ch, "error", err)
		} else {
			a.logger.Error("resolution failed", "channel", ch, "error", err)
		}
		jsonErr(w, "manifest unavailable", http.StatusBadGateway)
		return
	}

	if a.onCheck != nil {
		a.onCheck(r, rec)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
