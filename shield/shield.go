// Package shield provides the HTTP middleware stack for the update service:
// security headers, JSON body limits, and the chi request plumbing
// (request IDs, real client IP, panic recovery).
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultAPIStack() {
//	    r.Use(mw)
//	}
package shield

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// DefaultAPIStack returns the standard middleware stack for the service's
// JSON API, ordered: RequestID → RealIP → Recoverer → SecurityHeaders →
// MaxJSONBody. The edge forwarder terminates TLS and sets X-Forwarded-For;
// RealIP restores the client address before handlers see the request.
func DefaultAPIStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		SecurityHeaders(DefaultHeaders()),
		MaxJSONBody(64 * 1024),
	}
}
