package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"deskloop/internal/logging"
)

// Middleware wraps a handler, mirroring the teacher's
// func(http.Handler) http.Handler middleware chain shape
// (internal/delivery/server/http/router.go).
type Middleware func(http.Handler) http.Handler

// Chain wraps handler in each middleware in list order, so the first
// middleware is the innermost and the last is the outermost (it sees
// the request first), identically to the teacher's NewRouter assembly
// ("handler = X(handler)" repeated).
func Chain(handler http.Handler, mws ...Middleware) http.Handler {
	for _, mw := range mws {
		handler = mw(handler)
	}
	return handler
}

// LoggingMiddleware logs every request's method, path, and duration,
// ported from the teacher's LoggingMiddleware
// (middleware_logging.go), minus the log-id/context plumbing this
// single-user daemon has no use for.
func LoggingMiddleware(logger logging.Logger) Middleware {
	logger = logging.OrNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("%s %s (%v)", r.Method, r.URL.Path, time.Since(start))
		})
	}
}

// ObservabilityMiddleware logs a warning whenever a request exceeds the
// LatencyLogger's threshold, mirroring the teacher's
// ObservabilityMiddleware/LatencyLogger pairing.
func ObservabilityMiddleware(latency *logging.LatencyLogger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			latency.Observe(r.Method+" "+r.URL.Path, time.Since(start))
		})
	}
}

// RecoverMiddleware converts a handler panic into a 500 instead of
// killing the daemon; none of the teacher's retrieved middleware files
// show an explicit recover wrapper, so this is grounded on Go's
// standard net/http server idiom instead.
func RecoverMiddleware(logger logging.Logger) Middleware {
	logger = logging.OrNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic handling %s %s: %v", r.Method, r.URL.Path, rec)
					http.Error(w, `{"error":"internal_error"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware stamps every response with an X-Request-Id,
// generated with the same uuid package the Suggestion Lifecycle
// Manager and Sandbox Executor use for their own ids.
func RequestIDMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware reproduces the teacher's CORS behavior exactly as
// pinned down by its test suite
// (internal/delivery/server/http/middleware_test.go), since the
// teacher's own CORS source file was not present in the retrieved pack:
// an allow-list with credentials in "production", a same-origin
// allowance via the Forwarded header, and an unrestricted wildcard
// (no credentials) in any non-production environment.
func CORSMiddleware(environment string, allowedOrigins []string) Middleware {
	production := strings.EqualFold(strings.TrimSpace(environment), "production")
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				switch {
				case !production:
					w.Header().Set("Access-Control-Allow-Origin", "*")
				case allowed[origin]:
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				case sameOriginByForwarded(r, origin):
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sameOriginByForwarded reports whether origin matches the proto/host
// pair the reverse proxy recorded in the Forwarded (or X-Forwarded-*)
// headers, which is how a production deployment behind a same-origin
// proxy is told apart from a genuinely cross-origin request.
func sameOriginByForwarded(r *http.Request, origin string) bool {
	proto, host := forwardedProtoHost(r)
	if proto == "" || host == "" {
		return false
	}
	return origin == proto+"://"+host
}

func forwardedProtoHost(r *http.Request) (proto, host string) {
	if fwd := r.Header.Get("Forwarded"); fwd != "" {
		for _, part := range strings.Split(fwd, ";") {
			part = strings.TrimSpace(part)
			switch {
			case strings.HasPrefix(part, "proto="):
				proto = strings.TrimPrefix(part, "proto=")
			case strings.HasPrefix(part, "host="):
				host = strings.TrimPrefix(part, "host=")
			}
		}
		if proto != "" && host != "" {
			return proto, host
		}
	}
	proto = r.Header.Get("X-Forwarded-Proto")
	host = r.Header.Get("X-Forwarded-Host")
	return proto, host
}
