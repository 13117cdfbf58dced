package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/protexis/ogx-gateway/internal/domain/auth"
	"github.com/protexis/ogx-gateway/internal/domain/ratelimit"
)

// requestIDContextKey is the type for the request ID context key.
type requestIDContextKey struct{}

// RequestIDKey is the context key for the request ID.
var RequestIDKey = requestIDContextKey{}

// loggerContextKey is the type for the enriched-logger context key.
type loggerContextKey struct{}

// LoggerKey is the context key for the enriched logger.
var LoggerKey = loggerContextKey{}

// submitterContextKey is the type for the authenticated-key context key.
type submitterContextKey struct{}

// SubmitterKey is the context key for the authenticated API key name.
var SubmitterKey = submitterContextKey{}

// ipAddressContextKey is the type for the client IP context key.
type ipAddressContextKey struct{}

// IPAddressKey is the context key for the client IP address.
var IPAddressKey = ipAddressContextKey{}

// RequestIDMiddleware extracts or generates a request ID and enriches the logger.
// The request ID is stored in context using RequestIDKey.
// An enriched logger with request_id field is stored using LoggerKey.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			enrichedLogger := logger.With("request_id", requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = context.WithValue(ctx, LoggerKey, enrichedLogger)

			// Set response header for correlation
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext retrieves the enriched logger from context.
// Returns slog.Default() if no logger is in context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// SubmitterFromContext retrieves the authenticated API key name from
// context. Empty when the API runs without authentication.
func SubmitterFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(SubmitterKey).(string); ok {
		return name
	}
	return ""
}

// OriginAllowlist validates the Origin header against an allowlist.
// If allowedOrigins is empty, all requests with an Origin header are
// blocked (local-only mode). Requests without an Origin header are
// allowed (same-origin or non-browser).
func OriginAllowlist(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allowed[origin]; !ok {
				http.Error(w, "Forbidden: origin not allowed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyAuth authenticates requests against the configured API keys.
// The key is taken from the Authorization header as a Bearer token, or
// from X-API-Key. On success the key's name is stored in context under
// SubmitterKey. With no keys configured the middleware passes every
// request through unauthenticated.
func APIKeyAuth(keys *auth.APIKeyService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !keys.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				rawKey = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if rawKey == "" {
				writeError(w, http.StatusUnauthorized, "API key required")
				return
			}

			name, err := keys.Verify(rawKey)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), SubmitterKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware enforces a per-client rate limit. Authenticated
// requests share one allowance per API key name; anonymous requests
// are keyed by client IP. Must run after APIKeyAuth and
// RealIPMiddleware so both identities are in context. Denied requests
// get 429 with a Retry-After header.
func RateLimitMiddleware(limiter ratelimit.Limiter, limit ratelimit.Limit, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.Allow(r.Context(), rateLimitKey(r), limit)
			if err != nil {
				// Fail open: a broken limiter must not take the API down.
				LoggerFromContext(r.Context()).Error("rate limit check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			if !decision.Allowed {
				retryAfter := int(decision.RetryAfter/time.Second) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				if metrics != nil {
					metrics.RateLimitedTotal.Inc()
				}
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitKey derives the rate limit key from the request context.
func rateLimitKey(r *http.Request) string {
	if name := SubmitterFromContext(r.Context()); name != "" {
		return ratelimit.ClientKey(ratelimit.KeyTypeClient, name)
	}
	if ip, ok := r.Context().Value(IPAddressKey).(string); ok && ip != "" {
		return ratelimit.ClientKey(ratelimit.KeyTypeIP, ip)
	}
	return ratelimit.ClientKey(ratelimit.KeyTypeIP, r.RemoteAddr)
}

// RealIPMiddleware extracts the client's real IP address.
// It checks X-Forwarded-For and X-Real-IP headers (for reverse proxy
// support), falling back to r.RemoteAddr if no proxy headers are
// present. Only the first IP in X-Forwarded-For is trusted to avoid
// spoofing. The IP is stored in context using IPAddressKey.
func RealIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := extractRealIP(r)
		ctx := context.WithValue(r.Context(), IPAddressKey, ip)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractRealIP extracts the client's real IP address from the request.
func extractRealIP(r *http.Request) string {
	// X-Forwarded-For format: client, proxy1, proxy2 - trust only the
	// first entry.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			if ip := strings.TrimSpace(ips[0]); ip != "" {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is in "host:port" form; extract host.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
