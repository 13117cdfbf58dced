// Package ratelimit provides rate limiting domain types for the
// inbound submission API.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limit defines the rate limiting parameters for one client.
type Limit struct {
	// Rate is the number of allowed requests per Period.
	Rate int

	// Burst is the maximum number of requests that may arrive at once.
	// Should be >= 1; values <= 0 fall back to Rate.
	Burst int

	// Period is the time window the Rate applies to.
	Period time.Duration
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Remaining is the number of requests left in the current window.
	Remaining int

	// RetryAfter is how long until the next request would be allowed.
	// Only meaningful when Allowed is false.
	RetryAfter time.Duration

	// ResetAfter is how long until the client's allowance fully resets.
	ResetAfter time.Duration
}

// Limiter checks whether a request identified by key is allowed under
// a limit. Implementations should use GCRA (Generic Cell Rate
// Algorithm) so allowance is spread smoothly over the period instead
// of resetting at window boundaries. The check is atomic: an allowed
// call consumes one slot.
type Limiter interface {
	Allow(ctx context.Context, key string, limit Limit) (Decision, error)
}

// KeyType identifies what a rate limit key is derived from.
type KeyType string

const (
	// KeyTypeIP keys the limit on the client IP address. Used for
	// unauthenticated requests.
	KeyTypeIP KeyType = "ip"

	// KeyTypeClient keys the limit on the authenticated API key name,
	// so a client behind several addresses shares one allowance.
	KeyTypeClient KeyType = "client"
)

// ClientKey returns a structured rate limit key, e.g.
// "ratelimit:ip:203.0.113.9" or "ratelimit:client:fleet-ops".
func ClientKey(keyType KeyType, value string) string {
	return fmt.Sprintf("ratelimit:%s:%s", keyType, value)
}
