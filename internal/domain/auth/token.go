package auth

import "time"

// Token refresh policy. A token is refreshed before it becomes a
// liability: close to expiry, old enough that rotation is due, or used
// for validation so often that a compromise window would be wide.
const (
	// MinTokenTTL is the remaining lifetime below which a token is
	// refreshed rather than used.
	MinTokenTTL = time.Hour

	// MaxTokenAge is the age past which a token is rotated regardless
	// of remaining lifetime.
	MaxTokenAge = 12 * time.Hour

	// MaxValidationCount is how many times a token may be validated
	// before rotation.
	MaxValidationCount = 1000
)

// TokenRecord is the persisted state of the OGWS bearer token.
type TokenRecord struct {
	// Token is the bearer token value.
	Token string `json:"token"`
	// CreatedAt is when the token was issued (UTC).
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is when the token expires (UTC).
	ExpiresAt time.Time `json:"expires_at"`
	// LastUsed is when the token last authenticated a request (UTC).
	LastUsed time.Time `json:"last_used"`
	// LastValidated is when the token was last validated (UTC).
	LastValidated time.Time `json:"last_validated"`
	// ValidationCount counts validations since issue.
	ValidationCount int `json:"validation_count"`
}

// Valid reports whether the record holds a non-empty, unexpired token.
func (r *TokenRecord) Valid(now time.Time) bool {
	return r != nil && r.Token != "" && now.Before(r.ExpiresAt)
}

// NeedsRefresh reports whether the token should be replaced before the
// next use: invalid, within MinTokenTTL of expiry, older than
// MaxTokenAge, or validated more than MaxValidationCount times.
func (r *TokenRecord) NeedsRefresh(now time.Time) bool {
	if !r.Valid(now) {
		return true
	}
	if r.ExpiresAt.Sub(now) < MinTokenTTL {
		return true
	}
	if now.Sub(r.CreatedAt) > MaxTokenAge {
		return true
	}
	if r.ValidationCount > MaxValidationCount {
		return true
	}
	return false
}

// Touch records a use of the token.
func (r *TokenRecord) Touch(now time.Time) {
	r.LastUsed = now
}

// RecordValidation records a validation of the token.
func (r *TokenRecord) RecordValidation(now time.Time) {
	r.LastValidated = now
	r.ValidationCount++
}
