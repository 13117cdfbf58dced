// Package auth contains the domain logic for inbound API key
// authentication and the upstream bearer token lifecycle.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
)

// ErrInvalidKey is returned when an API key matches no configured key.
var ErrInvalidKey = errors.New("invalid api key")

// ErrUnknownHashType is returned when a stored hash has an
// unrecognized format.
var ErrUnknownHashType = errors.New("unknown hash type")

// APIKey is one configured inbound API key.
type APIKey struct {
	// Name identifies the key's owner in logs and audit records.
	Name string
	// Hash is the Argon2id hash of the key in PHC format.
	Hash string
}

// APIKeyService verifies presented API keys against the configured set.
type APIKeyService struct {
	keys []APIKey
}

// NewAPIKeyService creates an APIKeyService over the given keys.
func NewAPIKeyService(keys []APIKey) *APIKeyService {
	return &APIKeyService{keys: keys}
}

// Enabled reports whether any keys are configured. With no keys the
// submit API runs open, which is only sensible on loopback.
func (s *APIKeyService) Enabled() bool {
	return len(s.keys) > 0
}

// Verify checks a raw key against every configured hash and returns the
// matching key's name. Returns ErrInvalidKey when nothing matches.
func (s *APIKeyService) Verify(rawKey string) (string, error) {
	for _, candidate := range s.keys {
		match, err := VerifyKey(rawKey, candidate.Hash)
		if err != nil {
			continue
		}
		if match {
			return candidate.Name, nil
		}
	}
	return "", ErrInvalidKey
}

// argon2idParams defines OWASP minimum parameters for Argon2id.
// Memory: 47 MiB, Iterations: 1, Parallelism: 1
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashKey returns an Argon2id hash of the raw key in PHC format.
// Format: $argon2id$v=19$m=48128,t=1,p=1$<salt>$<hash>
func HashKey(rawKey string) (string, error) {
	return argon2id.CreateHash(rawKey, argon2idParams)
}

// VerifyKey verifies a raw key against a stored Argon2id hash.
// Returns (false, ErrUnknownHashType) for non-Argon2id hash formats.
func VerifyKey(rawKey, storedHash string) (bool, error) {
	if !strings.HasPrefix(storedHash, "$argon2id$") {
		return false, ErrUnknownHashType
	}
	return safeArgon2idCompare(rawKey, storedHash)
}

// safeArgon2idCompare wraps argon2id.ComparePasswordAndHash with panic
// recovery. The underlying argon2 library panics on malformed Argon2id
// hashes with invalid parameters (e.g., t=0 rounds, p=0 parallelism).
// This function converts those panics to errors so VerifyKey never
// panics on attacker-supplied config.
func safeArgon2idCompare(rawKey, storedHash string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(rawKey, storedHash)
}
