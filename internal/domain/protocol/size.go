package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/protexis/ogx-gateway/internal/domain/validation"
)

// DefaultMessageSizeLimit is the OGx network payload ceiling in bytes.
const DefaultMessageSizeLimit = 1023

// SizeValidationError reports a payload over the configured size limit,
// carrying both sizes for diagnostics.
type SizeValidationError struct {
	CurrentSize int
	MaxSize     int
}

// Error implements the error interface.
func (e *SizeValidationError) Error() string {
	return fmt.Sprintf("Message size %d exceeds maximum allowed size %d bytes",
		e.CurrentSize, e.MaxSize)
}

// SizeValidator checks serialized message size against a byte limit.
//
// Empty or absent data is an error rather than trivially valid: a size
// check only makes sense for a concrete payload.
type SizeValidator struct {
	limit int
}

// NewSizeValidator creates a SizeValidator with the given byte limit.
// Non-positive limits fall back to DefaultMessageSizeLimit.
func NewSizeValidator(limit int) *SizeValidator {
	if limit <= 0 {
		limit = DefaultMessageSizeLimit
	}
	return &SizeValidator{limit: limit}
}

// Limit returns the configured byte limit.
func (v *SizeValidator) Limit() int {
	return v.limit
}

// Validate checks the serialized size of data against the limit.
func (v *SizeValidator) Validate(data any, ctx *validation.ValidationContext) validation.ValidationResult {
	if err := v.CheckSize(data); err != nil {
		return validation.ValidationResult{Valid: false, Errors: []string{err.Error()}}
	}
	return validation.ValidationResult{Valid: true}
}

// CheckSize measures data in its serialized string form and compares
// against the limit. A payload of exactly the limit is valid. Returns a
// *SizeValidationError when the limit is exceeded, or another error for
// absent or unserializable data.
func (v *SizeValidator) CheckSize(data any) error {
	if isEmptyPayload(data) {
		return validation.NewValidationError(validation.CodeInvalidMessageFormat,
			"No data to validate")
	}

	serialized, err := json.Marshal(data)
	if err != nil {
		return validation.NewValidationError(validation.CodeInvalidMessageFormat,
			"Unable to serialize data for size validation")
	}

	if size := len(serialized); size > v.limit {
		return &SizeValidationError{CurrentSize: size, MaxSize: v.limit}
	}
	return nil
}

// isEmptyPayload reports whether data carries nothing to measure.
func isEmptyPayload(data any) bool {
	switch d := data.(type) {
	case nil:
		return true
	case string:
		return d == ""
	case []byte:
		return len(d) == 0
	case map[string]any:
		return len(d) == 0
	case []any:
		return len(d) == 0
	default:
		return false
	}
}
