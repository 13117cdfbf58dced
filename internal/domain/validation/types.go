// Package validation implements the OGx message validation engine: the
// recursive schema validator that enforces the Common Message Format for
// every message, field, array element and nested sub-message exchanged
// with the gateway.
//
// All validators are pure functions of (data, context). No validator
// instance holds call-scoped mutable state, so a single instance is safe
// for concurrent use.
package validation

import "fmt"

// ErrorCode is a gateway error code attached to validation failures.
// Values 24582 and 24590-24593 are assigned by the upstream gateway API;
// 24594-24596 extend the table for conditions the gateway reports only
// as generic format errors.
type ErrorCode int

const (
	// CodeInvalidMessageFormat indicates a malformed message envelope.
	CodeInvalidMessageFormat ErrorCode = 24582

	// CodeInvalidFieldType indicates an unknown field type tag.
	CodeInvalidFieldType ErrorCode = 24590

	// CodeInvalidFieldValue indicates a value that does not satisfy its
	// declared type.
	CodeInvalidFieldValue ErrorCode = 24591

	// CodeInvalidFieldFormat indicates a structurally invalid field,
	// such as an array field carrying a Value attribute.
	CodeInvalidFieldFormat ErrorCode = 24592

	// CodeMissingRequiredField indicates an absent required property.
	CodeMissingRequiredField ErrorCode = 24593

	// CodeInvalidElementFormat indicates a structurally invalid array
	// element.
	CodeInvalidElementFormat ErrorCode = 24594

	// CodeInvalidMessageFilter indicates an invalid message retrieval
	// filter.
	CodeInvalidMessageFilter ErrorCode = 24595

	// CodeSizeExceeded indicates a message over the network size limit.
	CodeSizeExceeded ErrorCode = 24596
)

// ValidationError is a validation failure carrying a machine-checkable
// gateway error code and a human-readable message.
type ValidationError struct {
	Code    ErrorCode
	Message string
}

// Error returns the human-readable message. The message text of a
// wrapped error always ends with the innermost error's text verbatim,
// so callers can match on leaf diagnostics at any nesting depth.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with the given code and
// message.
func NewValidationError(code ErrorCode, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// Errorf creates a ValidationError with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// wrap prefixes the error message with positional or structural context
// while preserving the original error code for programmatic handling.
func wrap(e *ValidationError, prefix string) *ValidationError {
	return &ValidationError{Code: e.Code, Message: prefix + ": " + e.Message}
}
