package validation

import "strings"

// MessageValidator validates the Common Message Format envelope: Name,
// SIN, MIN and Fields. It is the outward-facing entry point for whole
// messages and is re-entered for the payload of message-typed fields.
//
// Unlike the field and element validators, message validation is
// fail-fast: envelope errors make further checking meaningless, so the
// first failure is returned immediately as a typed error.
type MessageValidator struct{}

// NewMessageValidator creates a MessageValidator.
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage validates a complete message envelope. It returns nil
// for a valid message, or the first *ValidationError encountered.
// Errors from nested fields carry the "Field validation error: " prefix
// with the field's own diagnostic preserved verbatim as the suffix.
func (v *MessageValidator) ValidateMessage(data any, ctx *ValidationContext) error {
	if err := v.checkEnvelope(data, ctx, 0); err != nil {
		return err
	}
	return nil
}

func (v *MessageValidator) checkEnvelope(data any, ctx *ValidationContext, depth int) *ValidationError {
	if depth > MaxNestingDepth {
		return errMaxDepth()
	}

	m, ok := asMap(data)
	if !ok {
		return NewValidationError(CodeInvalidMessageFormat, "Message must be an object")
	}

	// Name every missing key jointly so one round trip reports them all.
	if missing := missingKeys(m, "Name", "SIN", "MIN", "Fields"); len(missing) > 0 {
		return Errorf(CodeMissingRequiredField,
			"Missing required message fields: %s", strings.Join(missing, ", "))
	}

	if _, ok := m["Name"].(string); !ok {
		return NewValidationError(CodeInvalidMessageFormat, "Message Name must be a string")
	}

	// SIN and MIN are protocol-assigned identifiers and cannot be
	// negative. String forms are not integers on the wire.
	sin, ok := coerceIdentifier(m["SIN"])
	if !ok || sin < 0 {
		return NewValidationError(CodeInvalidFieldValue, "SIN must be a non-negative integer")
	}
	min, ok := coerceIdentifier(m["MIN"])
	if !ok || min < 0 {
		return NewValidationError(CodeInvalidFieldValue, "MIN must be a non-negative integer")
	}

	fields, ok := asList(m["Fields"])
	if !ok {
		return NewValidationError(CodeInvalidMessageFormat, "Message Fields must be a list")
	}

	fv := NewFieldValidator()
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		fd, ok := asMap(f)
		if !ok {
			return NewValidationError(CodeInvalidFieldFormat, "Field must be an object")
		}
		if errs := fv.check(fd, ctx, depth+1); len(errs) > 0 {
			return wrap(errs[0], "Field validation error")
		}
		if name, ok := fd["Name"].(string); ok {
			if seen[name] {
				return Errorf(CodeInvalidMessageFormat, "Duplicate field name: %s", name)
			}
			seen[name] = true
		}
	}
	return nil
}
