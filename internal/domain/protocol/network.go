// Package protocol implements the pre-submission protocol gates:
// network, size and transport validation. Each gate is an independent,
// stateless check of (data, context) run by the submission pipeline
// before a message is handed to the upstream gateway.
package protocol

import (
	"strings"

	"github.com/protexis/ogx-gateway/internal/domain/validation"
)

// NetworkValidator checks that the network named in the submission data
// matches the validation context, and that both name the one supported
// network (OGx).
type NetworkValidator struct{}

// NewNetworkValidator creates a NetworkValidator.
func NewNetworkValidator() *NetworkValidator {
	return &NetworkValidator{}
}

// Validate checks the network configuration of a submission.
func (v *NetworkValidator) Validate(data any, ctx *validation.ValidationContext) validation.ValidationResult {
	if err := v.check(data, ctx); err != nil {
		return validation.ValidationResult{Valid: false, Errors: []string{err.Message}}
	}
	return validation.ValidationResult{Valid: true}
}

func (v *NetworkValidator) check(data any, ctx *validation.ValidationContext) *validation.ValidationError {
	if ctx == nil || ctx.Direction == "" {
		return validation.NewValidationError(validation.CodeInvalidMessageFormat,
			"Missing message direction")
	}
	if !ctx.Direction.Valid() {
		return validation.Errorf(validation.CodeInvalidMessageFormat,
			"Invalid message direction: %s", ctx.Direction)
	}

	if data == nil {
		return validation.NewValidationError(validation.CodeInvalidMessageFormat,
			"Missing network data")
	}
	m, ok := data.(map[string]any)
	if !ok {
		return validation.NewValidationError(validation.CodeInvalidMessageFormat,
			"Invalid data type: expected object")
	}

	netVal, ok := lookupFold(m, "network")
	if !ok {
		return validation.NewValidationError(validation.CodeMissingRequiredField,
			"Missing network type")
	}
	name, ok := netVal.(string)
	if !ok {
		return validation.Errorf(validation.CodeInvalidFieldValue,
			"Invalid network type: %v", netVal)
	}
	if !strings.EqualFold(name, string(validation.NetworkOGx)) {
		return validation.Errorf(validation.CodeInvalidFieldValue,
			"Invalid network type: %s", name)
	}

	if ctx.NetworkType == "" {
		return validation.NewValidationError(validation.CodeInvalidMessageFormat,
			"Missing network type in context")
	}
	if !ctx.NetworkType.Valid() {
		return validation.NewValidationError(validation.CodeInvalidMessageFormat,
			"Invalid network type in context")
	}
	return nil
}

// lookupFold returns the value of the first key matching key
// case-insensitively. Wire clients disagree on key casing for the
// protocol-gate attributes, so the accepted spellings are folded here.
func lookupFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
