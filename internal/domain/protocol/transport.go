package protocol

import (
	"strings"

	"github.com/protexis/ogx-gateway/internal/domain/validation"
)

// Transport names accepted by the gateway, matched case-insensitively.
const (
	TransportSatellite = "SATELLITE"
	TransportCellular  = "CELLULAR"
)

// TransportValidator checks the requested transport(s) for a
// submission. A single transport name or a list of names is accepted.
// Delayed send is a satellite-only feature: requesting cellular
// transport together with DelayedSendOptions is an error.
type TransportValidator struct{}

// NewTransportValidator creates a TransportValidator.
func NewTransportValidator() *TransportValidator {
	return &TransportValidator{}
}

// Validate checks the transport configuration of a submission.
func (v *TransportValidator) Validate(data any, ctx *validation.ValidationContext) validation.ValidationResult {
	var errs []string
	for _, e := range v.check(data, ctx) {
		errs = append(errs, e.Message)
	}
	if len(errs) > 0 {
		return validation.ValidationResult{Valid: false, Errors: errs}
	}
	return validation.ValidationResult{Valid: true}
}

func (v *TransportValidator) check(data any, ctx *validation.ValidationContext) []*validation.ValidationError {
	if ctx == nil || ctx.Direction == "" {
		return []*validation.ValidationError{validation.NewValidationError(
			validation.CodeInvalidMessageFormat, "Missing message direction")}
	}
	if !ctx.Direction.Valid() {
		return []*validation.ValidationError{validation.Errorf(
			validation.CodeInvalidMessageFormat, "Invalid message direction: %s", ctx.Direction)}
	}
	if !ctx.NetworkType.Valid() {
		return []*validation.ValidationError{validation.NewValidationError(
			validation.CodeInvalidMessageFormat, "Invalid network type in context")}
	}

	if data == nil {
		return []*validation.ValidationError{validation.NewValidationError(
			validation.CodeInvalidMessageFormat, "Missing transport data")}
	}
	m, ok := data.(map[string]any)
	if !ok {
		return []*validation.ValidationError{validation.NewValidationError(
			validation.CodeInvalidMessageFormat, "Invalid data type: expected object")}
	}

	raw, ok := lookupFold(m, "transport")
	if !ok {
		return []*validation.ValidationError{validation.NewValidationError(
			validation.CodeMissingRequiredField, "Missing transport type")}
	}

	names, err := transportNames(raw)
	if err != nil {
		return []*validation.ValidationError{err}
	}

	var errs []*validation.ValidationError
	cellular := false
	for _, name := range names {
		switch strings.ToUpper(name) {
		case TransportSatellite:
		case TransportCellular:
			cellular = true
		default:
			errs = append(errs, validation.Errorf(validation.CodeInvalidFieldValue,
				"Invalid transport type: %s", name))
		}
	}

	if cellular {
		if dso, ok := m["DelayedSendOptions"]; ok && dso != nil {
			errs = append(errs, validation.NewValidationError(validation.CodeInvalidFieldValue,
				"Delayed send options not supported for cellular transport"))
		}
	}
	return errs
}

// transportNames normalizes the transport attribute to a list of names:
// a single string, or a list of strings.
func transportNames(raw any) ([]string, *validation.ValidationError) {
	switch t := raw.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		names := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, validation.Errorf(validation.CodeInvalidFieldValue,
					"Invalid transport type: %v", item)
			}
			names = append(names, s)
		}
		return names, nil
	default:
		return nil, validation.Errorf(validation.CodeInvalidFieldValue,
			"Invalid transport type: %v", raw)
	}
}
