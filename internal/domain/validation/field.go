package validation

import (
	"strings"

	"github.com/protexis/ogx-gateway/pkg/ogx"
)

// MaxNestingDepth bounds recursion through array elements and nested
// messages. Input deeper than this is rejected deterministically as a
// validation error instead of risking stack exhaustion.
const MaxNestingDepth = 32

// errMaxDepth is the error reported when input exceeds MaxNestingDepth.
func errMaxDepth() *ValidationError {
	return NewValidationError(CodeInvalidMessageFormat, "Maximum nesting depth exceeded")
}

// FieldValidator validates a single field against its declared type tag.
// Composite fields (array, message) recurse through the element and
// message validators.
type FieldValidator struct{}

// NewFieldValidator creates a FieldValidator.
func NewFieldValidator() *FieldValidator {
	return &FieldValidator{}
}

// Validate checks a field's structure and value. Independent errors on
// the same field are accumulated; a failure inside a nested subtree
// aborts further checking of that subtree.
func (v *FieldValidator) Validate(data map[string]any, ctx *ValidationContext) ValidationResult {
	return newResult(v.check(data, ctx, 0))
}

// check is the depth-threaded core shared with the element and message
// validators.
func (v *FieldValidator) check(data map[string]any, ctx *ValidationContext, depth int) []*ValidationError {
	if depth > MaxNestingDepth {
		return []*ValidationError{errMaxDepth()}
	}

	if data == nil {
		return []*ValidationError{NewValidationError(CodeMissingRequiredField,
			"Required field data missing - Name and Type properties are required")}
	}

	if missing := missingKeys(data, "Name", "Type"); len(missing) > 0 {
		return []*ValidationError{Errorf(CodeMissingRequiredField,
			"Missing required field properties: %s", strings.Join(missing, ", "))}
	}

	typeTag, ok := data["Type"].(string)
	if !ok {
		return []*ValidationError{Errorf(CodeInvalidFieldType, "Invalid field type: %v", data["Type"])}
	}
	ft, known := ogx.ParseFieldType(typeTag)
	if !known {
		return []*ValidationError{Errorf(CodeInvalidFieldType, "Invalid field type: %s", typeTag)}
	}

	switch ft {
	case ogx.FieldTypeArray:
		return v.checkArrayField(data, ctx, depth)
	case ogx.FieldTypeMessage:
		return v.checkMessageField(data, ctx, depth)
	case ogx.FieldTypeDynamic, ogx.FieldTypeProperty:
		return v.checkDynamicField(ft, data)
	default:
		return v.checkBasicField(ft, data)
	}
}

// checkBasicField validates the six primitive type tags. Value is
// required; Elements and Message are forbidden.
func (v *FieldValidator) checkBasicField(ft ogx.FieldType, data map[string]any) []*ValidationError {
	var errs []*ValidationError

	if present(data, "Elements") {
		errs = append(errs, Errorf(CodeInvalidFieldFormat,
			"%s fields must not have Elements attribute", titleTag(ft)))
	}
	if present(data, "Message") {
		errs = append(errs, Errorf(CodeInvalidFieldFormat,
			"%s fields must not have Message attribute", titleTag(ft)))
	}

	if _, ok := data["Value"]; !ok {
		errs = append(errs, NewValidationError(CodeMissingRequiredField,
			"Missing required field properties: Value"))
		return errs
	}
	if data["Value"] == nil {
		// Null is "missing required value", distinct from wrong type.
		errs = append(errs, Errorf(CodeMissingRequiredField,
			"Invalid %s field: Value is required", ft))
		return errs
	}

	if err := checkValue(ft, data["Value"]); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// checkDynamicField validates dynamic and property fields: TypeAttribute
// must name one of the six primitive types, and Value must satisfy the
// resolved type.
func (v *FieldValidator) checkDynamicField(ft ogx.FieldType, data map[string]any) []*ValidationError {
	attr, ok := data["TypeAttribute"]
	if !ok || attr == nil {
		return []*ValidationError{Errorf(CodeMissingRequiredField,
			"TypeAttribute is required for %s fields", ft)}
	}
	attrTag, ok := attr.(string)
	if !ok {
		return []*ValidationError{Errorf(CodeInvalidFieldType,
			"TypeAttribute must be a string")}
	}
	if attrTag == "" {
		return []*ValidationError{Errorf(CodeInvalidFieldType,
			"TypeAttribute cannot be empty")}
	}
	resolved, known := ogx.ParseFieldType(attrTag)
	if !known || !resolved.IsBasic() {
		return []*ValidationError{Errorf(CodeInvalidFieldType,
			"TypeAttribute %s not allowed", attrTag)}
	}

	if _, ok := data["Value"]; !ok {
		return []*ValidationError{NewValidationError(CodeMissingRequiredField,
			"Missing required field properties: Value")}
	}
	if data["Value"] == nil {
		return []*ValidationError{Errorf(CodeMissingRequiredField,
			"Invalid %s field: Value is required", resolved)}
	}
	if err := checkValue(resolved, data["Value"]); err != nil {
		return []*ValidationError{err}
	}
	return nil
}

// checkArrayField validates array fields: Value and Message are
// forbidden, Elements is optional and delegated to the element
// validator when present.
func (v *FieldValidator) checkArrayField(data map[string]any, ctx *ValidationContext, depth int) []*ValidationError {
	var errs []*ValidationError

	if present(data, "Value") {
		errs = append(errs, NewValidationError(CodeInvalidFieldFormat,
			"Array fields must not have Value attribute"))
	}
	if present(data, "Message") {
		errs = append(errs, NewValidationError(CodeInvalidFieldFormat,
			"Array fields must not have Message attribute"))
	}

	if present(data, "Elements") {
		ev := NewElementValidator()
		errs = append(errs, ev.checkArray(data["Elements"], ctx, depth+1)...)
	}
	return errs
}

// checkMessageField validates message fields: Value and Elements are
// forbidden, Message must be a non-empty object, and the nested message
// is re-validated through the message validator. A validation context
// is required on this path.
func (v *FieldValidator) checkMessageField(data map[string]any, ctx *ValidationContext, depth int) []*ValidationError {
	var errs []*ValidationError

	if present(data, "Value") {
		errs = append(errs, NewValidationError(CodeInvalidFieldFormat,
			"Message fields must not have Value attribute"))
	}
	if present(data, "Elements") {
		errs = append(errs, NewValidationError(CodeInvalidFieldFormat,
			"Message fields must not have Elements attribute"))
	}
	if !present(data, "Message") {
		errs = append(errs, NewValidationError(CodeInvalidFieldFormat,
			"Message fields must have Message attribute"))
		return errs
	}

	msg, ok := asMap(data["Message"])
	if !ok || len(msg) == 0 {
		errs = append(errs, NewValidationError(CodeInvalidMessageFormat,
			"Message content must be a non-empty object"))
		return errs
	}

	if ctx == nil {
		errs = append(errs, NewValidationError(CodeInvalidMessageFormat,
			"Validation context is required for message validation"))
		return errs
	}

	if err := NewMessageValidator().checkEnvelope(msg, ctx, depth+1); err != nil {
		errs = append(errs, wrap(err, "In nested message"))
	}
	return errs
}

// checkValue validates a primitive value against its resolved type tag
// and returns the most specific applicable error.
func checkValue(ft ogx.FieldType, value any) *ValidationError {
	switch ft {
	case ogx.FieldTypeString:
		if _, ok := value.(string); !ok {
			return NewValidationError(CodeInvalidFieldValue,
				"Invalid string field: Value must be a string")
		}

	case ogx.FieldTypeUnsignedInt:
		n, ok := coerceInt(value)
		if !ok {
			return NewValidationError(CodeInvalidFieldValue,
				"Invalid unsignedint field: Value must be a valid integer")
		}
		if n < 0 {
			return NewValidationError(CodeInvalidFieldValue,
				"Invalid unsignedint field: Value must be non-negative")
		}

	case ogx.FieldTypeSignedInt:
		if _, ok := coerceInt(value); !ok {
			return NewValidationError(CodeInvalidFieldValue,
				"Invalid signedint field: Value must be a valid integer")
		}

	case ogx.FieldTypeBoolean:
		if _, ok := coerceBool(value); !ok {
			return NewValidationError(CodeInvalidFieldValue,
				"Invalid boolean field: Value must be a valid boolean")
		}

	case ogx.FieldTypeEnum:
		s, ok := value.(string)
		if !ok || s == "" {
			return NewValidationError(CodeInvalidFieldValue,
				"Invalid enum field: Value must be a non-empty string")
		}

	case ogx.FieldTypeData:
		switch d := value.(type) {
		case []byte:
			// Raw bytes are always a valid payload.
		case string:
			if !isBase64(d) {
				return NewValidationError(CodeInvalidFieldValue,
					"Invalid data field: Value must be a valid base64 encoded string")
			}
		default:
			return NewValidationError(CodeInvalidFieldValue,
				"Invalid data field: Value must be a valid base64 encoded string")
		}
	}
	return nil
}

// titleTag capitalizes a type tag for attribute-conflict messages
// ("Array fields must not have Value attribute").
func titleTag(ft ogx.FieldType) string {
	s := string(ft)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
