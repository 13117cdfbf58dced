package validation

import (
	"fmt"
	"strings"
)

// ElementValidator validates array elements: one element at a time via
// Validate, or a whole Elements list via ValidateArray, which also
// enforces the sequential zero-based index invariant.
type ElementValidator struct{}

// NewElementValidator creates an ElementValidator.
func NewElementValidator() *ElementValidator {
	return &ElementValidator{}
}

// Validate checks a single element: it must be an object with Index and
// Fields, Index must be a non-negative integer, Fields must be a list
// (an empty list is valid), and every field must pass field validation.
// The first failing field aborts validation of the element.
func (v *ElementValidator) Validate(element any, ctx *ValidationContext) ValidationResult {
	return newResult(v.checkElement(element, ctx, 0))
}

// ValidateArray checks a whole Elements list. An empty list is valid.
// The element found at list position i must report Index == i; checking
// positionally also catches duplicate indices, because the expected
// index has advanced by the second occurrence. The first failing
// element stops the scan.
func (v *ElementValidator) ValidateArray(elements any, ctx *ValidationContext) ValidationResult {
	return newResult(v.checkArray(elements, ctx, 0))
}

func (v *ElementValidator) checkElement(element any, ctx *ValidationContext, depth int) []*ValidationError {
	if depth > MaxNestingDepth {
		return []*ValidationError{errMaxDepth()}
	}

	el, ok := asMap(element)
	if !ok {
		return []*ValidationError{NewValidationError(CodeInvalidElementFormat,
			"Invalid element data type")}
	}

	if missing := missingKeys(el, "Index", "Fields"); len(missing) > 0 {
		return []*ValidationError{Errorf(CodeMissingRequiredField,
			"Missing required element properties: %s", strings.Join(missing, ", "))}
	}

	idx, ok := coerceInt(el["Index"])
	if !ok {
		return []*ValidationError{NewValidationError(CodeInvalidElementFormat,
			"Element Index must be an integer")}
	}
	if idx < 0 {
		return []*ValidationError{NewValidationError(CodeInvalidElementFormat,
			"Element Index must be non-negative")}
	}

	fields, ok := asList(el["Fields"])
	if !ok {
		return []*ValidationError{NewValidationError(CodeInvalidElementFormat,
			"Element Fields must be a list")}
	}

	fv := NewFieldValidator()
	for _, f := range fields {
		fd, ok := asMap(f)
		if !ok {
			return []*ValidationError{NewValidationError(CodeInvalidFieldFormat,
				"Field must be an object")}
		}
		if errs := fv.check(fd, ctx, depth+1); len(errs) > 0 {
			return errs[:1]
		}
	}
	return nil
}

func (v *ElementValidator) checkArray(elements any, ctx *ValidationContext, depth int) []*ValidationError {
	if depth > MaxNestingDepth {
		return []*ValidationError{errMaxDepth()}
	}

	list, ok := asList(elements)
	if !ok {
		return []*ValidationError{NewValidationError(CodeInvalidElementFormat,
			"Elements must be a list")}
	}

	for i, raw := range list {
		if errs := v.checkElement(raw, ctx, depth); len(errs) > 0 {
			return []*ValidationError{wrap(errs[0], fmt.Sprintf("In array element %d", i))}
		}

		// checkElement guarantees a map with an integer Index.
		el, _ := asMap(raw)
		idx, _ := coerceInt(el["Index"])
		if idx != int64(i) {
			return []*ValidationError{Errorf(CodeInvalidElementFormat, "Index must be %d", i)}
		}
	}
	return nil
}
