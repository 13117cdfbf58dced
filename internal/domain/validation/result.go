package validation

// ValidationResult is the outcome of a validation call.
//
// Valid is true exactly when Errors is empty. Field, element and
// protocol-gate validators accumulate independent errors at the same
// nesting level; nested validators fail fast per subtree, so Errors
// holds at most one entry per failed subtree.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// newResult builds a ValidationResult from the collected errors,
// maintaining the Valid/Errors invariant.
func newResult(errs []*ValidationError) ValidationResult {
	if len(errs) == 0 {
		return ValidationResult{Valid: true}
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return ValidationResult{Valid: false, Errors: msgs}
}
