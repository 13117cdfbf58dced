package validation

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
)

func testContext() *ValidationContext {
	return NewContext(DirectionForward)
}

func TestFieldValidator_ValidBasicFields(t *testing.T) {
	v := NewFieldValidator()

	tests := []struct {
		name  string
		field map[string]any
	}{
		{"string", map[string]any{"Name": "f", "Type": "string", "Value": "hello"}},
		{"empty string", map[string]any{"Name": "f", "Type": "string", "Value": ""}},
		{"unsignedint", map[string]any{"Name": "f", "Type": "unsignedint", "Value": 42}},
		{"unsignedint zero", map[string]any{"Name": "f", "Type": "unsignedint", "Value": 0}},
		{"unsignedint string form", map[string]any{"Name": "f", "Type": "unsignedint", "Value": "42"}},
		{"signedint negative", map[string]any{"Name": "f", "Type": "signedint", "Value": -1}},
		{"boolean native", map[string]any{"Name": "f", "Type": "boolean", "Value": true}},
		{"boolean string true", map[string]any{"Name": "f", "Type": "boolean", "Value": "true"}},
		{"boolean string TRUE", map[string]any{"Name": "f", "Type": "boolean", "Value": "TRUE"}},
		{"boolean string one", map[string]any{"Name": "f", "Type": "boolean", "Value": "1"}},
		{"boolean string zero", map[string]any{"Name": "f", "Type": "boolean", "Value": "0"}},
		{"enum", map[string]any{"Name": "f", "Type": "enum", "Value": "ACTIVE"}},
		{"data base64", map[string]any{"Name": "f", "Type": "data", "Value": "SGVsbG8="}},
		{"data empty", map[string]any{"Name": "f", "Type": "data", "Value": ""}},
		{"data raw bytes", map[string]any{"Name": "f", "Type": "data", "Value": []byte{0x01, 0x02}}},
		{"mixed case type tag", map[string]any{"Name": "f", "Type": "String", "Value": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.field, testContext())
			if !res.Valid {
				t.Errorf("expected valid, got errors: %v", res.Errors)
			}
		})
	}
}

func TestFieldValidator_InvalidValues(t *testing.T) {
	v := NewFieldValidator()

	tests := []struct {
		name    string
		field   map[string]any
		wantErr string
	}{
		{
			"unsignedint negative",
			map[string]any{"Name": "f", "Type": "unsignedint", "Value": -1},
			"Invalid unsignedint field: Value must be non-negative",
		},
		{
			"unsignedint non-numeric",
			map[string]any{"Name": "f", "Type": "unsignedint", "Value": "abc"},
			"Invalid unsignedint field: Value must be a valid integer",
		},
		{
			"signedint non-numeric",
			map[string]any{"Name": "f", "Type": "signedint", "Value": "abc"},
			"Invalid signedint field: Value must be a valid integer",
		},
		{
			"boolean bad string",
			map[string]any{"Name": "f", "Type": "boolean", "Value": "yes"},
			"Invalid boolean field: Value must be a valid boolean",
		},
		{
			"boolean numeric",
			map[string]any{"Name": "f", "Type": "boolean", "Value": 1},
			"Invalid boolean field: Value must be a valid boolean",
		},
		{
			"string non-string",
			map[string]any{"Name": "f", "Type": "string", "Value": 7},
			"Invalid string field: Value must be a string",
		},
		{
			"enum empty",
			map[string]any{"Name": "f", "Type": "enum", "Value": ""},
			"Invalid enum field: Value must be a non-empty string",
		},
		{
			"data bad padding",
			map[string]any{"Name": "f", "Type": "data", "Value": "SGVsbG8=a"},
			"Invalid data field: Value must be a valid base64 encoded string",
		},
		{
			"data bad alphabet",
			map[string]any{"Name": "f", "Type": "data", "Value": "????"},
			"Invalid data field: Value must be a valid base64 encoded string",
		},
		{
			"null value",
			map[string]any{"Name": "f", "Type": "string", "Value": nil},
			"Invalid string field: Value is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.field, testContext())
			if res.Valid {
				t.Fatal("expected invalid, got valid")
			}
			if !containsError(res.Errors, tt.wantErr) {
				t.Errorf("errors %v do not contain %q", res.Errors, tt.wantErr)
			}
		})
	}
}

func TestFieldValidator_RequiredProperties(t *testing.T) {
	v := NewFieldValidator()

	res := v.Validate(map[string]any{"Value": "x"}, testContext())
	if res.Valid {
		t.Fatal("expected invalid for field without Name and Type")
	}
	if !containsError(res.Errors, "Name, Type") {
		t.Errorf("error should name both missing properties, got %v", res.Errors)
	}

	res = v.Validate(map[string]any{"Name": "f", "Value": "x"}, testContext())
	if containsError(res.Errors, "Name") && !containsError(res.Errors, "Type") {
		t.Errorf("only Type is missing, got %v", res.Errors)
	}

	res = v.Validate(nil, testContext())
	if res.Valid {
		t.Fatal("expected invalid for nil field data")
	}
}

func TestFieldValidator_UnknownType(t *testing.T) {
	v := NewFieldValidator()

	res := v.Validate(map[string]any{"Name": "f", "Type": "blob", "Value": "x"}, testContext())
	if res.Valid {
		t.Fatal("expected invalid for unknown type tag")
	}
	if !containsError(res.Errors, "Invalid field type: blob") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func TestFieldValidator_ArrayField(t *testing.T) {
	v := NewFieldValidator()

	valid := map[string]any{
		"Name": "arr",
		"Type": "array",
		"Elements": []any{
			map[string]any{"Index": 0, "Fields": []any{
				map[string]any{"Name": "inner", "Type": "string", "Value": "a"},
			}},
			map[string]any{"Index": 1, "Fields": []any{
				map[string]any{"Name": "inner", "Type": "string", "Value": "b"},
			}},
		},
	}
	if res := v.Validate(valid, testContext()); !res.Valid {
		t.Errorf("expected valid array field, got %v", res.Errors)
	}

	// Elements is optional for array fields.
	if res := v.Validate(map[string]any{"Name": "arr", "Type": "array"}, testContext()); !res.Valid {
		t.Errorf("array without Elements should be valid, got %v", res.Errors)
	}

	withValue := map[string]any{"Name": "arr", "Type": "array", "Value": "x"}
	res := v.Validate(withValue, testContext())
	if !containsError(res.Errors, "Array fields must not have Value attribute") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}

	badIndex := map[string]any{
		"Name": "arr",
		"Type": "array",
		"Elements": []any{
			map[string]any{"Index": 1, "Fields": []any{
				map[string]any{"Name": "inner", "Type": "string", "Value": "a"},
			}},
		},
	}
	res = v.Validate(badIndex, testContext())
	if !containsError(res.Errors, "Index must be 0") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func TestFieldValidator_MessageField(t *testing.T) {
	v := NewFieldValidator()

	valid := map[string]any{
		"Name": "msg",
		"Type": "message",
		"Message": map[string]any{
			"Name": "nested_msg", "SIN": 16, "MIN": 1, "Fields": []any{},
		},
	}
	if res := v.Validate(valid, testContext()); !res.Valid {
		t.Errorf("expected valid message field, got %v", res.Errors)
	}

	res := v.Validate(map[string]any{"Name": "msg", "Type": "message"}, testContext())
	if !containsError(res.Errors, "Message fields must have Message attribute") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}

	res = v.Validate(map[string]any{
		"Name": "msg", "Type": "message", "Message": map[string]any{},
	}, testContext())
	if !containsError(res.Errors, "Message content must be a non-empty object") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}

	res = v.Validate(map[string]any{
		"Name": "msg", "Type": "message", "Value": "x",
		"Message": map[string]any{"Name": "n", "SIN": 16, "MIN": 1, "Fields": []any{}},
	}, testContext())
	if !containsError(res.Errors, "Message fields must not have Value attribute") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}

	// Context is required for nested message validation.
	res = v.Validate(valid, nil)
	if res.Valid {
		t.Fatal("expected invalid without context")
	}
	if !containsError(res.Errors, "Validation context is required") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func TestFieldValidator_NestedMessageErrorWrapping(t *testing.T) {
	v := NewFieldValidator()

	field := map[string]any{
		"Name": "outer",
		"Type": "message",
		"Message": map[string]any{
			"Name": "inner_msg",
			"SIN":  16,
			"MIN":  1,
			"Fields": []any{
				map[string]any{"Name": "nested", "Type": "unsignedint", "Value": -1},
			},
		},
	}

	res := v.Validate(field, testContext())
	if res.Valid {
		t.Fatal("expected invalid")
	}
	want := "In nested message: Field validation error: Invalid unsignedint field: Value must be non-negative"
	if len(res.Errors) == 0 || res.Errors[0] != want {
		t.Errorf("got %v, want %q", res.Errors, want)
	}
}

func TestFieldValidator_DynamicAndProperty(t *testing.T) {
	v := NewFieldValidator()

	for _, tag := range []string{"dynamic", "property"} {
		t.Run(tag, func(t *testing.T) {
			valid := map[string]any{
				"Name": "f", "Type": tag, "TypeAttribute": "unsignedint", "Value": 5,
			}
			if res := v.Validate(valid, testContext()); !res.Valid {
				t.Errorf("expected valid, got %v", res.Errors)
			}

			res := v.Validate(map[string]any{
				"Name": "f", "Type": tag, "TypeAttribute": "invalid_type", "Value": "x",
			}, testContext())
			if !containsError(res.Errors, "TypeAttribute invalid_type not allowed") {
				t.Errorf("unexpected errors: %v", res.Errors)
			}

			// Composite tags cannot be used as TypeAttribute.
			res = v.Validate(map[string]any{
				"Name": "f", "Type": tag, "TypeAttribute": "array", "Value": "x",
			}, testContext())
			if !containsError(res.Errors, "TypeAttribute array not allowed") {
				t.Errorf("unexpected errors: %v", res.Errors)
			}

			res = v.Validate(map[string]any{"Name": "f", "Type": tag, "Value": "x"}, testContext())
			if !containsError(res.Errors, "TypeAttribute is required") {
				t.Errorf("unexpected errors: %v", res.Errors)
			}

			res = v.Validate(map[string]any{
				"Name": "f", "Type": tag, "TypeAttribute": "", "Value": "x",
			}, testContext())
			if !containsError(res.Errors, "TypeAttribute cannot be empty") {
				t.Errorf("unexpected errors: %v", res.Errors)
			}

			// Value is checked against the resolved type.
			res = v.Validate(map[string]any{
				"Name": "f", "Type": tag, "TypeAttribute": "unsignedint", "Value": -1,
			}, testContext())
			if !containsError(res.Errors, "Invalid unsignedint field: Value must be non-negative") {
				t.Errorf("unexpected errors: %v", res.Errors)
			}
		})
	}
}

func TestFieldValidator_Base64RoundTrip(t *testing.T) {
	v := NewFieldValidator()

	payloads := [][]byte{
		{},
		{0x00},
		{0xDE, 0xAD, 0xBE, 0xEF},
		[]byte("the quick brown fox"),
	}
	for _, p := range payloads {
		encoded := base64.StdEncoding.EncodeToString(p)
		field := map[string]any{"Name": "d", "Type": "data", "Value": encoded}
		if res := v.Validate(field, testContext()); !res.Valid {
			t.Errorf("base64 of %v should validate, got %v", p, res.Errors)
		}
	}
}

func TestFieldValidator_Idempotent(t *testing.T) {
	v := NewFieldValidator()
	field := map[string]any{"Name": "f", "Type": "unsignedint", "Value": -1}

	first := v.Validate(field, testContext())
	second := v.Validate(field, testContext())

	if first.Valid != second.Valid || len(first.Errors) != len(second.Errors) {
		t.Fatalf("results differ: %v vs %v", first, second)
	}
	for i := range first.Errors {
		if first.Errors[i] != second.Errors[i] {
			t.Errorf("error %d differs: %q vs %q", i, first.Errors[i], second.Errors[i])
		}
	}
}

func TestFieldValidator_MaxNestingDepth(t *testing.T) {
	v := NewFieldValidator()

	// Build a message field nested well past the depth bound.
	inner := map[string]any{
		"Name": "leaf", "SIN": 16, "MIN": 1, "Fields": []any{},
	}
	for i := 0; i < MaxNestingDepth+4; i++ {
		inner = map[string]any{
			"Name": "level", "SIN": 16, "MIN": 1,
			"Fields": []any{
				map[string]any{"Name": fmt.Sprintf("f%d", i), "Type": "message", "Message": inner},
			},
		}
	}
	field := map[string]any{"Name": "deep", "Type": "message", "Message": inner}

	res := v.Validate(field, testContext())
	if res.Valid {
		t.Fatal("expected depth bound to reject pathological nesting")
	}
	if !containsError(res.Errors, "Maximum nesting depth exceeded") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func containsError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
