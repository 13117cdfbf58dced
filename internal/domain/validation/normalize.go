package validation

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Accepted-spelling normalization lives here so the coercion rules are
// centrally testable instead of scattered across validators.

// boolSpellings are the string forms accepted for boolean field values,
// matched case-insensitively.
var boolSpellings = map[string]bool{
	"true":  true,
	"false": false,
	"1":     true,
	"0":     false,
}

// coerceBool interprets v as a boolean field value: a native bool or one
// of the accepted string spellings. The second return value is false
// when v is neither.
func coerceBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		val, ok := boolSpellings[strings.ToLower(b)]
		return val, ok
	default:
		return false, false
	}
}

// coerceInt interprets v as an integer field value. Native integer
// types, integral floats (the default JSON number representation),
// json.Number and decimal strings are accepted. Booleans are not
// integers on the wire.
func coerceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return int64(n), true
	case float32:
		return coerceInt(float64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// coerceIdentifier interprets v as a protocol identifier (SIN, MIN).
// Identifiers must be integers on the wire: native integer types,
// integral floats and json.Number are accepted, strings are not.
func coerceIdentifier(v any) (int64, bool) {
	if _, isString := v.(string); isString {
		return 0, false
	}
	return coerceInt(v)
}

// isBase64 reports whether s is a correctly padded standard base64
// string. The empty string is valid (zero-length payload).
func isBase64(s string) bool {
	if s == "" {
		return true
	}
	if len(s)%4 != 0 {
		return false
	}
	_, err := base64.StdEncoding.Strict().DecodeString(s)
	return err == nil
}

// lookupFold returns the value for the first key in m matching key
// case-insensitively.
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

// asMap converts v to a generic object, accepting both the decoded-JSON
// form and string-keyed maps built in code.
func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asList converts v to a generic list.
func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// present reports whether the key exists in data with a non-nil value.
// The wire format treats an explicit null the same as an absent
// attribute for presence checks on composite attributes.
func present(data map[string]any, key string) bool {
	v, ok := data[key]
	return ok && v != nil
}

// missingKeys returns the subset of keys absent from data, in the order
// given, so error messages name missing properties deterministically.
func missingKeys(data map[string]any, keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := data[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}
