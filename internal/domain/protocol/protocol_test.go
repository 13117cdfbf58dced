package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/protexis/ogx-gateway/internal/domain/validation"
)

func testContext() *validation.ValidationContext {
	return validation.NewContext(validation.DirectionForward)
}

func TestNetworkValidator(t *testing.T) {
	v := NewNetworkValidator()

	tests := []struct {
		name    string
		data    any
		ctx     *validation.ValidationContext
		wantErr string
	}{
		{"valid", map[string]any{"Network": "OGX"}, testContext(), ""},
		{"valid lowercase key", map[string]any{"network": "OGX"}, testContext(), ""},
		{"valid lowercase value", map[string]any{"Network": "ogx"}, testContext(), ""},
		{"nil context", map[string]any{"Network": "OGX"}, nil, "Missing message direction"},
		{
			"empty direction",
			map[string]any{"Network": "OGX"},
			&validation.ValidationContext{NetworkType: validation.NetworkOGx},
			"Missing message direction",
		},
		{
			"invalid direction",
			map[string]any{"Network": "OGX"},
			&validation.ValidationContext{Direction: "SIDEWAYS", NetworkType: validation.NetworkOGx},
			"Invalid message direction: SIDEWAYS",
		},
		{"nil data", nil, testContext(), "Missing network data"},
		{"non-map data", "x", testContext(), "Invalid data type: expected object"},
		{"missing network key", map[string]any{"other": 1}, testContext(), "Missing network type"},
		{
			"unsupported network",
			map[string]any{"Network": "ISATDATA"},
			testContext(),
			"Invalid network type: ISATDATA",
		},
		{
			"non-string network",
			map[string]any{"Network": 5},
			testContext(),
			"Invalid network type: 5",
		},
		{
			"context missing network",
			map[string]any{"Network": "OGX"},
			&validation.ValidationContext{Direction: validation.DirectionForward},
			"Missing network type in context",
		},
		{
			"context invalid network",
			map[string]any{"Network": "OGX"},
			&validation.ValidationContext{Direction: validation.DirectionForward, NetworkType: "LORA"},
			"Invalid network type in context",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.data, tt.ctx)
			if tt.wantErr == "" {
				if !res.Valid {
					t.Errorf("expected valid, got %v", res.Errors)
				}
				return
			}
			if res.Valid {
				t.Fatal("expected invalid, got valid")
			}
			if res.Errors[0] != tt.wantErr {
				t.Errorf("got %q, want %q", res.Errors[0], tt.wantErr)
			}
		})
	}
}

func TestSizeValidator_Limits(t *testing.T) {
	if got := NewSizeValidator(0).Limit(); got != DefaultMessageSizeLimit {
		t.Errorf("zero limit should fall back to default, got %d", got)
	}
	if got := NewSizeValidator(-5).Limit(); got != DefaultMessageSizeLimit {
		t.Errorf("negative limit should fall back to default, got %d", got)
	}
	if got := NewSizeValidator(100).Limit(); got != 100 {
		t.Errorf("got %d, want 100", got)
	}
}

func TestSizeValidator_Boundary(t *testing.T) {
	// {"a":"xx"} serializes to exactly 10 bytes.
	data := map[string]any{"a": "xx"}

	if err := NewSizeValidator(10).CheckSize(data); err != nil {
		t.Errorf("payload of exactly the limit should be valid, got %v", err)
	}

	err := NewSizeValidator(9).CheckSize(data)
	if err == nil {
		t.Fatal("expected size error")
	}
	var se *SizeValidationError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SizeValidationError, got %T", err)
	}
	if se.CurrentSize != 10 || se.MaxSize != 9 {
		t.Errorf("got CurrentSize=%d MaxSize=%d, want 10 and 9", se.CurrentSize, se.MaxSize)
	}
	want := "Message size 10 exceeds maximum allowed size 9 bytes"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestSizeValidator_EmptyData(t *testing.T) {
	v := NewSizeValidator(DefaultMessageSizeLimit)

	for _, data := range []any{nil, "", []byte{}, map[string]any{}, []any{}} {
		err := v.CheckSize(data)
		if err == nil {
			t.Errorf("empty payload %#v should be an error", data)
			continue
		}
		if err.Error() != "No data to validate" {
			t.Errorf("got %q, want %q", err.Error(), "No data to validate")
		}
	}
}

func TestSizeValidator_Unserializable(t *testing.T) {
	v := NewSizeValidator(DefaultMessageSizeLimit)

	err := v.CheckSize(map[string]any{"fn": func() {}})
	if err == nil {
		t.Fatal("expected error for unserializable data")
	}
	if err.Error() != "Unable to serialize data for size validation" {
		t.Errorf("unexpected error: %q", err)
	}
}

func TestSizeValidator_Validate(t *testing.T) {
	v := NewSizeValidator(8)

	if res := v.Validate(map[string]any{"a": 1}, testContext()); !res.Valid {
		t.Errorf("expected valid, got %v", res.Errors)
	}
	res := v.Validate(map[string]any{"a": "a long value"}, testContext())
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if !strings.Contains(res.Errors[0], "exceeds maximum allowed size") {
		t.Errorf("unexpected error: %q", res.Errors[0])
	}
}

func TestTransportValidator(t *testing.T) {
	v := NewTransportValidator()

	tests := []struct {
		name    string
		data    any
		ctx     *validation.ValidationContext
		wantErr string
	}{
		{"satellite", map[string]any{"Transport": "SATELLITE"}, testContext(), ""},
		{"cellular", map[string]any{"Transport": "CELLULAR"}, testContext(), ""},
		{"lowercase key and value", map[string]any{"transport": "satellite"}, testContext(), ""},
		{
			"list of transports",
			map[string]any{"Transport": []any{"SATELLITE", "CELLULAR"}},
			testContext(),
			"",
		},
		{
			"string slice",
			map[string]any{"Transport": []string{"SATELLITE"}},
			testContext(),
			"",
		},
		{"nil context", map[string]any{"Transport": "SATELLITE"}, nil, "Missing message direction"},
		{"nil data", nil, testContext(), "Missing transport data"},
		{"non-map data", 7, testContext(), "Invalid data type: expected object"},
		{"missing transport", map[string]any{"Network": "OGX"}, testContext(), "Missing transport type"},
		{
			"unknown transport",
			map[string]any{"Transport": "CARRIER_PIGEON"},
			testContext(),
			"Invalid transport type: CARRIER_PIGEON",
		},
		{
			"non-string transport",
			map[string]any{"Transport": 3},
			testContext(),
			"Invalid transport type: 3",
		},
		{
			"non-string list item",
			map[string]any{"Transport": []any{"SATELLITE", 3}},
			testContext(),
			"Invalid transport type: 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.data, tt.ctx)
			if tt.wantErr == "" {
				if !res.Valid {
					t.Errorf("expected valid, got %v", res.Errors)
				}
				return
			}
			if res.Valid {
				t.Fatal("expected invalid, got valid")
			}
			if res.Errors[0] != tt.wantErr {
				t.Errorf("got %q, want %q", res.Errors[0], tt.wantErr)
			}
		})
	}
}

func TestTransportValidator_DelayedSendCellular(t *testing.T) {
	v := NewTransportValidator()

	data := map[string]any{
		"Transport":          "CELLULAR",
		"DelayedSendOptions": map[string]any{"SendTime": "2026-01-01T00:00:00Z"},
	}
	res := v.Validate(data, testContext())
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if res.Errors[0] != "Delayed send options not supported for cellular transport" {
		t.Errorf("unexpected error: %q", res.Errors[0])
	}

	// Satellite transport may delay sends.
	data["Transport"] = "SATELLITE"
	if res := v.Validate(data, testContext()); !res.Valid {
		t.Errorf("expected valid, got %v", res.Errors)
	}

	// An explicit null is the same as absent.
	res = v.Validate(map[string]any{
		"Transport": "CELLULAR", "DelayedSendOptions": nil,
	}, testContext())
	if !res.Valid {
		t.Errorf("null DelayedSendOptions should be allowed, got %v", res.Errors)
	}

	// Both transports requested: cellular still forbids delayed send.
	res = v.Validate(map[string]any{
		"Transport":          []any{"SATELLITE", "CELLULAR"},
		"DelayedSendOptions": map[string]any{},
	}, testContext())
	if res.Valid {
		t.Fatal("expected invalid when cellular is among requested transports")
	}
}

func TestTransportValidator_AccumulatesErrors(t *testing.T) {
	v := NewTransportValidator()

	data := map[string]any{
		"Transport":          []any{"CARRIER_PIGEON", "CELLULAR"},
		"DelayedSendOptions": map[string]any{},
	}
	res := v.Validate(data, testContext())
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected two accumulated errors, got %v", res.Errors)
	}
}
