package ogx

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeTree parses raw JSON into the generic key/value tree consumed by
// the validation engine. Numbers are preserved as json.Number so that
// integer identifiers (SIN, MIN, element indices) survive the round trip
// without float64 precision loss.
func DecodeTree(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return tree, nil
}

// EncodeMessage serializes a typed message to its wire format.
func EncodeMessage(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses raw JSON into a typed Message. Decoding enforces
// only JSON well-formedness; structural validation is the job of the
// validation engine, which operates on the generic tree form.
func DecodeMessage(raw []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &m, nil
}
