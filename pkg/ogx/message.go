// Package ogx provides the OGx Common Message Format types, the JSON
// codec for the gateway wire format, message state definitions, and the
// CRC-16/CCITT checksum used by the protocol.
package ogx

// Message is the Common Message Format envelope. It is used both as the
// top-level message submitted to the gateway and as the payload of a
// message-typed field (nested messages have the same shape).
type Message struct {
	// Name is the message name assigned by the service definition.
	Name string `json:"Name"`

	// SIN is the Service Identification Number, a protocol-assigned
	// non-negative identifier.
	SIN int `json:"SIN"`

	// MIN is the Message Identification Number within the service.
	MIN int `json:"MIN"`

	// Fields is the ordered list of message fields. May be empty.
	Fields []Field `json:"Fields"`
}

// Field is one field of a message. Exactly one of Value, Elements or
// Message is populated, depending on the declared Type:
//
//   - primitive types (string, unsignedint, signedint, boolean, enum,
//     data) carry Value
//   - array carries Elements
//   - message carries Message
//   - dynamic and property carry Value plus TypeAttribute naming the
//     primitive type the value must satisfy
type Field struct {
	Name          string    `json:"Name"`
	Type          FieldType `json:"Type"`
	Value         any       `json:"Value,omitempty"`
	Elements      []Element `json:"Elements,omitempty"`
	Message       *Message  `json:"Message,omitempty"`
	TypeAttribute string    `json:"TypeAttribute,omitempty"`
}

// Element is one entry of an array field's Elements list. Indices are
// zero-based and must be sequential within the list.
type Element struct {
	Index  int     `json:"Index"`
	Fields []Field `json:"Fields"`
}

// AsMap converts the message to the generic key/value tree consumed by
// the validation engine. The conversion preserves wire-format keys.
func (m *Message) AsMap() map[string]any {
	fields := make([]any, 0, len(m.Fields))
	for i := range m.Fields {
		fields = append(fields, m.Fields[i].AsMap())
	}
	return map[string]any{
		"Name":   m.Name,
		"SIN":    m.SIN,
		"MIN":    m.MIN,
		"Fields": fields,
	}
}

// AsMap converts the field to its generic tree form.
func (f *Field) AsMap() map[string]any {
	out := map[string]any{
		"Name": f.Name,
		"Type": string(f.Type),
	}
	switch {
	case f.Elements != nil:
		elements := make([]any, 0, len(f.Elements))
		for i := range f.Elements {
			elements = append(elements, f.Elements[i].AsMap())
		}
		out["Elements"] = elements
	case f.Message != nil:
		out["Message"] = f.Message.AsMap()
	default:
		out["Value"] = f.Value
	}
	if f.TypeAttribute != "" {
		out["TypeAttribute"] = f.TypeAttribute
	}
	return out
}

// AsMap converts the element to its generic tree form.
func (e *Element) AsMap() map[string]any {
	fields := make([]any, 0, len(e.Fields))
	for i := range e.Fields {
		fields = append(fields, e.Fields[i].AsMap())
	}
	return map[string]any{
		"Index":  e.Index,
		"Fields": fields,
	}
}
