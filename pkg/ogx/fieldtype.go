package ogx

import "strings"

// FieldType is one of the ten field type tags defined by the OGx
// Common Message Format. Type tags appear on the wire as lowercase
// strings in the Type property of a field.
type FieldType string

const (
	FieldTypeString      FieldType = "string"
	FieldTypeUnsignedInt FieldType = "unsignedint"
	FieldTypeSignedInt   FieldType = "signedint"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeEnum        FieldType = "enum"
	FieldTypeData        FieldType = "data"
	FieldTypeArray       FieldType = "array"
	FieldTypeMessage     FieldType = "message"
	FieldTypeDynamic     FieldType = "dynamic"
	FieldTypeProperty    FieldType = "property"
)

// fieldTypes is the set of all known type tags.
var fieldTypes = map[FieldType]bool{
	FieldTypeString:      true,
	FieldTypeUnsignedInt: true,
	FieldTypeSignedInt:   true,
	FieldTypeBoolean:     true,
	FieldTypeEnum:        true,
	FieldTypeData:        true,
	FieldTypeArray:       true,
	FieldTypeMessage:     true,
	FieldTypeDynamic:     true,
	FieldTypeProperty:    true,
}

// basicTypes is the subset of type tags that a dynamic or property
// field's TypeAttribute may resolve to.
var basicTypes = map[FieldType]bool{
	FieldTypeString:      true,
	FieldTypeUnsignedInt: true,
	FieldTypeSignedInt:   true,
	FieldTypeBoolean:     true,
	FieldTypeEnum:        true,
	FieldTypeData:        true,
}

// ParseFieldType resolves a wire-format type tag to a FieldType.
// Tags are matched case-insensitively. The second return value is
// false when the tag is not one of the ten known types.
func ParseFieldType(s string) (FieldType, bool) {
	ft := FieldType(strings.ToLower(s))
	return ft, fieldTypes[ft]
}

// IsBasic reports whether ft is one of the six primitive type tags
// permitted as a TypeAttribute on dynamic and property fields.
func (ft FieldType) IsBasic() bool {
	return basicTypes[ft]
}

// String returns the wire-format tag for the field type.
func (ft FieldType) String() string {
	return string(ft)
}
