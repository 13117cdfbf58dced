package validation

import "strings"

// Direction is the direction of a message relative to the terminal.
type Direction string

const (
	// DirectionForward is a to-terminal message.
	DirectionForward Direction = "FORWARD"
	// DirectionReturn is a from-terminal message.
	DirectionReturn Direction = "RETURN"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionForward || d == DirectionReturn
}

// NetworkType identifies the messaging network a message targets.
// OGx is the only network this gateway supports; other values are
// rejected at validation time rather than statically, because the
// network type arrives from the caller as data.
type NetworkType string

// NetworkOGx is the OGx satellite/cellular network.
const NetworkOGx NetworkType = "OGX"

// Valid reports whether n names a supported network.
func (n NetworkType) Valid() bool {
	return strings.EqualFold(string(n), string(NetworkOGx))
}

// ValidationContext describes the message being validated: its direction
// and the network it targets. A context is immutable for the duration of
// a validation call; validators never mutate it.
//
// Context is optional for field, element and array validation unless the
// input nests a message-typed field, which needs the context to validate
// its sub-message. Passing no context to a context-requiring path yields
// an error result, not a panic.
type ValidationContext struct {
	Direction   Direction
	NetworkType NetworkType
}

// NewContext creates a validation context for the given direction on the
// OGx network.
func NewContext(direction Direction) *ValidationContext {
	return &ValidationContext{
		Direction:   direction,
		NetworkType: NetworkOGx,
	}
}
