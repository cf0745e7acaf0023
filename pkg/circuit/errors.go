package circuit

import "errors"

var (
	// ErrUnknownKind is returned when adding a component of an undefined kind.
	ErrUnknownKind = errors.New("circuit: unknown component kind")

	// ErrComponentNotFound is returned for ids that were never issued or were removed.
	ErrComponentNotFound = errors.New("circuit: component not found")

	// ErrInvalidProperty is returned when a property does not apply to the component's kind.
	ErrInvalidProperty = errors.New("circuit: property not supported by component kind")

	// ErrInvalidValue is returned for NaN, negative or out-of-range property values.
	ErrInvalidValue = errors.New("circuit: invalid property value")

	// ErrInvalidTerminal is returned when a terminal index is out of range for its component.
	ErrInvalidTerminal = errors.New("circuit: invalid terminal")
)
