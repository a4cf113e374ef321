package facet

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownContainer is returned when resolving an identifier that has
	// no registered definition.
	ErrUnknownContainer = errors.New("unknown container")

	// ErrUnknownProperty is returned when reading a name that is neither an
	// operation, a derived value, nor a state field.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrReservedName is returned when a definition uses one of the
	// control-surface names (id, state, patch, subscribe, reset).
	ErrReservedName = errors.New("reserved name")

	// ErrDuplicateDefinition is returned when registering a second,
	// different definition under an identifier already in use.
	ErrDuplicateDefinition = errors.New("duplicate definition")

	// ErrImmutableView is returned when a derived value attempts to mutate
	// state or invoke an operation. Derived values are pure reads.
	ErrImmutableView = errors.New("immutable view")
)

// PropertyError reports a failed property lookup on a container.
type PropertyError struct {
	Container string
	Name      string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("container %q has no property %q", e.Container, e.Name)
}

func (e *PropertyError) Unwrap() error {
	return ErrUnknownProperty
}

// ReservedNameError reports a definition whose state field, derived value,
// or operation collides with a control-surface name. Fatal at definition
// time: the container is never constructed.
type ReservedNameError struct {
	Container string
	Name      string
}

func (e *ReservedNameError) Error() string {
	return fmt.Sprintf("container %q: %q collides with a control-surface name", e.Container, e.Name)
}

func (e *ReservedNameError) Unwrap() error {
	return ErrReservedName
}

// ImmutableViewError reports a mutation attempted from inside a derived
// value computation.
type ImmutableViewError struct {
	Container string
	Name      string
}

func (e *ImmutableViewError) Error() string {
	return fmt.Sprintf("container %q: derived values may not mutate %q", e.Container, e.Name)
}

func (e *ImmutableViewError) Unwrap() error {
	return ErrImmutableView
}
