package facet

import (
	"fmt"
)

// Accessor is a typed handle on one named property of a container,
// covering state fields and derived values alike. It trades the string-
// keyed Get/Set surface for compile-time value types at the call sites
// that always touch the same property.
type Accessor[T any] struct {
	c    *Container
	name string
}

// Bind creates a typed accessor for a container property.
func Bind[T any](c *Container, name string) *Accessor[T] {
	return &Accessor[T]{c: c, name: name}
}

// Get reads the property and asserts its type.
func (a *Accessor[T]) Get() (T, error) {
	value, err := a.c.Get(a.name)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](value)
}

// Set writes the property as a state field.
func (a *Accessor[T]) Set(value T) error {
	return a.c.Set(a.name, value)
}

// As performs a type assertion with a descriptive error instead of a
// panic. A nil value yields the zero value.
func As[T any](value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("type assertion error: expected %T, got %T (value: %v)", zero, value, value)
	}
	return typed, nil
}
