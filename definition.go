package facet

import "fmt"

// DerivedFunc computes a derived value from the container's view. It must
// be a pure function of state fields and other derived values (including
// other containers'); mutations through the view fail with
// ErrImmutableView.
type DerivedFunc func(v *View) (any, error)

// OperationFunc is a mutating operation. It may read and write state, read
// derived values, call sibling operations, and reach other containers
// through the view. Returning a *Deferred keeps the operation's
// transaction open until the deferred settles.
type OperationFunc func(v *View, args ...any) (any, error)

// PersistOptions configures durable persistence for a container. The zero
// value persists under the runtime's default key and JSON codec.
type PersistOptions struct {
	// StorageKey derives the storage key from the container identifier.
	// Defaults to the runtime key prefix plus the identifier.
	StorageKey func(id string) string

	// Codec overrides the state codec. Defaults to JSONCodec.
	Codec Codec
}

// Definition declares a container: its initial state, derived values,
// operations, and optional persistence and debug settings.
type Definition struct {
	// State produces the initial field record. Fields are atomic units of
	// change tracking; nested values are opaque blobs. Required.
	State func() map[string]any

	// Derived maps name to computation.
	Derived map[string]DerivedFunc

	// Operations maps name to mutating operation.
	Operations map[string]OperationFunc

	// Persist enables durable persistence when non-nil.
	Persist *PersistOptions

	// Debug emits a structured record for every closed transaction.
	Debug bool
}

// Handle is a resolvable container definition. Resolve it against a
// Runtime to obtain (or create) the singleton instance.
type Handle struct {
	id  string
	def Definition
}

// reservedNames are the control-surface names no facet may use.
var reservedNames = map[string]struct{}{
	"id":        {},
	"state":     {},
	"patch":     {},
	"subscribe": {},
	"reset":     {},
}

// Define declares a container under an identifier. Derived value and
// operation names are validated immediately; state field names are
// validated when the initializer first runs at construction. A reserved
// name is fatal and aborts the definition.
func Define(id string, def Definition) (*Handle, error) {
	if def.State == nil {
		return nil, fmt.Errorf("container %q: definition requires a State initializer", id)
	}
	for name := range def.Derived {
		if _, bad := reservedNames[name]; bad {
			return nil, &ReservedNameError{Container: id, Name: name}
		}
	}
	for name := range def.Operations {
		if _, bad := reservedNames[name]; bad {
			return nil, &ReservedNameError{Container: id, Name: name}
		}
	}
	return &Handle{id: id, def: def}, nil
}

// MustDefine is Define, panicking on a definition error. Intended for
// package-level container declarations.
func MustDefine(id string, def Definition) *Handle {
	h, err := Define(id, def)
	if err != nil {
		panic(err)
	}
	return h
}

// ID returns the container identifier this handle resolves to.
func (h *Handle) ID() string {
	return h.id
}

// Use resolves the handle against a runtime.
func (h *Handle) Use(rt *Runtime) (*Container, error) {
	return rt.Use(h)
}
