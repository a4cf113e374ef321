package facet

// View is the intercepted receiver handed to derived values and
// operations. A derived value gets a read-only view: field reads feed the
// dependency graph and any mutation fails with ErrImmutableView. An
// operation gets a read/write view whose field reads see the operation's
// own uncommitted writes, while everyone else keeps seeing the committed
// state until the transaction closes.
type View struct {
	c        *Container
	readOnly bool
}

func (c *Container) view(readOnly bool) *View {
	return &View{c: c, readOnly: readOnly}
}

// ID returns the owning container's identifier.
func (v *View) ID() string {
	return v.c.id
}

// Get reads a property with the container's resolution order. In an
// operation view, reads of fields written earlier in the same transaction
// return the pending value.
func (v *View) Get(name string) (any, error) {
	c := v.c
	if _, ok := c.def.Operations[name]; ok {
		if v.readOnly {
			return nil, &ImmutableViewError{Container: c.id, Name: name}
		}
		return c.Get(name)
	}
	if _, ok := c.def.Derived[name]; ok {
		return c.resolveDerived(name)
	}

	c.mu.Lock()
	if _, ok := c.fields[name]; ok {
		var value any
		if !v.readOnly && c.tx != nil {
			if pending, buffered := c.tx.pending[name]; buffered {
				value = pending
			} else {
				value = c.state[name]
			}
		} else {
			value = c.state[name]
		}
		c.mu.Unlock()
		if v.readOnly {
			c.rt.graph.recordRead(FieldKey{Container: c.id, Field: name})
		}
		return value, nil
	}
	c.mu.Unlock()
	return nil, &PropertyError{Container: c.id, Name: name}
}

// Set writes a state field into the current transaction.
func (v *View) Set(field string, value any) error {
	if v.readOnly {
		return &ImmutableViewError{Container: v.c.id, Name: field}
	}
	return v.c.Set(field, value)
}

// Patch applies a partial field record; inside an operation it joins the
// operation's transaction.
func (v *View) Patch(fields map[string]any) error {
	if v.readOnly {
		return &ImmutableViewError{Container: v.c.id, Name: "patch"}
	}
	return v.c.Patch(fields)
}

// Call invokes a sibling operation. The nested call shares the outer
// transaction.
func (v *View) Call(name string, args ...any) (any, error) {
	if v.readOnly {
		return nil, &ImmutableViewError{Container: v.c.id, Name: name}
	}
	return v.c.Call(name, args...)
}

// Use resolves another container through the runtime registry. Reads
// against the returned container are attributed to any derived computation
// in progress, which is what keys cross-container invalidation.
func (v *View) Use(id string) (*Container, error) {
	return v.c.rt.Container(id)
}
