package facet

// Reload hot-swaps a container's definition in place. Fields the new
// initializer adds are merged into the existing state without dropping
// current values; derived value and operation implementations are
// replaced; the container's derived cache entries are evicted so the new
// computations take effect on next access. A container that has not been
// instantiated yet simply gets the new definition registered.
//
// This is a development-time convenience on top of Reset; it fires no
// notification of its own.
func (r *Runtime) Reload(h *Handle) error {
	for name := range h.def.Derived {
		if _, bad := reservedNames[name]; bad {
			return &ReservedNameError{Container: h.id, Name: name}
		}
	}
	for name := range h.def.Operations {
		if _, bad := reservedNames[name]; bad {
			return &ReservedNameError{Container: h.id, Name: name}
		}
	}

	r.mu.Lock()
	r.defs[h.id] = h
	c, live := r.containers[h.id]
	r.mu.Unlock()

	if !live {
		return nil
	}

	fresh := h.def.State()
	if fresh == nil {
		fresh = map[string]any{}
	}
	for field := range fresh {
		if _, bad := reservedNames[field]; bad {
			return &ReservedNameError{Container: h.id, Name: field}
		}
	}

	c.mu.Lock()
	c.def = h.def
	for field, value := range fresh {
		if _, exists := c.state[field]; !exists {
			c.state[field] = value
			c.fields[field] = struct{}{}
		}
	}
	c.mu.Unlock()

	r.cache.dropContainer(h.id)
	r.graph.dropContainer(h.id)
	return nil
}
