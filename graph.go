package facet

import (
	"sync"
)

// FieldKey identifies a single state field across all containers.
type FieldKey struct {
	Container string
	Field     string
}

// DerivedKey identifies a derived value across all containers.
type DerivedKey struct {
	Container string
	Name      string
}

// dependencyGraph is the bidirectional index between state fields and the
// derived values that read them, directly or through other derived values.
// It also owns the active-evaluation stack: while a derived value computes,
// every field read is attributed to every computation currently on the
// stack, so a field read three levels deep belongs to all three enclosing
// computations. The graph is shared by all containers of a runtime; keys
// carry the container identifier, which is what makes cross-container
// invalidation work.
type dependencyGraph struct {
	mu sync.RWMutex

	// fields: derived value -> set of fields it read last computation
	fields map[DerivedKey]map[FieldKey]struct{}
	// readers: field -> set of derived values that read it
	readers map[FieldKey]map[DerivedKey]struct{}

	stack []DerivedKey
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		fields:  make(map[DerivedKey]map[FieldKey]struct{}),
		readers: make(map[FieldKey]map[DerivedKey]struct{}),
	}
}

// push begins tracking a derived value computation. Reentrant: computing X
// while Y is already computing stacks X on top of Y.
func (g *dependencyGraph) push(key DerivedKey) {
	g.mu.Lock()
	g.stack = append(g.stack, key)
	g.mu.Unlock()
}

func (g *dependencyGraph) pop() {
	g.mu.Lock()
	if n := len(g.stack); n > 0 {
		g.stack = g.stack[:n-1]
	}
	g.mu.Unlock()
}

// tracking reports whether a derived value computation is active.
func (g *dependencyGraph) tracking() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.stack) > 0
}

// recordRead attributes a field read to every computation on the active
// stack. A no-op outside of derived value evaluation.
func (g *dependencyGraph) recordRead(field FieldKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addEdgeLocked(field)
}

func (g *dependencyGraph) addEdgeLocked(field FieldKey) {
	for _, dk := range g.stack {
		fs, ok := g.fields[dk]
		if !ok {
			fs = make(map[FieldKey]struct{})
			g.fields[dk] = fs
		}
		fs[field] = struct{}{}

		rs, ok := g.readers[field]
		if !ok {
			rs = make(map[DerivedKey]struct{})
			g.readers[field] = rs
		}
		rs[dk] = struct{}{}
	}
}

// propagateHit forwards the recorded dependencies of an already-cached
// derived value to the computations currently on the stack. A cache hit
// must not break the dependency chain: if B reads cached A, every field A
// depends on also becomes a dependency of B.
func (g *dependencyGraph) propagateHit(key DerivedKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.stack) == 0 {
		return
	}
	// Snapshot first: addEdgeLocked mutates g.fields for stack entries,
	// and key itself may be on the stack.
	deps := make([]FieldKey, 0, len(g.fields[key]))
	for f := range g.fields[key] {
		deps = append(deps, f)
	}
	for _, f := range deps {
		g.addEdgeLocked(f)
	}
}

// clearDependenciesOf drops the recorded edges of a derived value. Called
// before recomputation so stale dependencies from a since-changed
// computation path do not linger; the edge set is replaced, never merged.
func (g *dependencyGraph) clearDependenciesOf(key DerivedKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for f := range g.fields[key] {
		if rs, ok := g.readers[f]; ok {
			delete(rs, key)
			if len(rs) == 0 {
				delete(g.readers, f)
			}
		}
	}
	delete(g.fields, key)
}

// readersOf returns every derived value whose dependency set contains the
// field, in any container.
func (g *dependencyGraph) readersOf(field FieldKey) []DerivedKey {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rs, ok := g.readers[field]
	if !ok {
		return nil
	}
	out := make([]DerivedKey, 0, len(rs))
	for dk := range rs {
		out = append(out, dk)
	}
	return out
}

// dropContainer removes every edge belonging to the container's derived
// values. Used on container reset.
func (g *dependencyGraph) dropContainer(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for dk := range g.fields {
		if dk.Container != id {
			continue
		}
		for f := range g.fields[dk] {
			if rs, ok := g.readers[f]; ok {
				delete(rs, dk)
				if len(rs) == 0 {
					delete(g.readers, f)
				}
			}
		}
		delete(g.fields, dk)
	}
}

// clear empties the whole graph. Used on runtime reset.
func (g *dependencyGraph) clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fields = make(map[DerivedKey]map[FieldKey]struct{})
	g.readers = make(map[FieldKey]map[DerivedKey]struct{})
	g.stack = nil
}
