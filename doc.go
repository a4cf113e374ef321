// Package facet provides per-key singleton state containers with derived
// values, transactional mutations, change notification, and optional
// durable persistence.
//
// # Overview
//
// Facet organizes application state around three declared facets:
//
//  1. State: a flat record of fields, the atomic units of change tracking
//  2. Derived values: pure, memoized computations over state
//  3. Operations: mutating methods batched into transactions
//
// A Runtime owns the machinery shared by its containers: the dependency
// graph between fields and derived values, the derived value cache, and
// the identifier registry. Runtimes are explicit, never module-global, so
// tests and tools can run isolated instances side by side.
//
// # Basic Usage
//
// Declare a container and resolve it against a runtime:
//
//	counter := facet.MustDefine("counter", facet.Definition{
//	    State: func() map[string]any {
//	        return map[string]any{"count": 0}
//	    },
//	    Derived: map[string]facet.DerivedFunc{
//	        "double": func(v *facet.View) (any, error) {
//	            count, err := v.Get("count")
//	            if err != nil {
//	                return nil, err
//	            }
//	            return count.(int) * 2, nil
//	        },
//	    },
//	    Operations: map[string]facet.OperationFunc{
//	        "increment": func(v *facet.View, args ...any) (any, error) {
//	            count, _ := v.Get("count")
//	            return nil, v.Set("count", count.(int)+1)
//	        },
//	    },
//	})
//
//	rt := facet.NewRuntime()
//	c, err := rt.Use(counter)
//
//	doubled, _ := c.Get("double") // computes and caches
//	c.Call("increment")           // evicts "double" along graph edges
//	doubled, _ = c.Get("double")  // recomputes once
//
// Resolving the same identifier twice returns the same instance for the
// runtime's lifetime; Runtime.Reset discards all instances so the next
// resolution constructs fresh state.
//
// # Dependency Tracking
//
// While a derived value computes, every field it reads, directly or
// through other derived values, is recorded as a dependency. Edges are
// replaced on each recomputation, so a dependency from an abandoned code
// path does not linger. A mutation evicts exactly the cache entries whose
// dependency sets contain a changed field; unrelated derived values are
// untouched.
//
// Derived values may read other containers through the view:
//
//	"total": func(v *facet.View) (any, error) {
//	    other, err := v.Use("cart")
//	    if err != nil {
//	        return nil, err
//	    }
//	    subtotal, err := other.Get("subtotal")
//	    ...
//	}
//
// Dependency keys carry the container identifier, so a change to a field
// in "cart" evicts both cart's own derived entries and every entry in
// other containers that read them, transitively.
//
// # Transactions
//
// Every mutation happens inside a transaction: a direct Set is its own
// single-field transaction, Patch batches several fields into one, and an
// operation call spans one from invocation to settlement. Nested operation
// calls join the outer transaction; only the outermost triggers the
// snapshot, invalidation, notification and persistence cycle. Writes are
// buffered and committed atomically at close, so external readers never
// observe a half-applied operation.
//
// An operation may return a *Deferred to stay open across asynchronous
// work:
//
//	"load": func(v *facet.View, args ...any) (any, error) {
//	    d := facet.NewDeferred()
//	    go func() {
//	        data, err := fetch()
//	        if err != nil {
//	            d.Reject(err)
//	            return
//	        }
//	        v.Set("data", data)
//	        d.Resolve(data)
//	    }()
//	    return d, nil
//	}
//
// The transaction closes when the deferred settles; subscribers see one
// notification carrying the net delta.
//
// # Subscriptions
//
// Subscribe registers a listener fired once per closed transaction that
// changed at least one field:
//
//	unsubscribe := c.Subscribe(func(state, previous map[string]any, delta facet.Delta) {
//	    render(state)
//	})
//	defer unsubscribe()
//
// Notification is additive: invalidation and persistence run whether or
// not anyone listens.
//
// # Persistence
//
// A definition with Persist set writes its full state through the
// runtime's Storage after every closed transaction and restores it on
// construction, persisted fields winning over initializer defaults:
//
//	settings := facet.MustDefine("settings", facet.Definition{
//	    State:   func() map[string]any { return map[string]any{"theme": "light"} },
//	    Persist: &facet.PersistOptions{},
//	})
//
//	storage, _ := facet.NewSQLiteStorage("app.db")
//	rt := facet.NewRuntime(facet.WithStorage(storage))
//
// Malformed or missing snapshots fall back to defaults with a logged
// warning; a failing write is logged and skipped. Persistence never blocks
// a mutation.
//
// # Concurrency
//
// Containers assume cooperative scheduling: no two goroutines race to
// mutate the same container, and suspension happens only at operation
// boundaries awaiting a Deferred. Writes from anywhere during an open
// transaction are merged into it, last write per field winning. Reads of
// another container during a derived computation see its committed state,
// before or after its own transaction closes, never between.
package facet
