package facet

import (
	"sync"

	"go.uber.org/zap"
)

// Container is the singleton instance of a definition within a runtime. It
// owns one flat state record and mediates every read and write: reads
// resolve operation, then derived value, then state field; field reads
// during a derived computation feed the dependency graph; writes are
// buffered into the current transaction and committed atomically when it
// closes.
type Container struct {
	id  string
	rt  *Runtime
	def Definition

	mu     sync.Mutex
	state  map[string]any
	fields map[string]struct{}
	tx     *transaction

	bus bus

	persistKey string
	codec      Codec
}

// BoundOperation is an operation bound to its container, as returned by
// Get for an operation name.
type BoundOperation func(args ...any) (any, error)

// ID returns the container identifier.
func (c *Container) ID() string {
	return c.id
}

// State returns a snapshot of the committed state. The copy is shallow;
// nested values are shared and must not be mutated in place.
func (c *Container) State() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshotState(c.state)
}

// Get reads a property. Resolution order: operation (returned as a
// BoundOperation), derived value (computed or served from cache), state
// field. Reading an undeclared name fails with ErrUnknownProperty.
//
// Field reads during an active derived computation are recorded as
// dependencies of every computation on the evaluation stack, which is how
// cross-container derived values end up correctly invalidated.
func (c *Container) Get(name string) (any, error) {
	if _, ok := c.def.Operations[name]; ok {
		return BoundOperation(func(args ...any) (any, error) {
			return c.Call(name, args...)
		}), nil
	}
	if _, ok := c.def.Derived[name]; ok {
		return c.resolveDerived(name)
	}

	c.mu.Lock()
	if _, ok := c.fields[name]; ok {
		value := c.state[name]
		c.mu.Unlock()
		c.rt.graph.recordRead(FieldKey{Container: c.id, Field: name})
		return value, nil
	}
	c.mu.Unlock()
	return nil, &PropertyError{Container: c.id, Name: name}
}

// Set writes a state field. Writing an undeclared name warns and performs
// no mutation; the control surface is immutable after construction.
// Inside an open transaction the write joins it (last-write-wins per
// field); otherwise the write is its own single-field transaction.
func (c *Container) Set(field string, value any) error {
	c.mu.Lock()
	if _, ok := c.fields[field]; !ok {
		c.mu.Unlock()
		c.rt.logger.Warn("write to unknown property ignored",
			zap.String("container", c.id),
			zap.String("property", field))
		return nil
	}
	if c.tx != nil {
		c.tx.pending[field] = value
		c.mu.Unlock()
		return nil
	}
	tx := newTransaction(triggerMutation, c.state)
	tx.pending[field] = value
	c.tx = tx
	c.mu.Unlock()

	c.closeTx()
	return nil
}

// Patch applies a partial field record as one transaction: one
// invalidation pass and at most one notification regardless of how many
// fields changed. Undeclared fields warn and are skipped. Called while a
// transaction is open, the patch joins it.
func (c *Container) Patch(fields map[string]any) error {
	var unknown []string

	c.mu.Lock()
	joined := c.tx != nil
	if !joined {
		c.tx = newTransaction(triggerPatch, c.state)
	}
	for field, value := range fields {
		if _, ok := c.fields[field]; !ok {
			unknown = append(unknown, field)
			continue
		}
		c.tx.pending[field] = value
	}
	c.mu.Unlock()

	for _, field := range unknown {
		c.rt.logger.Warn("write to unknown property ignored",
			zap.String("container", c.id),
			zap.String("property", field))
	}

	if !joined {
		c.closeTx()
	}
	return nil
}

// Call invokes an operation. The outermost call opens the transaction;
// nested calls (an operation invoking a sibling) join it, and only the
// outermost triggers the snapshot/notify cycle. When the operation returns
// a *Deferred, the transaction stays open across the suspension and closes
// at settlement, so no partial state is observed mid-operation.
//
// A failure propagates to the caller unchanged. The transaction is still
// closed: writes buffered before the failure are committed and notified; a
// fully-failed operation that buffered nothing produces no notification.
func (c *Container) Call(name string, args ...any) (any, error) {
	op, ok := c.def.Operations[name]
	if !ok {
		return nil, &PropertyError{Container: c.id, Name: name}
	}

	c.mu.Lock()
	owner := c.tx == nil
	if owner {
		c.tx = newTransaction(triggerOperation+name, c.state)
	}
	c.tx.depth++
	c.mu.Unlock()

	result, err := op(c.view(false), args...)

	c.mu.Lock()
	if c.tx != nil {
		c.tx.depth--
	}
	c.mu.Unlock()

	if !owner {
		return result, err
	}

	if err == nil {
		if d, isDeferred := result.(*Deferred); isDeferred {
			d.onSettle(func(any, error) {
				c.closeTx()
			})
			return d, nil
		}
	}

	c.closeTx()
	return result, err
}

// Subscribe registers a change listener and returns its unsubscribe
// handle. Listeners fire once per closed transaction that produced at
// least one effective change, with post-state, pre-state and the net
// delta.
func (c *Container) Subscribe(fn Listener) func() {
	return c.bus.subscribe(c.id, fn, c.rt.logger)
}

// Reset recomputes state from the original initializer and applies the
// difference as one transaction. Fields present before but absent from the
// fresh record are reported as removed. All of the container's derived
// cache entries are dropped regardless of which fields changed. Not for
// use inside an operation.
func (c *Container) Reset() {
	fresh := c.def.State()
	if fresh == nil {
		fresh = map[string]any{}
	}

	c.mu.Lock()
	tx := newTransaction(triggerMutation, c.state)
	delta := make(Delta)
	for field, old := range c.state {
		if _, keep := fresh[field]; !keep {
			delta[field] = Change{Before: old, Removed: true}
		}
	}
	for field, value := range fresh {
		old, had := c.state[field]
		if !had || valueChanged(old, value) {
			delta[field] = Change{Before: old, After: value}
		}
	}
	c.state = snapshotState(fresh)
	c.fields = fieldSet(c.state)
	after := snapshotState(c.state)
	c.mu.Unlock()

	c.rt.cache.dropContainer(c.id)
	c.rt.graph.dropContainer(c.id)
	c.finish(tx, after, delta)
}

// resolveDerived returns the derived value, computing and caching it on a
// miss. On a hit during another computation the cached entry's recorded
// dependencies still propagate to the enclosing computations.
func (c *Container) resolveDerived(name string) (any, error) {
	key := DerivedKey{Container: c.id, Name: name}

	if value, ok := c.rt.cache.load(key); ok {
		c.rt.graph.propagateHit(key)
		return value, nil
	}

	c.rt.graph.clearDependenciesOf(key)
	c.rt.graph.push(key)
	value, err := c.def.Derived[name](c.view(true))
	c.rt.graph.pop()
	if err != nil {
		return nil, err
	}

	c.rt.cache.store(key, value)
	return value, nil
}

// closeTx commits the open transaction: apply buffered writes, evict every
// derived cache entry transitively reachable from the changed fields
// (across containers), notify once, emit the debug record, persist.
func (c *Container) closeTx() {
	c.mu.Lock()
	tx := c.tx
	c.tx = nil
	if tx == nil {
		c.mu.Unlock()
		return
	}
	delta := tx.diff()
	for field := range delta {
		if delta[field].Removed {
			continue
		}
		c.state[field] = tx.pending[field]
	}
	after := snapshotState(c.state)
	c.mu.Unlock()

	c.finish(tx, after, delta)
}

func (c *Container) finish(tx *transaction, after map[string]any, delta Delta) {
	if len(delta) == 0 {
		return
	}
	for field := range delta {
		c.rt.invalidateField(FieldKey{Container: c.id, Field: field})
	}
	c.bus.publish(after, tx.snapshot, delta)
	c.emitDebug(tx, after, delta)
	c.persist(after)
}

// persist serializes the full committed state under the container's
// storage key. Failures are logged, never fatal: a broken storage backend
// must not block mutations.
func (c *Container) persist(state map[string]any) {
	if c.persistKey == "" {
		return
	}
	raw, err := c.codec.Encode(state)
	if err != nil {
		c.rt.logger.Warn("state serialization failed, skipping persist",
			zap.String("container", c.id),
			zap.Error(err))
		return
	}
	if err := c.rt.storage.Set(c.persistKey, raw); err != nil {
		c.rt.logger.Warn("state persist failed",
			zap.String("container", c.id),
			zap.String("key", c.persistKey),
			zap.Error(err))
	}
}

func fieldSet(state map[string]any) map[string]struct{} {
	out := make(map[string]struct{}, len(state))
	for field := range state {
		out[field] = struct{}{}
	}
	return out
}
