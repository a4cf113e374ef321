package facet

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// transaction is the implicit unit of work spanning one outermost
// operation call (including any awaited asynchronous continuation), one
// patch, or one direct field write. Writes are buffered in pending and
// applied atomically at close, so external readers never observe a
// partially-applied container; reads through the owning operation's view
// see the pending overlay.
type transaction struct {
	id       string
	trigger  string
	depth    int
	snapshot map[string]any
	pending  map[string]any
}

func newTransaction(trigger string, state map[string]any) *transaction {
	return &transaction{
		id:       uuid.NewString(),
		trigger:  trigger,
		snapshot: snapshotState(state),
		pending:  make(map[string]any),
	}
}

// diff computes the net field-level changes of the buffered writes against
// the pre-transaction snapshot.
func (tx *transaction) diff() Delta {
	delta := make(Delta)
	for field, after := range tx.pending {
		before := tx.snapshot[field]
		if valueChanged(before, after) {
			delta[field] = Change{Before: before, After: after}
		}
	}
	return delta
}

func snapshotState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}

// valueChanged implements the write-equality policy: primitive values
// compare by value; any non-primitive value always counts as changed, even
// when the reference is identical. That keeps callers who mutate nested
// structures out-of-band and reassign the subtree correct, at the cost of
// spurious invalidations on structurally-equal reassignment.
func valueChanged(before, after any) bool {
	if before == nil && after == nil {
		return false
	}
	if before == nil || after == nil {
		return true
	}
	bv, av := reflect.ValueOf(before), reflect.ValueOf(after)
	if bv.Kind() != av.Kind() {
		return true
	}
	switch av.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return before != after
	default:
		return true
	}
}

// Deferred is the settle-once result of an asynchronous operation. An
// operation that returns a *Deferred keeps its transaction open until the
// deferred settles; the transaction closes (committing buffered writes and
// notifying subscribers) at settlement, on success or failure alike.
//
// There is no cancellation primitive: a Deferred that never settles leaves
// its transaction open indefinitely. That is an accepted operational risk,
// not a recovered condition.
type Deferred struct {
	mu        sync.Mutex
	done      chan struct{}
	value     any
	err       error
	settled   bool
	callbacks []func(any, error)
}

// NewDeferred creates an unsettled Deferred.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolve settles the deferred with a value. Later settle calls are no-ops.
func (d *Deferred) Resolve(value any) {
	d.settle(value, nil)
}

// Reject settles the deferred with a failure.
func (d *Deferred) Reject(err error) {
	d.settle(nil, err)
}

func (d *Deferred) settle(value any, err error) {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return
	}
	d.settled = true
	d.value = value
	d.err = err
	callbacks := d.callbacks
	d.callbacks = nil
	d.mu.Unlock()

	// Callbacks run before done closes so Await observers see the
	// transaction already committed.
	for _, fn := range callbacks {
		fn(value, err)
	}
	close(d.done)
}

// onSettle registers a callback to run at settlement. If the deferred has
// already settled the callback runs immediately.
func (d *Deferred) onSettle(fn func(any, error)) {
	d.mu.Lock()
	if d.settled {
		value, err := d.value, d.err
		d.mu.Unlock()
		fn(value, err)
		return
	}
	d.callbacks = append(d.callbacks, fn)
	d.mu.Unlock()
}

// Await blocks until the deferred settles or the context is done.
func (d *Deferred) Await(ctx context.Context) (any, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
