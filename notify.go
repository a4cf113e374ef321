package facet

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Change describes the net effect a transaction had on one field.
// Removed is set when a reset dropped the field entirely; After is nil in
// that case.
type Change struct {
	Before  any
	After   any
	Removed bool
}

// Delta is the net field-level effect of one closed transaction,
// last-write-wins per field.
type Delta map[string]Change

// Listener receives one callback per closed transaction that produced at
// least one effective field change. state is the post-transaction
// snapshot, previous the pre-transaction snapshot. Both are copies;
// mutating them has no effect on the container.
type Listener func(state, previous map[string]any, delta Delta)

type busEntry struct {
	seq int
	fn  Listener
}

// bus is the per-container list of change listeners. Notification is
// additive: a container with no listeners still invalidates and persists.
type bus struct {
	mu      sync.Mutex
	seq     int
	entries []busEntry
}

// subscribe registers a listener and returns its unsubscribe handle.
// Registering the same function twice warns but still registers; such a
// listener fires once per registration.
func (b *bus) subscribe(container string, fn Listener, logger *zap.Logger) func() {
	b.mu.Lock()
	ptr := reflect.ValueOf(fn).Pointer()
	for _, e := range b.entries {
		if reflect.ValueOf(e.fn).Pointer() == ptr {
			logger.Warn("listener already subscribed",
				zap.String("container", container))
			break
		}
	}
	b.seq++
	seq := b.seq
	b.entries = append(b.entries, busEntry{seq: seq, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		for i, e := range b.entries {
			if e.seq == seq {
				b.entries = append(b.entries[:i], b.entries[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	}
}

func (b *bus) publish(state, previous map[string]any, delta Delta) {
	b.mu.Lock()
	entries := make([]busEntry, len(b.entries))
	copy(entries, b.entries)
	b.mu.Unlock()

	for _, e := range entries {
		e.fn(state, previous, delta)
	}
}

func (b *bus) clear() {
	b.mu.Lock()
	b.entries = nil
	b.mu.Unlock()
}
