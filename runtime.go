package facet

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces persisted snapshots in storage.
const DefaultKeyPrefix = "facet:"

// Runtime owns the shared machinery of a set of containers: the dependency
// graph, the derived value cache, and the identifier registry. Nothing is
// module-global; separate runtimes are fully isolated, so each test can
// own one without leaking into the next.
type Runtime struct {
	graph *dependencyGraph
	cache *derivedCache

	mu         sync.Mutex
	defs       map[string]*Handle
	containers map[string]*Container

	logger    *zap.Logger
	storage   Storage
	keyPrefix string
}

// RuntimeOption is a modifier for runtimes.
type RuntimeOption func(*Runtime)

// WithLogger sets the logger warnings and debug records go to. Defaults to
// a nop logger.
func WithLogger(logger *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithStorage sets the storage backend persisted containers write to.
// Defaults to an in-process MemoryStorage.
func WithStorage(storage Storage) RuntimeOption {
	return func(r *Runtime) {
		r.storage = storage
	}
}

// WithKeyPrefix overrides the storage key prefix.
func WithKeyPrefix(prefix string) RuntimeOption {
	return func(r *Runtime) {
		r.keyPrefix = prefix
	}
}

// NewRuntime creates an isolated runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		graph:      newDependencyGraph(),
		cache:      newDerivedCache(),
		defs:       make(map[string]*Handle),
		containers: make(map[string]*Container),
		logger:     zap.NewNop(),
		storage:    NewMemoryStorage(),
		keyPrefix:  DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register makes a definition resolvable by identifier without
// instantiating it. Registering a different definition under an identifier
// already in use fails; use Reload for that.
func (r *Runtime) Register(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(h)
}

func (r *Runtime) registerLocked(h *Handle) error {
	if existing, ok := r.defs[h.id]; ok && existing != h {
		return fmt.Errorf("container %q: %w", h.id, ErrDuplicateDefinition)
	}
	r.defs[h.id] = h
	return nil
}

// Use resolves a handle to its singleton container, constructing it on
// first resolution: the initializer runs, persisted state (if configured)
// is restored over the defaults, and the instance is registered for the
// runtime's lifetime.
func (r *Runtime) Use(h *Handle) (*Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.registerLocked(h); err != nil {
		return nil, err
	}
	return r.containerLocked(h.id)
}

// Container resolves an identifier to its singleton container. The
// identifier must have been registered; cross-container composition goes
// through here.
func (r *Runtime) Container(id string) (*Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.containerLocked(id)
}

func (r *Runtime) containerLocked(id string) (*Container, error) {
	if c, ok := r.containers[id]; ok {
		return c, nil
	}
	h, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("container %q: %w", id, ErrUnknownContainer)
	}
	c, err := r.build(h)
	if err != nil {
		return nil, err
	}
	r.containers[id] = c
	return c, nil
}

// build constructs a container: run the initializer, validate field names
// against the control surface, and restore persisted state. A malformed or
// unreadable snapshot is logged and falls back to the defaults; it never
// aborts construction.
func (r *Runtime) build(h *Handle) (*Container, error) {
	state := h.def.State()
	if state == nil {
		state = map[string]any{}
	}
	for field := range state {
		if _, bad := reservedNames[field]; bad {
			return nil, &ReservedNameError{Container: h.id, Name: field}
		}
	}

	c := &Container{
		id:     h.id,
		rt:     r,
		def:    h.def,
		state:  snapshotState(state),
		fields: fieldSet(state),
	}

	if h.def.Persist != nil {
		c.persistKey = r.keyPrefix + h.id
		if h.def.Persist.StorageKey != nil {
			c.persistKey = h.def.Persist.StorageKey(h.id)
		}
		c.codec = JSONCodec{}
		if h.def.Persist.Codec != nil {
			c.codec = h.def.Persist.Codec
		}
		r.restore(c)
	}

	return c, nil
}

// restore merges the persisted snapshot over the initializer defaults;
// persisted fields win. Fields no longer declared by the initializer are
// dropped.
func (r *Runtime) restore(c *Container) {
	raw, found, err := r.storage.Get(c.persistKey)
	if err != nil {
		r.logger.Warn("persisted state unreadable, using defaults",
			zap.String("container", c.id),
			zap.String("key", c.persistKey),
			zap.Error(err))
		return
	}
	if !found {
		return
	}
	persisted, err := c.codec.Decode(raw)
	if err != nil {
		r.logger.Warn("persisted state malformed, using defaults",
			zap.String("container", c.id),
			zap.String("key", c.persistKey),
			zap.Error(err))
		return
	}
	for field, value := range persisted {
		if _, ok := c.fields[field]; ok {
			c.state[field] = value
		}
	}
}

// invalidateField evicts every derived cache entry whose dependency set
// contains the field, in whichever container it lives.
func (r *Runtime) invalidateField(field FieldKey) {
	for _, key := range r.graph.readersOf(field) {
		r.cache.evict(key)
	}
}

// Reset discards every container instance, the dependency graph and the
// derived cache. Definitions stay registered: the next resolution of any
// identifier performs a full fresh construction (rehydrating from
// persistence when configured). Used by hot reload and test teardown.
func (r *Runtime) Reset() {
	r.mu.Lock()
	containers := r.containers
	r.containers = make(map[string]*Container)
	r.mu.Unlock()

	for _, c := range containers {
		c.bus.clear()
	}
	r.graph.clear()
	r.cache.clear()
}

// Dispose resets the runtime and forgets all definitions.
func (r *Runtime) Dispose() {
	r.Reset()
	r.mu.Lock()
	r.defs = make(map[string]*Handle)
	r.mu.Unlock()
}
