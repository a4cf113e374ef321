package facet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveReturnsSameInstance(t *testing.T) {
	h, err := Define("single", Definition{
		State: func() map[string]any { return map[string]any{"n": 1} },
	})
	require.NoError(t, err)

	rt := NewRuntime()
	first, err := rt.Use(h)
	require.NoError(t, err)
	second, err := rt.Use(h)
	require.NoError(t, err)
	byID, err := rt.Container("single")
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Same(t, first, byID)
}

func TestRuntimesAreIsolated(t *testing.T) {
	h, err := Define("iso", Definition{
		State: func() map[string]any { return map[string]any{"n": 0} },
	})
	require.NoError(t, err)

	a := NewRuntime()
	b := NewRuntime()

	ca, err := a.Use(h)
	require.NoError(t, err)
	cb, err := b.Use(h)
	require.NoError(t, err)

	require.NotSame(t, ca, cb)
	require.NoError(t, ca.Set("n", 7))

	n, err := cb.Get("n")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestResetDiscardsInstances(t *testing.T) {
	initializations := 0
	h, err := Define("fresh", Definition{
		State: func() map[string]any {
			initializations++
			return map[string]any{"n": 0}
		},
	})
	require.NoError(t, err)

	rt := NewRuntime()
	c, err := rt.Use(h)
	require.NoError(t, err)
	require.NoError(t, c.Set("n", 42))
	require.Equal(t, 1, initializations)

	rt.Reset()

	// Definitions survive a reset; the next resolution reconstructs.
	c2, err := rt.Container("fresh")
	require.NoError(t, err)
	require.NotSame(t, c, c2)
	require.Equal(t, 2, initializations)

	n, err := c2.Get("n")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestResetClearsGraphAndCache(t *testing.T) {
	computations := 0
	h, err := Define("cached", Definition{
		State: func() map[string]any { return map[string]any{"n": 1} },
		Derived: map[string]DerivedFunc{
			"same": func(v *View) (any, error) {
				computations++
				return v.Get("n")
			},
		},
	})
	require.NoError(t, err)

	rt := NewRuntime()
	c, err := rt.Use(h)
	require.NoError(t, err)

	_, err = c.Get("same")
	require.NoError(t, err)
	require.Equal(t, 1, rt.cache.size())

	rt.Reset()
	require.Equal(t, 0, rt.cache.size())

	c2, err := rt.Container("cached")
	require.NoError(t, err)
	_, err = c2.Get("same")
	require.NoError(t, err)
	require.Equal(t, 2, computations)
}

func TestDuplicateDefinitionRejected(t *testing.T) {
	a, err := Define("dup", Definition{
		State: func() map[string]any { return map[string]any{} },
	})
	require.NoError(t, err)
	b, err := Define("dup", Definition{
		State: func() map[string]any { return map[string]any{} },
	})
	require.NoError(t, err)

	rt := NewRuntime()
	_, err = rt.Use(a)
	require.NoError(t, err)
	_, err = rt.Use(b)
	require.ErrorIs(t, err, ErrDuplicateDefinition)
}

func TestUnknownContainerLookup(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.Container("ghost")
	require.ErrorIs(t, err, ErrUnknownContainer)
}

func TestDisposeForgetsDefinitions(t *testing.T) {
	h, err := Define("gone", Definition{
		State: func() map[string]any { return map[string]any{} },
	})
	require.NoError(t, err)

	rt := NewRuntime()
	_, err = rt.Use(h)
	require.NoError(t, err)

	rt.Dispose()

	_, err = rt.Container("gone")
	require.ErrorIs(t, err, ErrUnknownContainer)
}

func TestHandleUse(t *testing.T) {
	h, err := Define("handle", Definition{
		State: func() map[string]any { return map[string]any{"n": 3} },
	})
	require.NoError(t, err)
	require.Equal(t, "handle", h.ID())

	rt := NewRuntime()
	c, err := h.Use(rt)
	require.NoError(t, err)
	require.Equal(t, "handle", c.ID())
}
