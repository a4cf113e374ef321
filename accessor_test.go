package facet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccessorTypedGetSet(t *testing.T) {
	h, err := Define("typed", Definition{
		State: func() map[string]any { return map[string]any{"count": 0} },
		Derived: map[string]DerivedFunc{
			"double": func(v *View) (any, error) {
				count, err := v.Get("count")
				if err != nil {
					return nil, err
				}
				return count.(int) * 2, nil
			},
		},
	})
	require.NoError(t, err)

	rt := NewRuntime()
	c, err := rt.Use(h)
	require.NoError(t, err)

	count := Bind[int](c, "count")
	double := Bind[int](c, "double")

	require.NoError(t, count.Set(21))

	got, err := count.Get()
	require.NoError(t, err)
	require.Equal(t, 21, got)

	doubled, err := double.Get()
	require.NoError(t, err)
	require.Equal(t, 42, doubled)
}

func TestAccessorTypeMismatch(t *testing.T) {
	h, err := Define("mismatch", Definition{
		State: func() map[string]any { return map[string]any{"count": 0} },
	})
	require.NoError(t, err)

	rt := NewRuntime()
	c, err := rt.Use(h)
	require.NoError(t, err)

	_, err = Bind[string](c, "count").Get()
	require.Error(t, err)
	require.Contains(t, err.Error(), "type assertion error")
}

func TestAsNilYieldsZero(t *testing.T) {
	got, err := As[int](nil)
	require.NoError(t, err)
	require.Equal(t, 0, got)
}
