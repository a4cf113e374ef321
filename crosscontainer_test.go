package facet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Cross-container composition: cart's "total" reads pricing's "subtotal",
// which reads pricing's own fields. A change to a pricing field must evict
// both cache entries, and both must recompute exactly once on next access.
func TestCrossContainerInvalidation(t *testing.T) {
	subtotalComputations := 0
	totalComputations := 0

	pricing, err := Define("pricing", Definition{
		State: func() map[string]any {
			return map[string]any{"price": 10, "quantity": 2}
		},
		Derived: map[string]DerivedFunc{
			"subtotal": func(v *View) (any, error) {
				subtotalComputations++
				price, err := v.Get("price")
				if err != nil {
					return nil, err
				}
				quantity, err := v.Get("quantity")
				if err != nil {
					return nil, err
				}
				return price.(int) * quantity.(int), nil
			},
		},
	})
	require.NoError(t, err)

	cart, err := Define("cart", Definition{
		State: func() map[string]any {
			return map[string]any{"shipping": 5}
		},
		Derived: map[string]DerivedFunc{
			"total": func(v *View) (any, error) {
				totalComputations++
				other, err := v.Use("pricing")
				if err != nil {
					return nil, err
				}
				subtotal, err := other.Get("subtotal")
				if err != nil {
					return nil, err
				}
				shipping, err := v.Get("shipping")
				if err != nil {
					return nil, err
				}
				return subtotal.(int) + shipping.(int), nil
			},
		},
	})
	require.NoError(t, err)

	rt := NewRuntime()
	require.NoError(t, rt.Register(pricing))
	c, err := rt.Use(cart)
	require.NoError(t, err)

	total, err := c.Get("total")
	require.NoError(t, err)
	require.Equal(t, 25, total)
	require.Equal(t, 1, subtotalComputations)
	require.Equal(t, 1, totalComputations)

	// Mutate the *other* container's underlying field.
	p, err := rt.Container("pricing")
	require.NoError(t, err)
	require.NoError(t, p.Set("price", 20))

	total, err = c.Get("total")
	require.NoError(t, err)
	require.Equal(t, 45, total)
	require.Equal(t, 2, subtotalComputations, "pricing's entry recomputes exactly once")
	require.Equal(t, 2, totalComputations, "cart's entry recomputes exactly once")

	// Cache hits all the way down.
	_, err = c.Get("total")
	require.NoError(t, err)
	require.Equal(t, 2, subtotalComputations)
	require.Equal(t, 2, totalComputations)
}

// A cache hit mid-computation must not break the chain: cart computes
// against an already-cached pricing subtotal, and still gets evicted when
// the underlying field changes.
func TestCrossContainerCacheHitKeepsChain(t *testing.T) {
	totalComputations := 0

	pricing, err := Define("pricing", Definition{
		State: func() map[string]any { return map[string]any{"price": 10} },
		Derived: map[string]DerivedFunc{
			"subtotal": func(v *View) (any, error) {
				price, err := v.Get("price")
				if err != nil {
					return nil, err
				}
				return price.(int), nil
			},
		},
	})
	require.NoError(t, err)

	cart, err := Define("cart", Definition{
		State: func() map[string]any { return map[string]any{} },
		Derived: map[string]DerivedFunc{
			"total": func(v *View) (any, error) {
				totalComputations++
				other, err := v.Use("pricing")
				if err != nil {
					return nil, err
				}
				subtotal, err := other.Get("subtotal")
				if err != nil {
					return nil, err
				}
				return subtotal, nil
			},
		},
	})
	require.NoError(t, err)

	rt := NewRuntime()
	p, err := rt.Use(pricing)
	require.NoError(t, err)
	c, err := rt.Use(cart)
	require.NoError(t, err)

	// Warm pricing's cache before cart ever computes.
	_, err = p.Get("subtotal")
	require.NoError(t, err)

	total, err := c.Get("total")
	require.NoError(t, err)
	require.Equal(t, 10, total)
	require.Equal(t, 1, totalComputations)

	require.NoError(t, p.Set("price", 30))

	total, err = c.Get("total")
	require.NoError(t, err)
	require.Equal(t, 30, total)
	require.Equal(t, 2, totalComputations)
}

func TestCrossContainerUnknownIdentifier(t *testing.T) {
	lonely, err := Define("lonely", Definition{
		State: func() map[string]any { return map[string]any{} },
		Derived: map[string]DerivedFunc{
			"broken": func(v *View) (any, error) {
				if _, err := v.Use("nowhere"); err != nil {
					return nil, err
				}
				return nil, nil
			},
		},
	})
	require.NoError(t, err)

	rt := NewRuntime()
	c, err := rt.Use(lonely)
	require.NoError(t, err)

	_, err = c.Get("broken")
	require.ErrorIs(t, err, ErrUnknownContainer)
}
