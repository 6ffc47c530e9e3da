package cart

import (
	"testing"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Selection_Bounds(t *testing.T) {
	// given
	sel := NewSelection()
	p := newProduct(1, 10, 3)
	// then
	assert.Equal(t, 1, sel.Get(p.ID))
	assert.Equal(t, 1, sel.Decrease(p.ID))
	assert.Equal(t, 2, sel.Increase(p))
	assert.Equal(t, 3, sel.Increase(p))
	assert.Equal(t, 3, sel.Increase(p))
	assert.Equal(t, 2, sel.Decrease(p.ID))

	// when
	sel.Reset(p.ID)
	// then
	assert.Equal(t, 1, sel.Get(p.ID))
}

func Test_Selection_Commit(t *testing.T) {
	testCases := []struct {
		name          string
		stock         int
		increases     int
		expectedQty   int
		expectedError error
	}{
		{name: "default quantity", stock: 5, expectedQty: 1},
		{name: "picked quantity", stock: 5, increases: 2, expectedQty: 3},
		{name: "out of stock", stock: 0, expectedError: sferrors.ErrInsufficientStock},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			sel := NewSelection()
			c := NewStore()
			p := newProduct(1, 10, tc.stock)
			for range tc.increases {
				sel.Increase(p)
			}
			// when
			err := sel.Commit(c, p)
			// then
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				assert.False(t, c.Contains(p.ID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedQty, c.QuantityOf(p.ID))
		})
	}
}
