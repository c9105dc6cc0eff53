package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTrueIndices(t *testing.T) {
	t.Run("folds indices", func(t *testing.T) {
		b, err := FromTrueIndices[uint8]([]uint32{0, 5, 6})
		require.NoError(t, err)
		assert.Equal(t, uint8(0b0110_0001), b.Word())
		assert.Equal(t, uint32(0), b.LowerBound())
		assert.Equal(t, uint32(8), b.UpperBound())
	})

	t.Run("order independent", func(t *testing.T) {
		a, err := FromTrueIndices[uint16]([]uint32{1, 9, 15})
		require.NoError(t, err)
		b, err := FromTrueIndices[uint16]([]uint32{15, 1, 9})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		b, err := FromTrueIndices[uint8]([]uint32{3, 3, 3})
		require.NoError(t, err)
		assert.Equal(t, 1, b.Count())
	})

	t.Run("empty input", func(t *testing.T) {
		b, err := FromTrueIndices[uint64](nil)
		require.NoError(t, err)
		assert.True(t, b.None())
		assert.True(t, b.IsInitialized())
	})

	t.Run("index at capacity fails", func(t *testing.T) {
		_, err := FromTrueIndices[uint8]([]uint32{8})
		assert.ErrorIs(t, err, ErrIndexTooLarge)
		var ce *ConvertError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, uint32(8), ce.Index)
		assert.Equal(t, uint32(8), ce.Capacity)
	})

	t.Run("no partial result on failure", func(t *testing.T) {
		b, err := FromTrueIndices[uint8]([]uint32{0, 1, 200})
		assert.ErrorIs(t, err, ErrIndexTooLarge)
		assert.Equal(t, BitSet[uint8]{}, b)
	})
}
