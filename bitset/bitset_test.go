package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("uint8 full width", func(t *testing.T) {
		b := New[uint8](0xA5)
		assert.Equal(t, uint8(0xA5), b.Word())
		assert.Equal(t, uint32(0), b.LowerBound())
		assert.Equal(t, uint32(8), b.UpperBound())
		assert.True(t, b.IsInitialized())
	})

	t.Run("uint64 full width", func(t *testing.T) {
		b := New[uint64](^uint64(0))
		assert.Equal(t, uint32(64), b.UpperBound())
		assert.Equal(t, 64, b.Count())
	})

	t.Run("zero value is uninitialized", func(t *testing.T) {
		var b BitSet[uint16]
		assert.False(t, b.IsInitialized())
		assert.Equal(t, uint32(0), b.Len())
		assert.True(t, b.None())
		assert.True(t, b.All()) // vacuously
	})
}

func TestNewWithWindow(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		b, err := NewWithWindow[uint8](0xFF, 2, 5)
		require.NoError(t, err)
		assert.Equal(t, uint32(3), b.Len())
	})

	t.Run("upper beyond capacity", func(t *testing.T) {
		_, err := NewWithWindow[uint8](0, 0, 9)
		assert.ErrorIs(t, err, ErrInvalidBound)
	})

	t.Run("lower above upper", func(t *testing.T) {
		_, err := NewWithWindow[uint8](0, 5, 4)
		assert.ErrorIs(t, err, ErrInvalidBound)
	})
}

func TestGetSetToggle(t *testing.T) {
	t.Run("set then get", func(t *testing.T) {
		b := New[uint16](0)
		require.NoError(t, b.Set(3, true))
		got, err := b.Get(3)
		require.NoError(t, err)
		assert.True(t, got)

		require.NoError(t, b.Set(3, false))
		got, err = b.Get(3)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("toggle twice restores", func(t *testing.T) {
		b := New[uint8](0b0100)
		before := b.Word()
		require.NoError(t, b.Toggle(2))
		got, err := b.Get(2)
		require.NoError(t, err)
		assert.False(t, got)
		require.NoError(t, b.Toggle(2))
		assert.Equal(t, before, b.Word())
	})

	t.Run("index below window", func(t *testing.T) {
		b, err := NewWithWindow[uint8](0xFF, 2, 5)
		require.NoError(t, err)
		_, err = b.Get(1)
		assert.ErrorIs(t, err, ErrOutOfRange)
		var ie *IndexError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, uint32(1), ie.Index)
		assert.Equal(t, uint32(2), ie.Lower)
		assert.Equal(t, uint32(5), ie.Upper)
	})

	t.Run("index at upper bound", func(t *testing.T) {
		b, err := NewWithWindow[uint8](0xFF, 2, 5)
		require.NoError(t, err)
		assert.ErrorIs(t, b.Set(5, true), ErrOutOfRange)
		assert.ErrorIs(t, b.Toggle(5), ErrOutOfRange)
	})

	t.Run("empty window rejects everything", func(t *testing.T) {
		var b BitSet[uint32]
		_, err := b.Get(0)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})
}

func TestWindowExclusion(t *testing.T) {
	// All eight bits set, but only [2, 5) is active.
	b, err := NewWithWindow[uint8](0xFF, 2, 5)
	require.NoError(t, err)

	assert.Equal(t, 3, b.Count())

	_, err = b.Get(1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	got, err := b.Get(2)
	require.NoError(t, err)
	assert.True(t, got)

	// Clearing the window must leave the excluded bits alone.
	b.Clear()
	assert.Equal(t, uint8(0b1110_0011), b.Word())
	assert.Equal(t, 0, b.Count())

	b.SetAll()
	assert.Equal(t, uint8(0xFF), b.Word())
}

func TestBulkPredicates(t *testing.T) {
	t.Run("all any none", func(t *testing.T) {
		b, err := NewWithWindow[uint8](0b0001_1100, 2, 5)
		require.NoError(t, err)
		assert.True(t, b.All())
		assert.True(t, b.Any())
		assert.False(t, b.None())

		b.Clear()
		assert.False(t, b.All())
		assert.False(t, b.Any())
		assert.True(t, b.None())
	})

	t.Run("empty window", func(t *testing.T) {
		b, err := NewWithWindow[uint8](0xFF, 4, 4)
		require.NoError(t, err)
		assert.True(t, b.All())
		assert.False(t, b.Any())
		assert.True(t, b.None())
		assert.Equal(t, 0, b.Count())
	})

	t.Run("full uint64 window", func(t *testing.T) {
		b := New[uint64](^uint64(0))
		assert.True(t, b.All())
		assert.Equal(t, 64, b.Count())
	})
}

func TestIdempotence(t *testing.T) {
	b, err := NewWithWindow[uint16](0xBEEF, 4, 12)
	require.NoError(t, err)

	b.Clear()
	afterFirst := b
	b.Clear()
	assert.Equal(t, afterFirst, b)

	b.SetAll()
	afterFirst = b
	b.SetAll()
	assert.Equal(t, afterFirst, b)
}

func TestTrueIndices(t *testing.T) {
	t.Run("ascending and window restricted", func(t *testing.T) {
		b, err := NewWithWindow[uint8](0b1010_1011, 1, 6)
		require.NoError(t, err)
		assert.Equal(t, []uint32{1, 3, 5}, b.TrueIndices())
	})

	t.Run("recomputed not live", func(t *testing.T) {
		b := New[uint8](0b1)
		first := b.TrueIndices()
		require.NoError(t, b.Set(2, true))
		assert.Equal(t, []uint32{0}, first)
		assert.Equal(t, []uint32{0, 2}, b.TrueIndices())
	})

	t.Run("empty", func(t *testing.T) {
		b := New[uint32](0)
		assert.Empty(t, b.TrueIndices())
	})
}

func TestSetBounds(t *testing.T) {
	t.Run("narrow then widen", func(t *testing.T) {
		b := New[uint8](0xFF)
		require.NoError(t, b.SetLowerBound(2))
		require.NoError(t, b.SetUpperBound(5))
		assert.Equal(t, 3, b.Count())
		require.NoError(t, b.SetUpperBound(8))
		assert.Equal(t, 6, b.Count())
	})

	t.Run("lower above upper", func(t *testing.T) {
		b, err := NewWithWindow[uint8](0, 0, 4)
		require.NoError(t, err)
		err = b.SetLowerBound(5)
		assert.ErrorIs(t, err, ErrInvalidBound)
		var be *BoundError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, uint32(5), be.Bound)
		assert.Equal(t, uint32(4), be.Limit)
	})

	t.Run("upper below lower", func(t *testing.T) {
		b, err := NewWithWindow[uint8](0, 3, 8)
		require.NoError(t, err)
		assert.ErrorIs(t, b.SetUpperBound(2), ErrInvalidBound)
	})

	t.Run("beyond capacity", func(t *testing.T) {
		b := New[uint8](0)
		assert.ErrorIs(t, b.SetLowerBound(9), ErrInvalidBound)
		assert.ErrorIs(t, b.SetUpperBound(9), ErrInvalidBound)
	})

	t.Run("bound update keeps word", func(t *testing.T) {
		b := New[uint8](0xA5)
		require.NoError(t, b.SetLowerBound(4))
		assert.Equal(t, uint8(0xA5), b.Word())
	})
}

func TestWidth(t *testing.T) {
	assert.Equal(t, uint32(8), Width[uint8]())
	assert.Equal(t, uint32(16), Width[uint16]())
	assert.Equal(t, uint32(32), Width[uint32]())
	assert.Equal(t, uint32(64), Width[uint64]())
}
