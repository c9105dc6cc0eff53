package bitset

import (
	"math/bits"
	"unsafe"
)

// Uint is the set of storage types a BitSet can wrap. The packed
// persistence format reserves 64 bits for the storage word, so wider
// types are excluded by construction.
type Uint interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Width returns the bit capacity of the storage type T.
func Width[T Uint]() uint32 {
	var zero T
	return uint32(unsafe.Sizeof(zero)) * 8
}

// BitSet is a fixed-capacity bit set over a single unsigned word with an
// active window [lower, upper) of logically visible bit indices.
//
// The zero value is an empty, uninitialized set (window [0, 0)). Use New
// or FromTrueIndices to obtain a set with the full capacity active.
type BitSet[T Uint] struct {
	word  T
	lower uint32
	upper uint32
}

// New wraps a raw value with the full capacity as its active window.
func New[T Uint](v T) BitSet[T] {
	return BitSet[T]{word: v, lower: 0, upper: Width[T]()}
}

// NewWithWindow wraps a raw value with an explicit active window.
func NewWithWindow[T Uint](v T, lower, upper uint32) (BitSet[T], error) {
	capacity := Width[T]()
	if upper > capacity {
		return BitSet[T]{}, &BoundError{Bound: upper, Limit: capacity, Reason: "exceeds capacity"}
	}
	if lower > upper {
		return BitSet[T]{}, &BoundError{Bound: lower, Limit: upper, Reason: "above upper bound"}
	}
	return BitSet[T]{word: v, lower: lower, upper: upper}, nil
}

// windowMask returns a uint64 with ones at exactly the window positions.
func (b *BitSet[T]) windowMask() uint64 {
	span := b.upper - b.lower
	if span == 0 {
		return 0
	}
	if span == 64 {
		return ^uint64(0)
	}
	return (uint64(1)<<span - 1) << b.lower
}

func (b *BitSet[T]) checkIndex(index uint32) error {
	if index < b.lower || index >= b.upper {
		return &IndexError{Index: index, Lower: b.lower, Upper: b.upper}
	}
	return nil
}

// Get reports whether the bit at index is set. The index must lie inside
// the active window.
func (b *BitSet[T]) Get(index uint32) (bool, error) {
	if err := b.checkIndex(index); err != nil {
		return false, err
	}
	return b.word&(T(1)<<index) != 0, nil
}

// Set sets the bit at index to value. The index must lie inside the
// active window.
func (b *BitSet[T]) Set(index uint32, value bool) error {
	if err := b.checkIndex(index); err != nil {
		return err
	}
	if value {
		b.word |= T(1) << index
	} else {
		b.word &^= T(1) << index
	}
	return nil
}

// Toggle flips the bit at index. The index must lie inside the active
// window.
func (b *BitSet[T]) Toggle(index uint32) error {
	if err := b.checkIndex(index); err != nil {
		return err
	}
	b.word ^= T(1) << index
	return nil
}

// Count returns the number of set bits inside the active window.
func (b *BitSet[T]) Count() int {
	return bits.OnesCount64(uint64(b.word) & b.windowMask())
}

// Clear sets every bit inside the active window to false. Bits outside
// the window are untouched.
func (b *BitSet[T]) Clear() {
	b.word &= T(^b.windowMask())
}

// SetAll sets every bit inside the active window to true. Bits outside
// the window are untouched.
func (b *BitSet[T]) SetAll() {
	b.word |= T(b.windowMask())
}

// All reports whether every bit inside the active window is set. An empty
// window is vacuously all-set.
func (b *BitSet[T]) All() bool {
	mask := b.windowMask()
	return uint64(b.word)&mask == mask
}

// Any reports whether at least one bit inside the active window is set.
func (b *BitSet[T]) Any() bool {
	return uint64(b.word)&b.windowMask() != 0
}

// None reports whether no bit inside the active window is set.
func (b *BitSet[T]) None() bool {
	return !b.Any()
}

// TrueIndices returns the ascending indices of set bits inside the active
// window. The slice is freshly computed on each call, not a live view.
func (b *BitSet[T]) TrueIndices() []uint32 {
	word := uint64(b.word) & b.windowMask()
	out := make([]uint32, 0, bits.OnesCount64(word))
	for word != 0 {
		out = append(out, uint32(bits.TrailingZeros64(word)))
		word &= word - 1
	}
	return out
}

// IsInitialized reports whether the active window is non-empty. A
// zero-valued BitSet has window [0, 0) and is not initialized.
func (b *BitSet[T]) IsInitialized() bool {
	return b.upper > b.lower
}

// Len returns the size of the active window in bits.
func (b *BitSet[T]) Len() uint32 {
	return b.upper - b.lower
}

// SetLowerBound moves the inclusive start of the active window. The new
// bound may not cross the upper bound or exceed the capacity. The storage
// word is untouched.
func (b *BitSet[T]) SetLowerBound(bound uint32) error {
	if bound > Width[T]() {
		return &BoundError{Bound: bound, Limit: Width[T](), Reason: "exceeds capacity"}
	}
	if bound > b.upper {
		return &BoundError{Bound: bound, Limit: b.upper, Reason: "above upper bound"}
	}
	b.lower = bound
	return nil
}

// SetUpperBound moves the exclusive end of the active window. The new
// bound may not cross the lower bound or exceed the capacity. The storage
// word is untouched.
func (b *BitSet[T]) SetUpperBound(bound uint32) error {
	if bound > Width[T]() {
		return &BoundError{Bound: bound, Limit: Width[T](), Reason: "exceeds capacity"}
	}
	if bound < b.lower {
		return &BoundError{Bound: bound, Limit: b.lower, Reason: "below lower bound"}
	}
	b.upper = bound
	return nil
}

// Word returns the raw storage word, including bits outside the window.
func (b *BitSet[T]) Word() T {
	return b.word
}

// LowerBound returns the inclusive start of the active window.
func (b *BitSet[T]) LowerBound() uint32 {
	return b.lower
}

// UpperBound returns the exclusive end of the active window.
func (b *BitSet[T]) UpperBound() uint32 {
	return b.upper
}
