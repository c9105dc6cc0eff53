package bitset

// FromTrueIndices folds a list of set-bit indices into a BitSet with the
// full capacity as its active window. The first index at or above the
// capacity of T fails the whole conversion; no partial result is returned.
// Duplicate indices are harmless and the input order is irrelevant.
func FromTrueIndices[T Uint](indices []uint32) (BitSet[T], error) {
	capacity := Width[T]()
	var acc T
	for _, index := range indices {
		if index >= capacity {
			return BitSet[T]{}, &ConvertError{Index: index, Capacity: capacity}
		}
		acc |= T(1) << index
	}
	return New(acc), nil
}
