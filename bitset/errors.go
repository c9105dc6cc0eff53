package bitset

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned by Get, Set and Toggle when the requested
	// index lies outside the active window.
	ErrOutOfRange = errors.New("bit index outside active window")

	// ErrInvalidBound is returned by SetLowerBound and SetUpperBound when
	// the new bound would cross the opposite bound or exceed the capacity.
	ErrInvalidBound = errors.New("invalid window bound")

	// ErrIndexTooLarge is returned by FromTrueIndices when an index does
	// not fit the capacity of the target type.
	ErrIndexTooLarge = errors.New("bit index exceeds capacity")
)

// IndexError reports an indexed access outside the active window.
//
// It satisfies errors.Is(err, ErrOutOfRange).
type IndexError struct {
	Index uint32
	Lower uint32
	Upper uint32
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("bit index %d outside active window [%d, %d)", e.Index, e.Lower, e.Upper)
}

func (e *IndexError) Unwrap() error { return ErrOutOfRange }

// BoundError reports a window bound update that would violate the
// lower <= upper <= capacity ordering.
//
// It satisfies errors.Is(err, ErrInvalidBound).
type BoundError struct {
	Bound uint32
	// Limit is the value Bound conflicted with: the opposite bound or the
	// bit capacity of the storage type.
	Limit  uint32
	Reason string
}

func (e *BoundError) Error() string {
	return fmt.Sprintf("bound %d %s %d", e.Bound, e.Reason, e.Limit)
}

func (e *BoundError) Unwrap() error { return ErrInvalidBound }

// ConvertError reports a true-index that does not fit the target type
// during FromTrueIndices.
//
// It satisfies errors.Is(err, ErrIndexTooLarge).
type ConvertError struct {
	Index    uint32
	Capacity uint32
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("true index %d exceeds capacity %d", e.Index, e.Capacity)
}

func (e *ConvertError) Unwrap() error { return ErrIndexTooLarge }
