// Package conv provides checked integer narrowing for untrusted on-disk
// values (header fields, counts, offsets). For conversions that are safe
// by construction, use a direct cast instead.
package conv

import (
	"fmt"
	"math"
)

// Uint64ToUint32 converts uint64 to uint32, rejecting values that do not fit.
func Uint64ToUint32(v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("integer overflow: %d does not fit uint32", v)
	}
	return uint32(v), nil
}

// Uint64ToInt converts uint64 to int, rejecting values that do not fit.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("integer overflow: %d does not fit int", v)
	}
	return int(v), nil
}

// IntToUint32 converts int to uint32, rejecting negatives and overflow.
func IntToUint32(v int) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("integer overflow: %d is negative", v)
	}
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("integer overflow: %d does not fit uint32", v)
	}
	return uint32(v), nil
}
