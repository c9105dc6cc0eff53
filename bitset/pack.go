package bitset

import (
	"encoding/binary"
	"fmt"
)

// Packed word layout, little-endian numeric order. The offsets are part of
// the persisted format and must never change: a word written by any version
// of this package must unpack bit-exactly on every other.
//
//	bits [ 0,  64)  storage word, zero-extended
//	bits [64,  96)  lower bound, uint32
//	bits [96, 128)  upper bound, uint32
const (
	wordOffset  = 0
	lowerOffset = 64
	upperOffset = 96

	lowerFieldMask uint64 = 1<<(upperOffset-lowerOffset) - 1
)

// Word128Size is the encoded size of a Word128 in bytes.
const Word128Size = 16

// Word128 is an unsigned 128-bit word, the persisted representation of a
// BitSet. Lo holds bits [0, 64), Hi holds bits [64, 128).
type Word128 struct {
	Lo uint64
	Hi uint64
}

// IsZero reports whether every bit of the word is zero.
func (w Word128) IsZero() bool {
	return w.Lo == 0 && w.Hi == 0
}

// String renders the word as 32 hex digits, most significant first.
func (w Word128) String() string {
	return fmt.Sprintf("0x%016x%016x", w.Hi, w.Lo)
}

// AppendBinary appends the 16-byte little-endian encoding of w to dst.
func (w Word128) AppendBinary(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, w.Lo)
	return binary.LittleEndian.AppendUint64(dst, w.Hi)
}

// PutBytes writes the 16-byte little-endian encoding of w into p.
// p must be at least Word128Size bytes long.
func (w Word128) PutBytes(p []byte) {
	binary.LittleEndian.PutUint64(p[0:8], w.Lo)
	binary.LittleEndian.PutUint64(p[8:16], w.Hi)
}

// Word128FromBytes decodes a 16-byte little-endian word from p.
// p must be at least Word128Size bytes long.
func Word128FromBytes(p []byte) Word128 {
	return Word128{
		Lo: binary.LittleEndian.Uint64(p[0:8]),
		Hi: binary.LittleEndian.Uint64(p[8:16]),
	}
}

// widthMask returns a uint64 with the low Width[T]() bits set.
func widthMask[T Uint]() uint64 {
	capacity := Width[T]()
	if capacity == 64 {
		return ^uint64(0)
	}
	return uint64(1)<<capacity - 1
}

// Pack encodes a BitSet into its 128-bit persisted representation.
//
// The encoding is lossless for every BitSet this package can construct:
// the Uint constraint caps the storage word at 64 bits, so the word, the
// lower bound and the upper bound each fit their reserved field exactly.
func Pack[T Uint](b BitSet[T]) Word128 {
	return Word128{
		Lo: uint64(b.word) << wordOffset,
		Hi: uint64(b.lower) | uint64(b.upper)<<(upperOffset-lowerOffset),
	}
}

// Unpack decodes a 128-bit word into a BitSet. It is total: any word
// decodes, including words never produced by Pack. Storage bits above the
// capacity of T are dropped, and the decoded bounds may violate the
// window ordering if the word is corrupt. Use UnpackValid for words read
// from an untrusted source.
func Unpack[T Uint](w Word128) BitSet[T] {
	return BitSet[T]{
		word:  T(w.Lo >> wordOffset & widthMask[T]()),
		lower: uint32(w.Hi & lowerFieldMask),
		upper: uint32(w.Hi >> (upperOffset - lowerOffset)),
	}
}

// UnpackValid decodes a 128-bit word read from an untrusted source,
// rejecting any word that Pack could not have produced for T: stray
// storage bits above the capacity, bounds beyond the capacity, or a lower
// bound above the upper bound.
func UnpackValid[T Uint](w Word128) (BitSet[T], error) {
	if stray := w.Lo &^ widthMask[T](); stray != 0 {
		return BitSet[T]{}, fmt.Errorf("%w: storage bits 0x%x above capacity %d", ErrInvalidBound, stray, Width[T]())
	}
	b := Unpack[T](w)
	if b.upper > Width[T]() {
		return BitSet[T]{}, &BoundError{Bound: b.upper, Limit: Width[T](), Reason: "exceeds capacity"}
	}
	if b.lower > b.upper {
		return BitSet[T]{}, &BoundError{Bound: b.lower, Limit: b.upper, Reason: "above upper bound"}
	}
	return b, nil
}
