// Package bitset implements fixed-capacity bit sets with a restricted
// active window and a packed 128-bit persistence representation.
//
// A BitSet wraps a single unsigned machine word of up to 64 bits. On top of
// the raw storage it maintains a half-open window [lower, upper) of bit
// indices that are logically active: indexed operations reject indices
// outside the window, and bulk operations (Count, Clear, SetAll, ...) never
// inspect or mutate bits outside it. Bits outside the window keep whatever
// value they had.
//
// For persistence a BitSet packs losslessly into one Word128 with a fixed
// layout (storage word in bits [0,64), lower bound in [64,96), upper bound
// in [96,128)). The layout is part of the on-disk format and must not
// change; see pack.go.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. BitSet has
// plain value semantics: copy it freely, mutate through a single owner.
// Durable storage of packed words lives in the flagvault root package.
package bitset
