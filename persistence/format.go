package persistence

import "errors"

const (
	// MagicNumber identifies flagvault snapshot files (ASCII "FLG0").
	MagicNumber = 0x464C4730
	// Version is the current snapshot format version.
	Version = 0x00010000

	// headerSize is the fixed encoded size of FileHeader.
	headerSize = 40
	// recordSize is the encoded size of one slot record:
	// slot ID (8 bytes) plus packed word (16 bytes).
	recordSize = 24
)

var (
	ErrInvalidMagic     = errors.New("invalid snapshot magic number")
	ErrInvalidVersion   = errors.New("unsupported snapshot version")
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	ErrTruncated        = errors.New("snapshot truncated")
)

// FileHeader is the fixed header at the start of every snapshot file.
// Encoded little-endian via encoding/binary; field order and padding are
// part of the on-disk format.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	Compression uint8
	Padding     [3]byte
	SlotCount   uint64
	BodySize    uint64 // stored body length in bytes (after compression)
	Checksum    uint32 // CRC32-IEEE of the stored body
	Reserved    [8]byte
}
