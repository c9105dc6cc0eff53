package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/hupe1980/flagvault/bitset"
	"github.com/hupe1980/flagvault/internal/conv"
	"github.com/hupe1980/flagvault/internal/mmap"
)

// WriteSnapshot encodes the full slot table to w.
func WriteSnapshot(w io.Writer, slots map[uint64]bitset.Word128, c Compression) error {
	if !c.valid() {
		return fmt.Errorf("unknown compression type %d", c)
	}

	// Records are sorted by slot ID so snapshots of identical state are
	// byte-identical regardless of map iteration order.
	ids := make([]uint64, 0, len(slots))
	for id := range slots {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	body := make([]byte, 0, len(ids)*recordSize)
	for _, id := range ids {
		body = binary.LittleEndian.AppendUint64(body, id)
		body = slots[id].AppendBinary(body)
	}

	stored, err := compressBody(body, c)
	if err != nil {
		return err
	}

	header := FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		Compression: uint8(c),
		SlotCount:   uint64(len(ids)),
		BodySize:    uint64(len(stored)),
		Checksum:    crc32.ChecksumIEEE(stored),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if _, err := w.Write(stored); err != nil {
		return fmt.Errorf("write snapshot body: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a slot table from r.
func ReadSnapshot(r io.Reader) (map[uint64]bitset.Word128, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	stored := make([]byte, header.BodySize)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return decodeSnapshot(&header, stored)
}

func decodeSnapshot(header *FileHeader, stored []byte) (map[uint64]bitset.Word128, error) {
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}
	if got := crc32.ChecksumIEEE(stored); got != header.Checksum {
		return nil, fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrChecksumMismatch, got, header.Checksum)
	}

	body, err := decompressBody(stored, Compression(header.Compression))
	if err != nil {
		return nil, err
	}

	count, err := conv.Uint64ToInt(header.SlotCount)
	if err != nil {
		return nil, fmt.Errorf("invalid slot count: %w", err)
	}
	if len(body) != count*recordSize {
		return nil, fmt.Errorf("%w: body is %d bytes, want %d", ErrTruncated, len(body), count*recordSize)
	}

	slots := make(map[uint64]bitset.Word128, count)
	for i := 0; i < count; i++ {
		rec := body[i*recordSize:]
		id := binary.LittleEndian.Uint64(rec[:8])
		slots[id] = bitset.Word128FromBytes(rec[8:recordSize])
	}
	return slots, nil
}

// SaveSnapshot atomically writes the slot table to path: the snapshot is
// written to a temp file in the same directory, synced, and renamed over
// the target.
func SaveSnapshot(path string, slots map[uint64]bitset.Word128, c Compression) error {
	return SaveToFile(path, func(w io.Writer) error {
		return WriteSnapshot(w, slots, c)
	})
}

// LoadSnapshot reads the slot table from path.
func LoadSnapshot(path string) (map[uint64]bitset.Word128, error) {
	var slots map[uint64]bitset.Word128
	err := LoadFromFile(path, func(r io.Reader) error {
		var err error
		slots, err = ReadSnapshot(r)
		return err
	})
	return slots, err
}

// LoadSnapshotMmap reads the slot table from path through a read-only
// memory mapping, avoiding a copy of the stored body.
func LoadSnapshotMmap(path string) (map[uint64]bitset.Word128, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	data := m.Bytes()
	if len(data) < headerSize {
		return nil, ErrTruncated
	}
	var header FileHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if uint64(len(data)-headerSize) < header.BodySize {
		return nil, ErrTruncated
	}
	return decodeSnapshot(&header, data[headerSize:headerSize+int(header.BodySize)])
}

// SaveToFile writes a file atomically: temp file in the target directory,
// flush, fsync, rename, then a best-effort directory fsync.
func SaveToFile(path string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 64*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// LoadFromFile opens path and hands a buffered reader to readFunc.
func LoadFromFile(path string, readFunc func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return readFunc(bufio.NewReaderSize(f, 64*1024))
}
