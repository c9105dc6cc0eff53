// Package journal provides an append-only mutation log for crash recovery
// between snapshots.
//
// Every slot mutation is logged before it is acknowledged: a fixed-size
// little-endian record carrying the operation, the slot ID, the packed
// word and a CRC32 of the record body. On recovery the journal is replayed
// on top of the newest snapshot; a torn record at the tail (crash mid
// append) is detected by its checksum and discarded.
package journal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/hupe1980/flagvault/bitset"
)

// Op identifies the logged mutation.
type Op uint8

const (
	// OpPut records a slot write carrying the new packed word.
	OpPut Op = 1
	// OpDelete records a slot removal. The word field is zero.
	OpDelete Op = 2
)

// Entry is one logged mutation.
type Entry struct {
	Op   Op
	Slot uint64
	Word bitset.Word128
}

var (
	// ErrClosed is returned when the journal is used after Close.
	ErrClosed = errors.New("journal is closed")
	// ErrInvalidHeader is returned when the journal file header is
	// malformed or from an unsupported version.
	ErrInvalidHeader = errors.New("invalid journal header")
)

var journalMagic = [4]byte{'F', 'V', 'J', '0'}

const (
	journalVersion = uint16(1)
	headerSize     = 16 // magic + version + flags + reserved

	// Record layout: [op:1][slot:8][word:16][crc32:4], little-endian.
	recordBodySize = 25
	recordSize     = recordBodySize + 4
)

// Options configures a Journal.
type Options struct {
	// SyncOnAppend fsyncs after every append. Durable but slow; without
	// it, durability is bounded by the caller's explicit Sync calls.
	SyncOnAppend bool
}

// WithSyncOnAppend enables fsync after every append.
func WithSyncOnAppend(sync bool) func(*Options) {
	return func(o *Options) {
		o.SyncOnAppend = sync
	}
}

// Journal is an append-only log of slot mutations. Safe for concurrent use.
type Journal struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
	size   int64 // valid bytes, including header
	opts   Options
	closed bool
}

// Open opens or creates the journal at path. An existing journal is
// scanned for a torn tail, which is truncated away before new appends.
func Open(path string, optFns ...func(*Options)) (*Journal, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{
		file: file,
		path: path,
		opts: opts,
	}

	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	switch {
	case st.Size() == 0:
		if err := j.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	default:
		if err := j.readHeader(); err != nil {
			file.Close()
			return nil, err
		}
		valid := headerSize + ((st.Size() - headerSize) / recordSize * recordSize)
		valid = j.scanValid(valid)
		if valid < st.Size() {
			if err := file.Truncate(valid); err != nil {
				file.Close()
				return nil, fmt.Errorf("truncate torn journal tail: %w", err)
			}
		}
		j.size = valid
	}

	if _, err := file.Seek(j.size, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}
	j.writer = bufio.NewWriterSize(file, 64*1024)
	return j, nil
}

func (j *Journal) writeHeader() error {
	var buf [headerSize]byte
	copy(buf[0:4], journalMagic[:])
	binary.LittleEndian.PutUint16(buf[4:6], journalVersion)
	// buf[6:8] flags, buf[8:16] reserved
	if _, err := j.file.WriteAt(buf[:], 0); err != nil {
		return fmt.Errorf("write journal header: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return err
	}
	j.size = headerSize
	return nil
}

func (j *Journal) readHeader() error {
	var buf [headerSize]byte
	if _, err := j.file.ReadAt(buf[:], 0); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if [4]byte(buf[0:4]) != journalMagic {
		return fmt.Errorf("%w: bad magic", ErrInvalidHeader)
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != journalVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidHeader, v)
	}
	if flags := binary.LittleEndian.Uint16(buf[6:8]); flags != 0 {
		return fmt.Errorf("%w: unsupported flags 0x%04x", ErrInvalidHeader, flags)
	}
	return nil
}

// scanValid walks records backwards from limit until the checksums of the
// trailing records validate, returning the end of the intact prefix.
func (j *Journal) scanValid(limit int64) int64 {
	for limit >= headerSize+recordSize {
		var rec [recordSize]byte
		if _, err := j.file.ReadAt(rec[:], limit-recordSize); err != nil {
			limit -= recordSize
			continue
		}
		want := binary.LittleEndian.Uint32(rec[recordBodySize:])
		if crc32.ChecksumIEEE(rec[:recordBodySize]) == want {
			return limit
		}
		limit -= recordSize
	}
	return headerSize
}

func encodeRecord(e Entry) [recordSize]byte {
	var rec [recordSize]byte
	rec[0] = byte(e.Op)
	binary.LittleEndian.PutUint64(rec[1:9], e.Slot)
	e.Word.PutBytes(rec[9:recordBodySize])
	binary.LittleEndian.PutUint32(rec[recordBodySize:], crc32.ChecksumIEEE(rec[:recordBodySize]))
	return rec
}

// Append logs one mutation. With SyncOnAppend the record is durable when
// Append returns; otherwise it may sit in the write buffer until Sync.
func (j *Journal) Append(e Entry) error {
	if e.Op != OpPut && e.Op != OpDelete {
		return fmt.Errorf("unsupported journal op: %d", e.Op)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	rec := encodeRecord(e)
	if _, err := j.writer.Write(rec[:]); err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	j.size += recordSize

	if j.opts.SyncOnAppend {
		return j.syncLocked()
	}
	return nil
}

// Sync flushes buffered records and fsyncs the journal file.
func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	return j.syncLocked()
}

func (j *Journal) syncLocked() error {
	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Sync()
}

// Replay invokes fn for every intact record in append order. Buffered
// records are flushed first so a replay during normal operation sees
// everything appended so far.
func (j *Journal) Replay(fn func(Entry) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if err := j.writer.Flush(); err != nil {
		return err
	}

	offset := int64(headerSize)
	var rec [recordSize]byte
	for offset+recordSize <= j.size {
		if _, err := j.file.ReadAt(rec[:], offset); err != nil {
			return fmt.Errorf("read journal record: %w", err)
		}
		want := binary.LittleEndian.Uint32(rec[recordBodySize:])
		if crc32.ChecksumIEEE(rec[:recordBodySize]) != want {
			// Torn tail that appeared after Open; everything before it
			// already replayed cleanly.
			return nil
		}
		e := Entry{
			Op:   Op(rec[0]),
			Slot: binary.LittleEndian.Uint64(rec[1:9]),
			Word: bitset.Word128FromBytes(rec[9:recordBodySize]),
		}
		if err := fn(e); err != nil {
			return err
		}
		offset += recordSize
	}
	return nil
}

// Truncate discards all records, keeping the header. Called after a
// checkpoint has made the logged state durable elsewhere.
func (j *Journal) Truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if err := j.writer.Flush(); err != nil {
		return err
	}
	if err := j.file.Truncate(headerSize); err != nil {
		return fmt.Errorf("truncate journal: %w", err)
	}
	if _, err := j.file.Seek(headerSize, io.SeekStart); err != nil {
		return err
	}
	if err := j.file.Sync(); err != nil {
		return err
	}
	j.size = headerSize
	j.writer.Reset(j.file)
	return nil
}

// Size returns the journal file size in valid bytes, header included.
func (j *Journal) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Close flushes, fsyncs and closes the journal.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	flushErr := j.writer.Flush()
	syncErr := j.file.Sync()
	closeErr := j.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
