package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flagvault/bitset"
)

func openTestJournal(t *testing.T, optFns ...func(*Options)) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flags.journal")
	j, err := Open(path, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func collect(t *testing.T, j *Journal) []Entry {
	t.Helper()
	var entries []Entry
	require.NoError(t, j.Replay(func(e Entry) error {
		entries = append(entries, e)
		return nil
	}))
	return entries
}

func TestAppendReplay(t *testing.T) {
	j, _ := openTestJournal(t)

	word := bitset.Pack(bitset.New[uint8](0b110))
	require.NoError(t, j.Append(Entry{Op: OpPut, Slot: 7, Word: word}))
	require.NoError(t, j.Append(Entry{Op: OpDelete, Slot: 7}))
	require.NoError(t, j.Append(Entry{Op: OpPut, Slot: 9, Word: word}))

	entries := collect(t, j)
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Op: OpPut, Slot: 7, Word: word}, entries[0])
	assert.Equal(t, Entry{Op: OpDelete, Slot: 7}, entries[1])
	assert.Equal(t, uint64(9), entries[2].Slot)
}

func TestAppendRejectsUnknownOp(t *testing.T) {
	j, _ := openTestJournal(t)
	assert.Error(t, j.Append(Entry{Op: 0, Slot: 1}))
	assert.Error(t, j.Append(Entry{Op: 99, Slot: 1}))
}

func TestReopenKeepsRecords(t *testing.T) {
	j, path := openTestJournal(t)
	require.NoError(t, j.Append(Entry{Op: OpPut, Slot: 1, Word: bitset.Word128{Lo: 5}}))
	require.NoError(t, j.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	entries := collect(t, j2)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(1), entries[0].Slot)

	// Appending after reopen extends the log.
	require.NoError(t, j2.Append(Entry{Op: OpPut, Slot: 2, Word: bitset.Word128{Lo: 6}}))
	assert.Len(t, collect(t, j2), 2)
}

func TestTornTailDiscarded(t *testing.T) {
	j, path := openTestJournal(t)
	require.NoError(t, j.Append(Entry{Op: OpPut, Slot: 1, Word: bitset.Word128{Lo: 1}}))
	require.NoError(t, j.Append(Entry{Op: OpPut, Slot: 2, Word: bitset.Word128{Lo: 2}}))
	require.NoError(t, j.Close())

	// Simulate a crash mid-append: chop the last record in half.
	st, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, st.Size()-recordSize/2))

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	entries := collect(t, j2)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(1), entries[0].Slot)
}

func TestCorruptRecordStopsReplayAtTail(t *testing.T) {
	j, path := openTestJournal(t)
	require.NoError(t, j.Append(Entry{Op: OpPut, Slot: 1, Word: bitset.Word128{Lo: 1}}))
	require.NoError(t, j.Append(Entry{Op: OpPut, Slot: 2, Word: bitset.Word128{Lo: 2}}))
	require.NoError(t, j.Close())

	// Flip a byte in the last record's body.
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	require.NoError(t, err)
	st, err := f.Stat()
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0xFF}, st.Size()-recordSize+3)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	assert.Len(t, collect(t, j2), 1)
}

func TestTruncate(t *testing.T) {
	j, _ := openTestJournal(t)
	require.NoError(t, j.Append(Entry{Op: OpPut, Slot: 1, Word: bitset.Word128{Lo: 1}}))
	require.NoError(t, j.Truncate())

	assert.Empty(t, collect(t, j))
	assert.Equal(t, int64(headerSize), j.Size())

	// The journal accepts new records after truncation.
	require.NoError(t, j.Append(Entry{Op: OpPut, Slot: 3, Word: bitset.Word128{Lo: 3}}))
	assert.Len(t, collect(t, j), 1)
}

func TestSyncOnAppend(t *testing.T) {
	j, path := openTestJournal(t, WithSyncOnAppend(true))
	require.NoError(t, j.Append(Entry{Op: OpPut, Slot: 1, Word: bitset.Word128{Lo: 1}}))

	// Durable without an explicit Sync: a fresh handle sees the record.
	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()
	assert.Len(t, collect(t, j2), 1)
}

func TestClosedJournal(t *testing.T) {
	j, _ := openTestJournal(t)
	require.NoError(t, j.Close())

	assert.ErrorIs(t, j.Append(Entry{Op: OpPut, Slot: 1}), ErrClosed)
	assert.ErrorIs(t, j.Sync(), ErrClosed)
	assert.ErrorIs(t, j.Truncate(), ErrClosed)
	assert.ErrorIs(t, j.Replay(func(Entry) error { return nil }), ErrClosed)
	assert.NoError(t, j.Close())
}

func TestRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-journal")
	require.NoError(t, os.WriteFile(path, []byte("something else entirely"), 0o600))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}
