// Package persistence implements the durable snapshot format for packed
// flag words and coordinates snapshot/journal recovery.
//
// A snapshot is a single file holding the full slot table at one point in
// time: a fixed little-endian header (magic, version, compression, slot
// count, body size, CRC32), followed by the body — one 24-byte record per
// slot, sorted by slot ID, optionally compressed as a whole with LZ4 or
// zstd. Writes are atomic (temp file, fsync, rename, directory fsync), so
// a crash never leaves a partially written snapshot in place.
//
// The Manager ties snapshots to the mutation journal: recovery loads the
// newest snapshot and replays the journal tail on top of it; a checkpoint
// writes a fresh snapshot and truncates the journal.
package persistence
