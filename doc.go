// Package flagvault provides durable storage for windowed bit sets.
//
// The core data structure is bitset.BitSet: a fixed-capacity bit set over
// a single unsigned word with an active index window, packing losslessly
// into one 128-bit word. The Vault in this package keeps one packed word
// per slot ID and makes them durable: every mutation is journaled before
// it is applied, checkpoints write an atomic snapshot and truncate the
// journal, and snapshots can be shipped to an object store for disaster
// recovery.
//
// # Quick start
//
//	ctx := context.Background()
//	vault, _ := flagvault.Open(ctx,
//	    flagvault.WithJournal("./data/flags.journal"),
//	    flagvault.WithSnapshotPath("./data/flags.snapshot"),
//	)
//	defer vault.Close(ctx)
//
//	// Track per-epoch participation flags in an 8-bit set.
//	_ = flagvault.Update(ctx, vault, 42, func(bs *bitset.BitSet[uint8]) error {
//	    return bs.Set(3, true)
//	})
//
//	flags, ok := flagvault.Load[uint8](vault, 42)
//
// # Durability model
//
// Put and Delete are durable once the journal is synced (immediately with
// journal.WithSyncOnAppend, otherwise at the next Sync, Checkpoint or
// Close). Recovery loads the newest snapshot and replays the journal tail
// on top, discarding at most a torn final record.
package flagvault
