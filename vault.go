package flagvault

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/flagvault/bitset"
	"github.com/hupe1980/flagvault/blobstore"
	"github.com/hupe1980/flagvault/journal"
	"github.com/hupe1980/flagvault/persistence"
	"github.com/hupe1980/flagvault/resource"
)

const snapshotBlobPrefix = "snapshots/"

// Vault is a durable table of packed flag words, one bitset.Word128 per
// slot ID. Mutations are journaled before they are applied; checkpoints
// write an atomic snapshot and truncate the journal. Safe for concurrent
// use.
type Vault struct {
	mu    sync.RWMutex
	slots map[uint64]bitset.Word128
	dirty *roaring64.Bitmap

	jrnl    *journal.Journal
	manager *persistence.Manager

	blob          blobstore.BlobStore
	blobPrefix    string
	keepSnapshots int

	ctrl    *resource.Controller
	logger  *Logger
	metrics MetricsCollector

	closed bool
}

// Open creates or recovers a vault. With a journal and/or snapshot path
// configured, previously acknowledged state is rebuilt before Open
// returns.
func Open(ctx context.Context, optFns ...Option) (*Vault, error) {
	o := options{
		logger:  NewLogger(nil),
		metrics: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(&o)
	}

	var jrnl *journal.Journal
	if o.journalPath != "" {
		var err error
		jrnl, err = journal.Open(o.journalPath, o.journalOptions...)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	manager := persistence.NewManager(jrnl, persistence.ManagerOptions{
		SnapshotPath: o.snapshotPath,
		Compression:  o.compression,
		UseMmap:      o.useMmap,
	})

	slots, err := manager.Recover(ctx)
	if err != nil {
		if jrnl != nil {
			_ = jrnl.Close()
		}
		return nil, fmt.Errorf("recover vault: %w", err)
	}

	v := &Vault{
		slots:         slots,
		dirty:         roaring64.New(),
		jrnl:          jrnl,
		manager:       manager,
		blob:          o.blobStore,
		blobPrefix:    o.blobPrefix,
		keepSnapshots: o.keepSnapshots,
		ctrl:          o.controller,
		logger:        o.logger,
		metrics:       o.metrics,
	}
	v.logger.Info("vault opened", "slots", len(slots), "journal", o.journalPath != "", "snapshot", o.snapshotPath != "")
	return v, nil
}

// Get returns the packed word stored at slot.
func (v *Vault) Get(slot uint64) (bitset.Word128, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	word, ok := v.slots[slot]
	return word, ok
}

// Put stores a packed word at slot. The mutation is journaled before it
// becomes visible.
func (v *Vault) Put(ctx context.Context, slot uint64, word bitset.Word128) error {
	start := time.Now()
	err := v.put(ctx, slot, word)
	v.metrics.RecordPut(time.Since(start), err)
	return err
}

func (v *Vault) put(ctx context.Context, slot uint64, word bitset.Word128) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}

	if v.jrnl != nil {
		if err := v.jrnl.Append(journal.Entry{Op: journal.OpPut, Slot: slot, Word: word}); err != nil {
			return fmt.Errorf("journal put: %w", err)
		}
	}
	v.slots[slot] = word
	v.dirty.Add(slot)
	return nil
}

// Delete removes the slot. Deleting a missing slot is a no-op but is
// still journaled so replay converges to the same state.
func (v *Vault) Delete(ctx context.Context, slot uint64) error {
	start := time.Now()
	err := v.delete(ctx, slot)
	v.metrics.RecordDelete(time.Since(start), err)
	return err
}

func (v *Vault) delete(ctx context.Context, slot uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}

	if v.jrnl != nil {
		if err := v.jrnl.Append(journal.Entry{Op: journal.OpDelete, Slot: slot}); err != nil {
			return fmt.Errorf("journal delete: %w", err)
		}
	}
	delete(v.slots, slot)
	v.dirty.Add(slot)
	return nil
}

// Len returns the number of stored slots.
func (v *Vault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.slots)
}

// Slots returns all slot IDs in ascending order.
func (v *Vault) Slots() []uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]uint64, 0, len(v.slots))
	for id := range v.slots {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// DirtySlots returns the IDs mutated since the last checkpoint, ascending.
func (v *Vault) DirtySlots() []uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dirty.ToArray()
}

// Sync makes all journaled mutations durable.
func (v *Vault) Sync() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return ErrClosed
	}
	if v.jrnl == nil {
		return nil
	}
	return v.jrnl.Sync()
}

// snapshotLocked copies the slot table for writing outside the lock.
func (v *Vault) snapshotLocked() map[uint64]bitset.Word128 {
	copied := make(map[uint64]bitset.Word128, len(v.slots))
	for id, word := range v.slots {
		copied[id] = word
	}
	return copied
}

// Checkpoint writes a snapshot of the current state and truncates the
// journal. A no-op when nothing changed since the last checkpoint.
func (v *Vault) Checkpoint(ctx context.Context) error {
	start := time.Now()
	n, err := v.checkpoint(ctx)
	v.metrics.RecordCheckpoint(n, time.Since(start), err)
	return err
}

func (v *Vault) checkpoint(ctx context.Context) (int, error) {
	if err := v.ctrl.AcquireWorker(ctx); err != nil {
		return 0, err
	}
	defer v.ctrl.ReleaseWorker()

	// Writers block for the duration: the journal must not accept records
	// between the snapshot copy and the truncate, or a crash would lose
	// them.
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0, ErrClosed
	}
	if v.dirty.IsEmpty() {
		return 0, nil
	}

	if err := v.manager.Checkpoint(ctx, v.slots); err != nil {
		return len(v.slots), err
	}
	v.dirty.Clear()

	v.logger.Info("checkpoint complete", "slots", len(v.slots))
	return len(v.slots), nil
}

// SyncToBlob uploads a snapshot of the current state to the configured
// blob store and prunes old uploads beyond the retention limit. It
// returns the uploaded blob name.
func (v *Vault) SyncToBlob(ctx context.Context) (string, error) {
	start := time.Now()
	name, bytesUp, err := v.syncToBlob(ctx)
	v.metrics.RecordBlobSync(bytesUp, time.Since(start), err)
	return name, err
}

func (v *Vault) syncToBlob(ctx context.Context) (string, int64, error) {
	if v.blob == nil {
		return "", 0, ErrNoBlobStore
	}
	if err := v.ctrl.AcquireWorker(ctx); err != nil {
		return "", 0, err
	}
	defer v.ctrl.ReleaseWorker()

	v.mu.RLock()
	if v.closed {
		v.mu.RUnlock()
		return "", 0, ErrClosed
	}
	state := v.snapshotLocked()
	v.mu.RUnlock()

	var buf bytes.Buffer
	if err := persistence.WriteSnapshot(&buf, state, persistence.CompressionZSTD); err != nil {
		return "", 0, fmt.Errorf("encode snapshot: %w", err)
	}
	size := int64(buf.Len())

	if err := v.ctrl.WaitIO(ctx, size); err != nil {
		return "", 0, err
	}

	name := fmt.Sprintf("%s%s%020d", v.blobPrefix, snapshotBlobPrefix, time.Now().UnixNano())
	if err := v.blob.Put(ctx, name, &buf, size); err != nil {
		return "", 0, fmt.Errorf("upload snapshot: %w", err)
	}
	v.logger.Info("snapshot uploaded", "blob", name, "bytes", size)

	if err := v.pruneBlobs(ctx); err != nil {
		// The upload itself succeeded; retention failures are logged,
		// not fatal.
		v.logger.Warn("snapshot retention failed", "error", err)
	}
	return name, size, nil
}

// pruneBlobs deletes uploaded snapshots beyond the retention limit.
func (v *Vault) pruneBlobs(ctx context.Context) error {
	if v.keepSnapshots <= 0 {
		return nil
	}
	names, err := v.blob.List(ctx, v.blobPrefix+snapshotBlobPrefix)
	if err != nil {
		return err
	}
	if len(names) <= v.keepSnapshots {
		return nil
	}

	// Names embed a nanosecond timestamp, so lexical order is age order.
	stale := names[:len(names)-v.keepSnapshots]
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, name := range stale {
		g.Go(func() error {
			return v.blob.Delete(gctx, name)
		})
	}
	return g.Wait()
}

// RestoreFromBlob replaces the vault state with an uploaded snapshot.
// An empty name restores the newest upload. The restored state is
// re-journaled locally so it survives a crash before the next checkpoint.
func (v *Vault) RestoreFromBlob(ctx context.Context, name string) error {
	if v.blob == nil {
		return ErrNoBlobStore
	}

	if name == "" {
		names, err := v.blob.List(ctx, v.blobPrefix+snapshotBlobPrefix)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return blobstore.ErrNotFound
		}
		name = names[len(names)-1]
	}

	r, _, err := v.blob.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("open snapshot blob: %w", err)
	}
	defer r.Close()

	state, err := persistence.ReadSnapshot(r)
	if err != nil {
		return fmt.Errorf("decode snapshot blob: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}

	if v.jrnl != nil {
		if err := v.jrnl.Truncate(); err != nil {
			return fmt.Errorf("reset journal: %w", err)
		}
		for id, word := range state {
			if err := v.jrnl.Append(journal.Entry{Op: journal.OpPut, Slot: id, Word: word}); err != nil {
				return fmt.Errorf("journal restored slot: %w", err)
			}
		}
		if err := v.jrnl.Sync(); err != nil {
			return err
		}
	}

	v.slots = state
	v.dirty = roaring64.New()
	for id := range state {
		v.dirty.Add(id)
	}
	v.logger.Info("state restored from blob", "blob", name, "slots", len(state))
	return nil
}

// Close syncs the journal and releases resources. The vault is unusable
// afterwards; Close is idempotent.
func (v *Vault) Close(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true

	if v.jrnl != nil {
		if err := v.jrnl.Close(); err != nil {
			return fmt.Errorf("close journal: %w", err)
		}
	}
	v.logger.Info("vault closed")
	return nil
}

// Load unpacks the bit set stored at slot. The second result is false
// when the slot does not exist.
func Load[T bitset.Uint](v *Vault, slot uint64) (bitset.BitSet[T], bool) {
	word, ok := v.Get(slot)
	if !ok {
		return bitset.BitSet[T]{}, false
	}
	return bitset.Unpack[T](word), true
}

// Store packs a bit set and writes it at slot.
func Store[T bitset.Uint](ctx context.Context, v *Vault, slot uint64, bs bitset.BitSet[T]) error {
	return v.Put(ctx, slot, bitset.Pack(bs))
}

// Update applies fn to the bit set at slot and stores the result. A
// missing slot starts as a zeroed set with the full capacity active. If
// fn returns an error nothing is stored.
func Update[T bitset.Uint](ctx context.Context, v *Vault, slot uint64, fn func(*bitset.BitSet[T]) error) error {
	bs, ok := Load[T](v, slot)
	if !ok {
		bs = bitset.New[T](0)
	}
	if err := fn(&bs); err != nil {
		return err
	}
	return Store(ctx, v, slot, bs)
}
