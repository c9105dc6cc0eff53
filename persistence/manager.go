package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hupe1980/flagvault/bitset"
	"github.com/hupe1980/flagvault/journal"
)

var (
	// ErrNoSnapshotPath is returned when a checkpoint is requested but no
	// snapshot path is configured.
	ErrNoSnapshotPath = errors.New("snapshot path not configured")
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// SnapshotPath is the snapshot file location. Optional; without it
	// recovery relies on the journal alone and checkpoints fail.
	SnapshotPath string

	// Compression is applied to snapshot bodies.
	Compression Compression

	// UseMmap loads snapshots through a read-only memory mapping.
	UseMmap bool
}

// Manager coordinates snapshot and journal recovery for a slot table.
// The journal may be nil, in which case only snapshots are used.
type Manager struct {
	opts ManagerOptions
	jrnl *journal.Journal
}

// NewManager creates a Manager over an optional journal.
func NewManager(jrnl *journal.Journal, opts ManagerOptions) *Manager {
	return &Manager{opts: opts, jrnl: jrnl}
}

// Recover rebuilds the slot table: newest snapshot first, then the
// journal tail replayed on top. A missing snapshot file is not an error;
// recovery starts from an empty table.
func (m *Manager) Recover(ctx context.Context) (map[uint64]bitset.Word128, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slots := make(map[uint64]bitset.Word128)
	if m.opts.SnapshotPath != "" {
		var (
			loaded map[uint64]bitset.Word128
			err    error
		)
		if m.opts.UseMmap {
			loaded, err = LoadSnapshotMmap(m.opts.SnapshotPath)
		} else {
			loaded, err = LoadSnapshot(m.opts.SnapshotPath)
		}
		switch {
		case err == nil:
			slots = loaded
		case errors.Is(err, os.ErrNotExist):
			// First start, nothing to load.
		default:
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
	}

	if m.jrnl != nil {
		err := m.jrnl.Replay(func(e journal.Entry) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch e.Op {
			case journal.OpPut:
				slots[e.Slot] = e.Word
			case journal.OpDelete:
				delete(slots, e.Slot)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("replay journal: %w", err)
		}
	}

	return slots, nil
}

// Checkpoint makes the given slot table durable as a snapshot, then
// truncates the journal. If the snapshot write fails the journal is left
// intact, so no acknowledged mutation is lost.
func (m *Manager) Checkpoint(ctx context.Context, slots map[uint64]bitset.Word128) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.opts.SnapshotPath == "" {
		return ErrNoSnapshotPath
	}

	if err := SaveSnapshot(m.opts.SnapshotPath, slots, m.opts.Compression); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if m.jrnl != nil {
		if err := m.jrnl.Truncate(); err != nil {
			return fmt.Errorf("truncate journal after snapshot: %w", err)
		}
	}
	return nil
}

// SnapshotPath returns the configured snapshot file location.
func (m *Manager) SnapshotPath() string {
	return m.opts.SnapshotPath
}
