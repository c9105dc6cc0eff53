package flagvault

import (
	"github.com/hupe1980/flagvault/blobstore"
	"github.com/hupe1980/flagvault/journal"
	"github.com/hupe1980/flagvault/persistence"
	"github.com/hupe1980/flagvault/resource"
)

type options struct {
	logger         *Logger
	metrics        MetricsCollector
	journalPath    string
	journalOptions []func(*journal.Options)
	snapshotPath   string
	compression    persistence.Compression
	useMmap        bool
	blobStore      blobstore.BlobStore
	blobPrefix     string
	keepSnapshots  int
	controller     *resource.Controller
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics sink.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithJournal enables the mutation journal at path. Without a journal,
// mutations are durable only at checkpoints.
func WithJournal(path string, optFns ...func(*journal.Options)) Option {
	return func(o *options) {
		o.journalPath = path
		o.journalOptions = optFns
	}
}

// WithSnapshotPath enables local snapshots at path; required for
// Checkpoint.
func WithSnapshotPath(path string) Option {
	return func(o *options) {
		o.snapshotPath = path
	}
}

// WithCompression selects the snapshot body compression.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMmap loads local snapshots through a read-only memory mapping.
func WithMmap(enabled bool) Option {
	return func(o *options) {
		o.useMmap = enabled
	}
}

// WithBlobStore enables snapshot shipping to an object store. prefix is
// prepended to uploaded blob names (e.g. "prod/").
func WithBlobStore(store blobstore.BlobStore, prefix string) Option {
	return func(o *options) {
		o.blobStore = store
		o.blobPrefix = prefix
	}
}

// WithKeepSnapshots bounds how many uploaded snapshots are retained in
// the blob store. Zero or negative keeps everything.
func WithKeepSnapshots(n int) Option {
	return func(o *options) {
		o.keepSnapshots = n
	}
}

// WithResourceController throttles checkpoint and blob-sync work.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}
