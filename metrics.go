package flagvault

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational metrics. Implement it to feed a
// monitoring system; the vault calls it synchronously, so implementations
// should be cheap.
type MetricsCollector interface {
	// RecordPut is called after each slot write.
	RecordPut(duration time.Duration, err error)

	// RecordDelete is called after each slot removal.
	RecordDelete(duration time.Duration, err error)

	// RecordCheckpoint is called after each checkpoint attempt. slots is
	// the number of slots written to the snapshot.
	RecordCheckpoint(slots int, duration time.Duration, err error)

	// RecordBlobSync is called after each snapshot upload attempt.
	RecordBlobSync(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPut(time.Duration, error)              {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)           {}
func (NoopMetricsCollector) RecordCheckpoint(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordBlobSync(int64, time.Duration, error)  {}

// BasicMetricsCollector counts operations in memory. Useful for tests and
// debugging without an external monitoring stack.
type BasicMetricsCollector struct {
	PutCount         atomic.Int64
	PutErrors        atomic.Int64
	PutTotalNanos    atomic.Int64
	DeleteCount      atomic.Int64
	DeleteErrors     atomic.Int64
	CheckpointCount  atomic.Int64
	CheckpointErrors atomic.Int64
	CheckpointSlots  atomic.Int64
	BlobSyncCount    atomic.Int64
	BlobSyncErrors   atomic.Int64
	BlobSyncBytes    atomic.Int64
}

// RecordPut implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPut(duration time.Duration, err error) {
	b.PutCount.Add(1)
	b.PutTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PutErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordCheckpoint implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheckpoint(slots int, duration time.Duration, err error) {
	b.CheckpointCount.Add(1)
	b.CheckpointSlots.Add(int64(slots))
	if err != nil {
		b.CheckpointErrors.Add(1)
	}
}

// RecordBlobSync implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBlobSync(bytes int64, duration time.Duration, err error) {
	b.BlobSyncCount.Add(1)
	b.BlobSyncBytes.Add(bytes)
	if err != nil {
		b.BlobSyncErrors.Add(1)
	}
}
