// Package resource throttles background work: checkpoint writes and blob
// uploads share a bounded worker pool and an optional IO byte budget.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxBackgroundWorkers bounds concurrent background jobs.
	// Zero defaults to 1.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec caps background IO throughput.
	// Zero means unlimited.
	IOLimitBytesPerSec int64
}

// Controller enforces the configured limits. A nil *Controller applies no
// limits, so callers never need to nil-check.
type Controller struct {
	workers   *semaphore.Weighted
	ioLimiter *rate.Limiter
}

// NewController creates a controller for the given limits.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}
	c := &Controller{
		workers: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireWorker blocks until a background worker slot is free or ctx is
// canceled.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.workers.Acquire(ctx, 1)
}

// ReleaseWorker returns a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// WaitIO blocks until the IO budget admits bytes more bytes of transfer.
func (c *Controller) WaitIO(ctx context.Context, bytes int64) error {
	if c == nil || c.ioLimiter == nil || bytes <= 0 {
		return ctx.Err()
	}
	// The limiter burst equals one second of budget; larger transfers
	// are admitted in burst-sized installments.
	burst := int64(c.ioLimiter.Burst())
	for bytes > 0 {
		chunk := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, int(chunk)); err != nil {
			return err
		}
		bytes -= chunk
	}
	return nil
}
