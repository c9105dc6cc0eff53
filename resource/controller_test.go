package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilControllerIsUnlimited(t *testing.T) {
	var c *Controller
	ctx := context.Background()

	require.NoError(t, c.AcquireWorker(ctx))
	c.ReleaseWorker()
	assert.NoError(t, c.WaitIO(ctx, 1<<30))
}

func TestWorkerLimit(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 1})
	ctx := context.Background()

	require.NoError(t, c.AcquireWorker(ctx))

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireWorker(blocked), context.DeadlineExceeded)

	c.ReleaseWorker()
	assert.NoError(t, c.AcquireWorker(ctx))
	c.ReleaseWorker()
}

func TestWaitIOHonorsCancellation(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1024})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, c.WaitIO(ctx, 10*1024))
}

func TestWaitIOAdmitsLargeTransfers(t *testing.T) {
	// A transfer larger than one second of budget must still be admitted
	// (in installments) rather than rejected outright.
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, c.WaitIO(ctx, 1<<21))
}
