package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Acquire 20 (should fail - limit exceeded)
	err := c.AcquireMemory(20)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())
}

func TestController_Kernels(t *testing.T) {
	c := NewController(Config{MaxKernels: 2})

	require.NoError(t, c.AcquireKernel(t.Context()))
	require.NoError(t, c.AcquireKernel(t.Context()))
	assert.Equal(t, int64(2), c.ActiveKernels())

	assert.False(t, c.TryAcquireKernel())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireKernel(ctx), context.DeadlineExceeded)

	c.ReleaseKernel()
	assert.True(t, c.TryAcquireKernel())
	assert.Equal(t, int64(2), c.ActiveKernels())
}

func TestController_TransferLargerThanBurst(t *testing.T) {
	c := NewController(Config{TransferBytesPerSec: 1 << 20})

	// 1.5x the burst must not be rejected by the limiter.
	require.NoError(t, c.AcquireTransfer(t.Context(), 3<<19))
	assert.Equal(t, int64(3<<19), c.TransferredBytes())
	assert.False(t, c.TryAcquireTransfer(2<<20))
}

func TestController_TransferCancelled(t *testing.T) {
	c := NewController(Config{TransferBytesPerSec: 16})

	require.NoError(t, c.AcquireTransfer(t.Context(), 16))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.AcquireTransfer(ctx, 16))
}

func TestController_NilChecks(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.AcquireMemory(10))
	c.ReleaseMemory(10)
	assert.NoError(t, c.AcquireKernel(context.Background()))
	assert.True(t, c.TryAcquireKernel())
	c.ReleaseKernel()
	assert.NoError(t, c.AcquireTransfer(context.Background(), 10))
	assert.True(t, c.TryAcquireTransfer(10))
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.Equal(t, int64(0), c.TransferredBytes())
}
