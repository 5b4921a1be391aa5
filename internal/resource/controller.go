package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("device memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for device memory.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxKernels is the maximum number of concurrently executing kernels.
	// If 0, defaults to 1.
	MaxKernels int64

	// TransferBytesPerSec is the maximum host<->device throughput.
	// If 0, unlimited.
	TransferBytesPerSec int64
}

// Controller manages device resources (memory, kernels, transfers).
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Kernels
	kernelSem     *semaphore.Weighted
	kernelsActive atomic.Int64

	// Transfer
	xferLimiter *rate.Limiter
	xferBurst   int
	xferBytes   atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxKernels <= 0 {
		cfg.MaxKernels = 1
	}

	c := &Controller{
		cfg:       cfg,
		kernelSem: semaphore.NewWeighted(cfg.MaxKernels),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.TransferBytesPerSec > 0 {
		c.xferBurst = int(cfg.TransferBytesPerSec)
		c.xferLimiter = rate.NewLimiter(rate.Limit(cfg.TransferBytesPerSec), c.xferBurst)
	}

	return c
}

// AcquireMemory attempts to reserve device memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers control retry/backoff policy.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved device memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current device memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireKernel reserves a kernel execution slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireKernel(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.kernelSem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.kernelsActive.Add(1)
	return nil
}

// TryAcquireKernel attempts to reserve a kernel slot without blocking.
func (c *Controller) TryAcquireKernel() bool {
	if c == nil {
		return true
	}
	if !c.kernelSem.TryAcquire(1) {
		return false
	}
	c.kernelsActive.Add(1)
	return true
}

// ReleaseKernel releases a kernel execution slot.
func (c *Controller) ReleaseKernel() {
	if c == nil {
		return
	}
	c.kernelsActive.Add(-1)
	c.kernelSem.Release(1)
}

// ActiveKernels returns the number of kernels currently holding a slot.
func (c *Controller) ActiveKernels() int64 {
	if c == nil {
		return 0
	}
	return c.kernelsActive.Load()
}

// AcquireTransfer waits until the transfer limit allows the specified number of bytes.
// Transfers larger than the limiter burst are charged piecewise.
func (c *Controller) AcquireTransfer(ctx context.Context, bytes int) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	c.xferBytes.Add(int64(bytes))
	if c.xferLimiter == nil {
		return nil
	}
	for bytes > 0 {
		n := min(bytes, c.xferBurst)
		if err := c.xferLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// TryAcquireTransfer attempts to acquire transfer tokens without blocking.
// Returns true if tokens were acquired, false otherwise.
func (c *Controller) TryAcquireTransfer(bytes int) bool {
	if c == nil || c.xferLimiter == nil {
		return true
	}
	if bytes > c.xferBurst {
		return false
	}
	return c.xferLimiter.AllowN(time.Now(), bytes)
}

// TransferredBytes returns the total number of bytes charged to the transfer limiter.
func (c *Controller) TransferredBytes() int64 {
	if c == nil {
		return 0
	}
	return c.xferBytes.Load()
}
