// Package resource implements the Controller that governs accelerator resources.
//
// The Controller provides centralized management of three resource types:
//
//   - Memory: Track and limit device memory reserved by transfer buffers (non-blocking, fail-fast)
//   - Kernels: Limit the number of kernels executing concurrently on the device
//   - Transfer: Rate-limit host<->device copies to emulate interconnect bandwidth
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Device Memory  │  Kernel Slots   │  Transfer Rate Limiter  │
//	│  (fail-fast)    │  (sem)          │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireKernel  │  AcquireTransfer        │
//	│  (non-blocking) │  TryAcquire-    │                         │
//	│  ReleaseMemory  │  Kernel         │                         │
//	│  MemoryUsage    │  ReleaseKernel  │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage tracking. AcquireMemory is non-blocking and returns immediately
// with ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB of device memory
//	})
//
//	if err := rc.AcquireMemory(4 << 20); err != nil {
//	    // ErrMemoryLimitExceeded - the buffer cannot be allocated
//	}
//	defer rc.ReleaseMemory(4 << 20)
//
// # Transfer Rate Limiting
//
// Transfers larger than the limiter burst are charged in burst-sized pieces,
// so arbitrarily large buffers can be moved without tripping the limiter:
//
//	rc := resource.NewController(resource.Config{
//	    TransferBytesPerSec: 12 << 30, // ~PCIe 3.0 x16
//	})
//
//	if err := rc.AcquireTransfer(ctx, len(payload)); err != nil {
//	    return err
//	}
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
