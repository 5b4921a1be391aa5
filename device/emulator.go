package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/rpstage/fmindex"
	"github.com/hupe1980/rpstage/internal/resource"
	"go.uber.org/multierr"
)

// Stats is a snapshot of emulator activity.
type Stats struct {
	OpenBuffers      int
	KernelsLaunched  uint64
	KernelsSkipped   uint64
	MemoryInUse      int64
	BytesTransferred int64
}

// Emulator is a software accelerator implementing Source. It is safe for
// concurrent use by several stages on disjoint slot ranges.
type Emulator struct {
	cfg    Config
	index  *fmindex.Index
	rc     *resource.Controller
	logger *slog.Logger

	// ctx is cancelled on Close so waiting kernels give up their slots.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	claimed  *roaring.Bitmap
	open     map[int]*core
	closed   bool
	launched uint64
	skipped  uint64
}

// NewEmulator creates an emulator searching idx.
func NewEmulator(idx *fmindex.Index, cfg Config) (*Emulator, error) {
	if idx == nil {
		return nil, errors.New("device: nil index")
	}
	cfg = cfg.withDefaults()
	if cfg.Capacity.Queries <= 0 || cfg.Capacity.Bases <= 0 || cfg.Capacity.Regions <= 0 {
		return nil, fmt.Errorf("device: buffer capacity %+v is empty", cfg.Capacity)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Emulator{
		cfg:   cfg,
		index: idx,
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes:    int64(cfg.MemoryLimit.Bytes()),
			MaxKernels:          int64(cfg.MaxConcurrentKernels),
			TransferBytesPerSec: int64(cfg.TransferBandwidth.Bytes()),
		}),
		logger:  cfg.Logger.With("component", "device_emulator"),
		ctx:     ctx,
		cancel:  cancel,
		claimed: roaring.New(),
		open:    make(map[int]*core),
	}
	e.logger.Debug("emulator started",
		"buffers", cfg.NumBuffers,
		"buffer_size", cfg.BufferSize.HumanReadable(),
		"capacity", cfg.Capacity,
		"max_kernels", cfg.MaxConcurrentKernels)
	return e, nil
}

// Config returns the effective configuration.
func (e *Emulator) Config() Config { return e.cfg }

// Index returns the index kernels search.
func (e *Emulator) Index() *fmindex.Index { return e.index }

// AdaptiveBuffer opens an adaptive handle on slot.
func (e *Emulator) AdaptiveBuffer(slot int, p AdaptiveParams) (AdaptiveBuffer, error) {
	if p.AlphabetSize <= 0 {
		p.AlphabetSize = DefaultAdaptiveParams().AlphabetSize
	}
	c, err := e.claim(slot)
	if err != nil {
		return nil, err
	}
	return newAdaptiveBuffer(c, p), nil
}

// StaticBuffer opens a static handle on slot.
func (e *Emulator) StaticBuffer(slot int, p StaticParams) (StaticBuffer, error) {
	c, err := e.claim(slot)
	if err != nil {
		return nil, err
	}
	return newStaticBuffer(c, p), nil
}

func (e *Emulator) claim(slot int) (*core, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if slot < 0 || slot >= e.cfg.NumBuffers {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidSlot, slot, e.cfg.NumBuffers)
	}
	if e.claimed.Contains(uint32(slot)) {
		return nil, fmt.Errorf("%w: %d", ErrSlotInUse, slot)
	}
	mem := e.cfg.bufferMemory()
	if err := e.rc.AcquireMemory(mem); err != nil {
		return nil, fmt.Errorf("%w: slot %d needs %d bytes, %d of %d in use",
			ErrDeviceMemory, slot, mem, e.rc.MemoryUsage(), e.rc.MemoryLimit())
	}

	e.claimed.Add(uint32(slot))
	c := &core{
		e:      e,
		slot:   slot,
		cap:    e.cfg.Capacity,
		mem:    mem,
		logger: e.logger.With("slot", slot),
	}
	e.open[slot] = c
	e.logger.Debug("buffer opened", "slot", slot)
	return c, nil
}

func (e *Emulator) release(c *core) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open[c.slot] != c {
		return
	}
	delete(e.open, c.slot)
	e.claimed.Remove(uint32(c.slot))
	e.rc.ReleaseMemory(c.mem)
}

func (e *Emulator) countKernel(ran bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ran {
		e.launched++
	} else {
		e.skipped++
	}
}

// Stats returns a snapshot of emulator counters.
func (e *Emulator) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		OpenBuffers:      len(e.open),
		KernelsLaunched:  e.launched,
		KernelsSkipped:   e.skipped,
		MemoryInUse:      e.rc.MemoryUsage(),
		BytesTransferred: e.rc.TransferredBytes(),
	}
}

// Close releases every open buffer. Buffers still open at this point were
// leaked by their owner and are reported.
func (e *Emulator) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	leaked := make([]*core, 0, len(e.open))
	slots := make([]uint32, 0, len(e.open))
	for _, c := range e.open {
		leaked = append(leaked, c)
	}
	e.claimed.Iterate(func(x uint32) bool {
		slots = append(slots, x)
		return true
	})
	e.mu.Unlock()

	e.cancel()

	if len(leaked) > 0 {
		e.logger.Warn("closing emulator with open buffers", "count", len(leaked), "slots", slots)
	}
	var err error
	for _, c := range leaked {
		err = multierr.Append(err, c.close())
	}
	return err
}
