package device

import (
	"log/slog"
	"runtime"

	"github.com/c2h5oh/datasize"
)

// Per-entry device footprint used to derive capacities from a buffer size.
const (
	queryBytes  = 16 // key offset, length, region offset, region count
	regionBytes = 24 // begin/end + interval
	seedBytes   = 24 // key offset/length + interval

	// Sizing assumes short reads of about this many bases.
	typicalReadLength = 150
	typicalRegions    = 10
)

// Capacity bounds what one buffer can hold.
type Capacity struct {
	Queries int
	Bases   int
	Regions int
}

// CapacityFromSize derives a capacity from a buffer's byte size. Regions
// doubles as the static seed limit.
func CapacityFromSize(size datasize.ByteSize) Capacity {
	perQuery := queryBytes + typicalReadLength + typicalRegions*regionBytes
	queries := int(size.Bytes()) / perQuery
	return Capacity{
		Queries: queries,
		Bases:   queries * typicalReadLength,
		Regions: queries * typicalRegions,
	}
}

func (c Capacity) bytes() int64 {
	return int64(c.Queries*queryBytes + c.Bases + c.Regions*regionBytes)
}

// Config configures an Emulator.
type Config struct {
	// NumBuffers is the number of buffer slots. Default: 8.
	NumBuffers int
	// BufferSize is the device memory of one buffer. Default: 4MB.
	BufferSize datasize.ByteSize
	// Capacity overrides the capacity derived from BufferSize.
	Capacity Capacity
	// MemoryLimit caps total device memory. Zero means unlimited.
	MemoryLimit datasize.ByteSize
	// MaxConcurrentKernels bounds kernels running at once. Default: GOMAXPROCS.
	MaxConcurrentKernels int
	// TransferBandwidth is the emulated host<->device rate per second. Zero
	// means unlimited.
	TransferBandwidth datasize.ByteSize
	// Logger receives kernel and lifecycle events. Default: discard.
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.NumBuffers <= 0 {
		c.NumBuffers = 8
	}
	if c.BufferSize == 0 {
		c.BufferSize = 4 * datasize.MB
	}
	if c.Capacity == (Capacity{}) {
		c.Capacity = CapacityFromSize(c.BufferSize)
	}
	if c.MaxConcurrentKernels <= 0 {
		c.MaxConcurrentKernels = runtime.GOMAXPROCS(0)
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// bufferMemory is the device memory charged per open buffer.
func (c Config) bufferMemory() int64 {
	if c.Capacity == CapacityFromSize(c.BufferSize) {
		return int64(c.BufferSize.Bytes())
	}
	return c.Capacity.bytes()
}
