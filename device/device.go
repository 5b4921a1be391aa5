package device

import (
	"context"
	"errors"

	"github.com/hupe1980/rpstage/dna"
)

var (
	// ErrInvalidSlot is returned for a slot outside [0, NumBuffers).
	ErrInvalidSlot = errors.New("device: invalid buffer slot")
	// ErrSlotInUse is returned when a slot is already claimed by an open handle.
	ErrSlotInUse = errors.New("device: buffer slot in use")
	// ErrDeviceMemory is returned when a buffer cannot be backed by device memory.
	ErrDeviceMemory = errors.New("device: out of device memory")
	// ErrCapacity is returned when a query or seed does not fit the buffer.
	ErrCapacity = errors.New("device: buffer capacity exceeded")
	// ErrClosed is returned by operations on a closed handle or emulator.
	ErrClosed = errors.New("device: closed")
	// ErrNotSent is returned by Receive when nothing was sent.
	ErrNotSent = errors.New("device: receive without send")
	// ErrBusy is returned when the host modifies a buffer with a kernel in flight.
	ErrBusy = errors.New("device: buffer in flight")
)

// Region is one adaptive region result: key span [Begin, End) and its
// suffix-array interval [Lo, Hi).
type Region struct {
	Begin int
	End   int
	Lo    uint64
	Hi    uint64
}

// AdaptiveParams configures the adaptive region-profile kernel.
type AdaptiveParams struct {
	// Enabled runs the kernel. When false, Send completes without profiling
	// and Computed reports false.
	Enabled bool
	// OccMinThreshold cuts a region once its occurrence count drops to this value.
	OccMinThreshold uint64
	// ExtraSearchSteps extends a region this many more bases past the threshold.
	ExtraSearchSteps int
	// AlphabetSize bounds searchable symbols; larger symbols break regions.
	AlphabetSize int
}

// DefaultAdaptiveParams returns the GEM defaults for short reads.
func DefaultAdaptiveParams() AdaptiveParams {
	return AdaptiveParams{
		Enabled:          true,
		OccMinThreshold:  20,
		ExtraSearchSteps: 2,
		AlphabetSize:     dna.AlphabetSize,
	}
}

// StaticParams configures the static seed-search kernel.
type StaticParams struct {
	Enabled bool
}

// Buffer is the part of the handle contract shared by both profile modes.
type Buffer interface {
	// Slot returns the buffer slot the handle was opened on.
	Slot() int
	// MaxQueries returns the most entries the handle can hold.
	MaxQueries() int
	// Send launches the kernel over the current contents. It does not block.
	Send()
	// Receive blocks until the results of the last Send are host-side.
	Receive(ctx context.Context) error
	// Computed reports whether the last received batch was profiled.
	Computed() bool
	// Len returns the number of uploaded entries.
	Len() int
	// Truncate drops every entry from index n on, releasing its capacity.
	// It has no effect while a kernel is in flight.
	Truncate(n int)
	// Clear empties the handle, waiting for an in-flight kernel.
	Clear()
	// Close releases the handle, its slot and its device memory.
	Close() error
}

// AdaptiveBuffer holds whole keys and returns a variable-length region list
// per key.
type AdaptiveBuffer interface {
	Buffer
	FitsInBuffer(queries, bases, regions int) bool
	// AddQuery uploads key and reserves maxRegions result slots. It returns
	// the query index.
	AddQuery(key []byte, maxRegions int) (int, error)
	// Regions returns the regions found for a query after Receive.
	Regions(query int) []Region
}

// StaticBuffer holds independent seeds and returns one interval per seed.
type StaticBuffer interface {
	Buffer
	FitsInBuffer(seeds int) bool
	// AddSeed uploads one seed and returns its index.
	AddSeed(key []byte) (int, error)
	// Interval returns the suffix-array interval of a seed after Receive.
	Interval(seed int) (lo, hi uint64)
}

// Source supplies buffer handles by slot.
type Source interface {
	AdaptiveBuffer(slot int, p AdaptiveParams) (AdaptiveBuffer, error)
	StaticBuffer(slot int, p StaticParams) (StaticBuffer, error)
}
