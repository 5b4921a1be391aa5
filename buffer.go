package rpstage

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/rpstage/device"
	"github.com/hupe1980/rpstage/search"
)

type bufferState uint8

const (
	bufferIdle bufferState = iota
	bufferSent
	bufferReceived
)

func (s bufferState) String() string {
	switch s {
	case bufferIdle:
		return "idle"
	case bufferSent:
		return "sent"
	case bufferReceived:
		return "received"
	}
	return fmt.Sprintf("bufferState(%d)", uint8(s))
}

// Buffer is one device buffer plus the requests assigned to it, in
// submission order. Requests are referenced, not owned: they go back to the
// cache only through Clear and Close.
type Buffer struct {
	slot     int
	profiler Profiler
	searches []*search.Search
	state    bufferState

	logger  *Logger
	metrics MetricsObserver
}

func newBuffer(src device.Source, slot int, mode ProfileMode, logger *Logger, metrics MetricsObserver) (*Buffer, error) {
	p, err := mode.Open(src, slot)
	if err != nil {
		return nil, fmt.Errorf("open %s buffer at slot %d: %w", mode.Name(), slot, err)
	}
	return &Buffer{
		slot:     slot,
		profiler: p,
		searches: make([]*search.Search, 0, p.MaxQueries()),
		logger:   logger.WithSlot(slot),
		metrics:  metrics,
	}, nil
}

// Clear empties the device handle and the request list. When cache is
// non-nil every assigned request is handed back to it.
func (b *Buffer) Clear(cache search.Freer) {
	b.profiler.Clear()
	if cache != nil {
		for _, s := range b.searches {
			cache.Free(s)
		}
	}
	clear(b.searches)
	b.searches = b.searches[:0]
	b.state = bufferIdle
}

// Close releases the device handle and hands every assigned request back to
// cache. A nil cache drops them.
func (b *Buffer) Close(cache search.Freer) error {
	err := b.profiler.Close()
	if cache != nil {
		for _, s := range b.searches {
			cache.Free(s)
		}
	}
	b.searches = nil
	b.state = bufferIdle
	return err
}

// Fits reports whether end1, and end2 when non-nil, fit in the remaining
// capacity. It does not modify the buffer.
func (b *Buffer) Fits(end1, end2 *search.Search) bool {
	if len(b.searches)+1 > b.profiler.MaxQueries() {
		return false
	}
	if end2 != nil && len(b.searches)+2 > b.profiler.MaxQueries() {
		return false
	}
	return b.profiler.Fits(end1, end2)
}

// Add appends s. The caller must have checked Fits.
func (b *Buffer) Add(s *search.Search) {
	b.searches = append(b.searches, s)
}

// truncate drops the last n assigned requests.
func (b *Buffer) truncate(n int) {
	k := len(b.searches) - n
	clear(b.searches[k:])
	b.searches = b.searches[:k]
}

// Send dispatches the buffer without waiting.
func (b *Buffer) Send() {
	b.profiler.Send()
	b.state = bufferSent
	b.logger.LogSend(context.Background(), b.slot, len(b.searches))
	b.metrics.OnBufferSend(b.slot, len(b.searches))
}

// Receive blocks until the results of the last Send are host-side. It must
// follow a Send and is allowed once per Send; a failed receive may be retried.
func (b *Buffer) Receive(ctx context.Context) error {
	if b.state != bufferSent {
		return fmt.Errorf("%w: slot %d is %s", ErrNotSent, b.slot, b.state)
	}
	start := time.Now()
	err := b.profiler.Receive(ctx)
	wait := time.Since(start)
	b.logger.LogReceive(ctx, b.slot, wait, err)
	b.metrics.OnBufferReceive(b.slot, wait, err)
	if err != nil {
		return fmt.Errorf("receive slot %d: %w", b.slot, err)
	}
	b.state = bufferReceived
	return nil
}

// Retrieve returns the request at index i in submission order.
func (b *Buffer) Retrieve(i int) *search.Search { return b.searches[i] }

// Len returns the number of assigned requests.
func (b *Buffer) Len() int { return len(b.searches) }

// Slot returns the device slot of the buffer.
func (b *Buffer) Slot() int { return b.slot }

// Profiler returns the device handle.
func (b *Buffer) Profiler() Profiler { return b.profiler }

func (b *Buffer) received() bool { return b.state == bufferReceived }
