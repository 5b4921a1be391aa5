package rpstage

import (
	"sync/atomic"
	"time"
)

// MetricsObserver receives stage events. Implementations must be cheap; they
// are called inline on the submission and retrieval paths.
type MetricsObserver interface {
	// OnBufferSend is called when a buffer is dispatched with searches requests.
	OnBufferSend(slot, searches int)

	// OnBufferReceive is called when a receive returns, after waiting wait.
	OnBufferReceive(slot int, wait time.Duration, err error)

	// OnRetrievalBegin reports how many buffers the finished round filled.
	OnRetrievalBegin(buffersUsed int)

	// OnSaturation is called when a submission is refused because no buffer fits it.
	OnSaturation()

	// OnUnpaired is called when a paired retrieval finds no second end.
	OnUnpaired()
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnBufferSend(slot, searches int)                         {}
func (NoopMetricsObserver) OnBufferReceive(slot int, wait time.Duration, err error) {}
func (NoopMetricsObserver) OnRetrievalBegin(buffersUsed int)                        {}
func (NoopMetricsObserver) OnSaturation()                                           {}
func (NoopMetricsObserver) OnUnpaired()                                             {}

// BasicMetricsObserver is a simple in-memory observer using atomic counters.
// Useful for testing and basic monitoring without external dependencies.
type BasicMetricsObserver struct {
	BuffersSent      atomic.Int64
	SearchesSent     atomic.Int64
	BuffersReceived  atomic.Int64
	ReceiveErrors    atomic.Int64
	ReceiveWaitNanos atomic.Int64
	Retrievals       atomic.Int64
	BuffersUsed      atomic.Int64
	Saturations      atomic.Int64
	Unpaired         atomic.Int64
}

// OnBufferSend implements MetricsObserver.
func (b *BasicMetricsObserver) OnBufferSend(slot, searches int) {
	b.BuffersSent.Add(1)
	b.SearchesSent.Add(int64(searches))
}

// OnBufferReceive implements MetricsObserver.
func (b *BasicMetricsObserver) OnBufferReceive(slot int, wait time.Duration, err error) {
	if err != nil {
		b.ReceiveErrors.Add(1)
		return
	}
	b.BuffersReceived.Add(1)
	b.ReceiveWaitNanos.Add(wait.Nanoseconds())
}

// OnRetrievalBegin implements MetricsObserver.
func (b *BasicMetricsObserver) OnRetrievalBegin(buffersUsed int) {
	b.Retrievals.Add(1)
	b.BuffersUsed.Add(int64(buffersUsed))
}

// OnSaturation implements MetricsObserver.
func (b *BasicMetricsObserver) OnSaturation() { b.Saturations.Add(1) }

// OnUnpaired implements MetricsObserver.
func (b *BasicMetricsObserver) OnUnpaired() { b.Unpaired.Add(1) }

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsObserver) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuffersSent:         b.BuffersSent.Load(),
		SearchesSent:        b.SearchesSent.Load(),
		BuffersReceived:     b.BuffersReceived.Load(),
		ReceiveErrors:       b.ReceiveErrors.Load(),
		ReceiveAvgWaitNanos: b.avgWaitNanos(),
		Retrievals:          b.Retrievals.Load(),
		BuffersUsed:         b.BuffersUsed.Load(),
		Saturations:         b.Saturations.Load(),
		Unpaired:            b.Unpaired.Load(),
	}
}

func (b *BasicMetricsObserver) avgWaitNanos() int64 {
	count := b.BuffersReceived.Load()
	if count == 0 {
		return 0
	}
	return b.ReceiveWaitNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsObserver state.
type BasicMetricsStats struct {
	BuffersSent         int64
	SearchesSent        int64
	BuffersReceived     int64
	ReceiveErrors       int64
	ReceiveAvgWaitNanos int64
	Retrievals          int64
	BuffersUsed         int64
	Saturations         int64
	Unpaired            int64
}
