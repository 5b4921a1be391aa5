package rpstage

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/rpstage/device"
	"github.com/hupe1980/rpstage/search"
	"go.uber.org/multierr"
)

// Mode is the phase of a stage's round.
type Mode uint8

const (
	// ModeSending accepts submissions.
	ModeSending Mode = iota
	// ModeRetrieving drains results in submission order.
	ModeRetrieving
)

func (m Mode) String() string {
	switch m {
	case ModeSending:
		return "sending"
	case ModeRetrieving:
		return "retrieving"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Stats is a snapshot of stage counters since creation.
type Stats struct {
	BuffersSent       uint64
	BuffersReceived   uint64
	SearchesSubmitted uint64
	SearchesRetrieved uint64
	Saturations       uint64
}

// Stage is a fixed pool of device buffers filled round-robin and drained in
// submission order.
//
// A round has two phases. While sending, requests are packed into the
// current buffer; a buffer that cannot take the next request is sent and the
// next one becomes current. Retrieval flushes the open buffer and walks the
// buffers from the first, receiving each one lazily the first time it is
// entered. Clear starts the next round.
//
// A Stage is driven by one goroutine. The only blocking calls are the ones
// taking a context: they wait for device results.
type Stage struct {
	name    string
	profile ProfileMode
	buffers []*Buffer

	mode          Mode
	currentBuffer int
	currentSearch int
	numSearches   int

	// poison is the protocol violation that stopped retrieval, nil otherwise.
	poison error
	closed bool

	stats   Stats
	logger  *Logger
	metrics MetricsObserver
}

// NewStage opens numBuffers buffers of the given profile mode at device
// slots offset through offset+numBuffers-1. The stage starts in ModeSending.
func NewStage(src device.Source, offset, numBuffers int, mode ProfileMode, opts ...Option) (*Stage, error) {
	if src == nil || mode == nil {
		return nil, fmt.Errorf("%w: nil device source or profile mode", ErrInvalidArgument)
	}
	if numBuffers < 1 || offset < 0 {
		return nil, fmt.Errorf("%w: %d buffers at offset %d", ErrInvalidArgument, numBuffers, offset)
	}

	o := applyOptions(opts)
	st := &Stage{
		name:    o.name,
		profile: mode,
		buffers: make([]*Buffer, 0, numBuffers),
		logger:  o.logger.WithStage(o.name),
		metrics: o.metrics,
	}

	for i := range numBuffers {
		b, err := newBuffer(src, offset+i, mode, st.logger, st.metrics)
		if err != nil {
			for _, opened := range st.buffers {
				err = multierr.Append(err, opened.Close(nil))
			}
			return nil, err
		}
		st.buffers = append(st.buffers, b)
	}
	st.Clear(nil)

	st.logger.Info("stage created",
		"profile_mode", mode.Name(),
		"buffers", numBuffers,
		"offset", offset,
		"max_queries", st.buffers[0].profiler.MaxQueries())
	return st, nil
}

// Clear starts a new round: every buffer is emptied, handing its requests to
// cache when cache is non-nil, and the stage returns to ModeSending. Clear
// also lifts a protocol-violation poison.
func (st *Stage) Clear(cache search.Freer) {
	if st.closed {
		return
	}
	for _, b := range st.buffers {
		b.Clear(cache)
	}
	st.mode = ModeSending
	st.currentBuffer = 0
	st.currentSearch = 0
	st.numSearches = 0
	st.poison = nil
}

// Close releases every buffer and hands all assigned requests to cache.
// The stage cannot be used afterwards.
func (st *Stage) Close(cache search.Freer) error {
	if st.closed {
		return nil
	}
	st.closed = true

	var err error
	for _, b := range st.buffers {
		err = multierr.Append(err, b.Close(cache))
	}
	st.buffers = nil
	if err != nil {
		st.logger.Error("stage close failed", "error", err)
		return err
	}
	st.logger.Info("stage closed",
		"buffers_sent", st.stats.BuffersSent,
		"searches_retrieved", st.stats.SearchesRetrieved)
	return nil
}

// SubmitSingle adds s to the current buffer, sending full buffers as needed.
// It returns false when the stage is saturated; the caller must drain it
// before submitting more. Misuse, such as submitting while retrieving or a
// request the device rejects, panics; use TrySubmitSingle to get an error.
func (st *Stage) SubmitSingle(s *search.Search) bool {
	ok, err := st.TrySubmitSingle(s)
	return mustSubmit(ok, err)
}

// SubmitPaired adds both ends of a pair to the same buffer, end1 first.
// Saturation and misuse are reported as for SubmitSingle.
func (st *Stage) SubmitPaired(end1, end2 *search.Search) bool {
	ok, err := st.TrySubmitPaired(end1, end2)
	return mustSubmit(ok, err)
}

func mustSubmit(ok bool, err error) bool {
	if errors.Is(err, ErrRequestTooLarge) {
		return false
	}
	if err != nil {
		panic(err)
	}
	return ok
}

// TrySubmitSingle is SubmitSingle reporting misuse as an error.
func (st *Stage) TrySubmitSingle(s *search.Search) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("%w: nil search", ErrInvalidArgument)
	}
	return st.submit(s, nil)
}

// TrySubmitPaired is SubmitPaired reporting misuse as an error.
func (st *Stage) TrySubmitPaired(end1, end2 *search.Search) (bool, error) {
	if end1 == nil || end2 == nil {
		return false, fmt.Errorf("%w: nil search in pair", ErrInvalidArgument)
	}
	return st.submit(end1, end2)
}

func (st *Stage) submit(end1, end2 *search.Search) (bool, error) {
	if err := st.usable(); err != nil {
		return false, err
	}
	if st.mode != ModeSending {
		return false, fmt.Errorf("%w: submit while %s", ErrWrongMode, st.mode)
	}

	b, err := st.fit(end1, end2)
	if b == nil {
		return false, err
	}

	n := 1
	b.Add(end1)
	if end2 != nil {
		b.Add(end2)
		n++
	}
	mark := b.profiler.Len()
	for i, s := range []*search.Search{end1, end2}[:n] {
		if err := b.profiler.Copy(s); err != nil {
			b.profiler.Truncate(mark)
			b.truncate(n)
			return false, fmt.Errorf("submit end %d to slot %d: %w", i+1, b.slot, err)
		}
	}
	st.stats.SearchesSubmitted += uint64(n)
	return true, nil
}

// fit advances to the first buffer from the current one that fits the
// request, sending each buffer it leaves. It returns nil when the last buffer
// is reached without room. A request that does not fit an empty buffer is
// rejected without moving the cursor, so empty buffers are never sent ahead
// of filled ones.
func (st *Stage) fit(end1, end2 *search.Search) (*Buffer, error) {
	for {
		b := st.buffers[st.currentBuffer]
		if b.Fits(end1, end2) {
			return b, nil
		}
		if b.Len() == 0 {
			return nil, fmt.Errorf("%w: search %d on slot %d", ErrRequestTooLarge, end1.ID, b.slot)
		}
		if st.currentBuffer == len(st.buffers)-1 {
			st.stats.Saturations++
			st.metrics.OnSaturation()
			st.logger.Warn("stage saturated", "buffers", len(st.buffers), "searches", st.stats.SearchesSubmitted)
			return nil, nil
		}
		st.send(b)
		st.currentBuffer++
		st.logger.Debug("advanced to next buffer", "buffer", st.currentBuffer)
	}
}

func (st *Stage) send(b *Buffer) {
	b.Send()
	st.stats.BuffersSent++
}

// BeginRetrieval ends the sending phase: it sends the open buffer, moves the
// cursor to the first buffer and receives it.
func (st *Stage) BeginRetrieval(ctx context.Context) error {
	if err := st.usable(); err != nil {
		return err
	}
	if st.mode != ModeSending {
		return fmt.Errorf("%w: begin retrieval while %s", ErrWrongMode, st.mode)
	}

	st.mode = ModeRetrieving
	st.metrics.OnRetrievalBegin(st.currentBuffer + 1)
	st.send(st.buffers[st.currentBuffer])

	st.logger.Debug("retrieval started", "buffers_used", st.currentBuffer+1)
	st.currentBuffer = 0
	st.currentSearch = 0
	st.numSearches = st.buffers[0].Len()
	return st.ensureReceived(ctx, st.buffers[0])
}

// RetrievalFinished reports whether there is nothing left to retrieve. It is
// true while sending, and after retrieval walked past the last request.
func (st *Stage) RetrievalFinished() bool {
	if st.mode == ModeSending {
		return true
	}
	return st.currentBuffer == len(st.buffers) && st.currentSearch == st.numSearches
}

// RetrieveNext returns the next request in submission order together with the
// buffer holding it. ok is false at the end of the round. The first call of a
// round in ModeSending begins retrieval.
//
// Buffers are filled front to back, so entering a buffer with no requests
// ends the round.
func (st *Stage) RetrieveNext(ctx context.Context) (b *Buffer, s *search.Search, ok bool, err error) {
	if err := st.usable(); err != nil {
		return nil, nil, false, err
	}
	if st.mode == ModeSending {
		if err := st.BeginRetrieval(ctx); err != nil {
			return nil, nil, false, err
		}
	}

	if st.currentBuffer >= len(st.buffers) {
		return nil, nil, false, nil
	}
	if st.currentSearch == st.numSearches {
		next := st.currentBuffer + 1
		if next == len(st.buffers) || st.buffers[next].Len() == 0 {
			// Jump to the sentinel instead of parking on the empty buffer so
			// RetrievalFinished is true once this returns ok == false.
			st.finish()
			return nil, nil, false, nil
		}
		st.currentBuffer = next
		st.currentSearch = 0
		st.numSearches = st.buffers[next].Len()
	}

	b = st.buffers[st.currentBuffer]
	if err := st.ensureReceived(ctx, b); err != nil {
		return nil, nil, false, err
	}
	s = b.Retrieve(st.currentSearch)
	st.currentSearch++
	st.stats.SearchesRetrieved++
	return b, s, true, nil
}

// finish moves the cursor to the end-of-round sentinel.
func (st *Stage) finish() {
	st.currentBuffer = len(st.buffers)
	st.currentSearch = 0
	st.numSearches = 0
}

// ensureReceived receives b once per round. A receive that failed, for
// instance on a cancelled context, is retried by the next call.
func (st *Stage) ensureReceived(ctx context.Context, b *Buffer) error {
	if b.received() {
		return nil
	}
	if err := b.Receive(ctx); err != nil {
		return err
	}
	st.stats.BuffersReceived++
	return nil
}

// RetrieveSingle returns the next request with its region profile extracted.
func (st *Stage) RetrieveSingle(ctx context.Context) (*search.Search, bool, error) {
	b, s, ok, err := st.RetrieveNext(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := b.profiler.Extract(s); err != nil {
		return nil, false, fmt.Errorf("extract from slot %d: %w", b.slot, err)
	}
	return s, true, nil
}

// RetrievePaired returns the next pair with both profiles extracted. ok is
// false at the end of the round. A first end without a second one is a
// protocol violation: the returned *ProtocolError wraps ErrUnpairedQuery and
// every later call fails until Clear.
func (st *Stage) RetrievePaired(ctx context.Context) (end1, end2 *search.Search, ok bool, err error) {
	b1, end1, ok, err := st.RetrieveNext(ctx)
	if err != nil || !ok {
		return nil, nil, false, err
	}
	idx := st.currentBuffer

	b2, end2, ok, err := st.RetrieveNext(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	if !ok {
		perr := &ProtocolError{Op: "retrieve paired", Buffer: idx, Search: end1.ID, cause: ErrUnpairedQuery}
		st.poison = perr
		st.metrics.OnUnpaired()
		st.logger.Error("Search-Stage Region-Profile. Couldn't retrieve query-pair",
			"buffer", idx, "slot", b1.slot, "search", end1.ID, "tag", end1.Tag)
		return nil, nil, false, perr
	}

	if err := b1.profiler.Extract(end1); err != nil {
		return nil, nil, false, fmt.Errorf("extract end 1 from slot %d: %w", b1.slot, err)
	}
	if err := b2.profiler.Extract(end2); err != nil {
		return nil, nil, false, fmt.Errorf("extract end 2 from slot %d: %w", b2.slot, err)
	}
	return end1, end2, true, nil
}

func (st *Stage) usable() error {
	if st.closed {
		return ErrClosed
	}
	if st.poison != nil {
		return fmt.Errorf("%w: %w", ErrStagePoisoned, st.poison)
	}
	return nil
}

// Mode returns the current phase.
func (st *Stage) Mode() Mode { return st.mode }

// ProfileMode returns the device variant the stage was created with.
func (st *Stage) ProfileMode() ProfileMode { return st.profile }

// NumBuffers returns the size of the buffer pool.
func (st *Stage) NumBuffers() int { return len(st.buffers) }

// Buffer returns buffer i of the pool.
func (st *Stage) Buffer(i int) *Buffer { return st.buffers[i] }

// Stats returns a snapshot of stage counters.
func (st *Stage) Stats() Stats { return st.stats }
