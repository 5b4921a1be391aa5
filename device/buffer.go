package device

import (
	"context"
	"log/slog"
	"sync"
)

type bufferState int

const (
	stateIdle bufferState = iota
	stateInFlight
	stateDone
)

// kernel is one snapshot of a buffer's contents bound to the routine that
// profiles it.
type kernel struct {
	inBytes  int
	outBytes int
	run      func() // nil when profiling is disabled
}

// core is the slot, lifecycle and kernel plumbing shared by both handle kinds.
type core struct {
	e      *Emulator
	slot   int
	cap    Capacity
	mem    int64
	logger *slog.Logger

	mu     sync.Mutex
	state  bufferState
	done   chan struct{}
	err    error
	closed bool
}

func (c *core) Slot() int { return c.slot }

// launch starts k asynchronously. A kernel still in flight from an earlier
// launch is waited for first.
func (c *core) launch(k kernel) {
	c.wait()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	done := make(chan struct{})
	c.done = done
	c.err = nil
	c.state = stateInFlight
	c.mu.Unlock()

	c.e.countKernel(k.run != nil)

	if k.run == nil {
		c.finish(done, nil)
		return
	}

	c.logger.Debug("kernel launched", "in_bytes", k.inBytes)
	go func() {
		c.finish(done, c.execute(k))
	}()
}

func (c *core) execute(k kernel) error {
	ctx := c.e.ctx
	rc := c.e.rc
	if err := rc.AcquireTransfer(ctx, k.inBytes); err != nil {
		return err
	}
	if err := rc.AcquireKernel(ctx); err != nil {
		return err
	}
	k.run()
	rc.ReleaseKernel()
	return rc.AcquireTransfer(ctx, k.outBytes)
}

func (c *core) finish(done chan struct{}, err error) {
	c.mu.Lock()
	c.err = err
	if c.done == done {
		c.state = stateDone
	}
	c.mu.Unlock()
	close(done)
	if err != nil {
		c.logger.Error("kernel failed", "error", err)
	}
}

// wait blocks until no kernel is in flight.
func (c *core) wait() {
	c.mu.Lock()
	done := c.done
	inFlight := c.state == stateInFlight
	c.mu.Unlock()
	if inFlight {
		<-done
	}
}

// Receive waits for the last launch or ctx.
func (c *core) Receive(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == stateIdle {
		c.mu.Unlock()
		return ErrNotSent
	}
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// busy reports whether the host side may not be modified.
func (c *core) busy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrClosed
	case c.state == stateInFlight:
		return ErrBusy
	}
	return nil
}

func (c *core) clear() {
	c.wait()
	c.mu.Lock()
	c.state = stateIdle
	c.err = nil
	c.mu.Unlock()
}

func (c *core) close() error {
	c.wait()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = stateIdle
	c.mu.Unlock()
	c.e.release(c)
	c.logger.Debug("buffer closed")
	return nil
}
