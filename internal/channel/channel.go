// Package channel hands the latest Transform from the estimation loop to the
// render loop.
//
// A Channel is a single-slot mailbox with overwrite semantics: Publish
// replaces the held value and Current returns a copy of it. Neither side
// waits for the other beyond a short critical section. Intermediate values
// the reader never saw are dropped and counted.
package channel

import (
	"sync"
	"sync/atomic"

	"github.com/ayusman/sholo/internal/motion"
)

// Stats reports channel activity.
type Stats struct {
	Published   uint64 // Successful Publish calls
	Overwritten uint64 // Published values replaced before any reader saw them
	Seq         uint64 // Sequence number of the held value (0 = initial)
}

// Channel is safe for one writer and any number of readers.
type Channel struct {
	mu          sync.RWMutex
	value       motion.Transform
	seq         uint64
	published   uint64
	overwritten uint64
	closed      bool

	lastRead  atomic.Uint64 // Highest seq returned to a reader
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a channel holding initial.
func New(initial motion.Transform) *Channel {
	return &Channel{
		value: initial,
		done:  make(chan struct{}),
	}
}

// Publish replaces the held transform. It returns false, leaving the held
// value untouched, once the channel is closed.
func (c *Channel) Publish(t motion.Transform) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if c.seq > 0 && c.lastRead.Load() < c.seq {
		c.overwritten++
	}
	c.value = t
	c.seq++
	c.published++
	return true
}

// Current returns the most recently published transform, or the initial one.
// It keeps working after Close.
func (c *Channel) Current() motion.Transform {
	t, _ := c.Snapshot()
	return t
}

// Snapshot returns the held transform together with its sequence number.
func (c *Channel) Snapshot() (motion.Transform, uint64) {
	c.mu.RLock()
	t, seq := c.value, c.seq
	c.mu.RUnlock()

	for {
		prev := c.lastRead.Load()
		if seq <= prev || c.lastRead.CompareAndSwap(prev, seq) {
			break
		}
	}
	return t, seq
}

// Close stops further publishing and releases Done waiters. Safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}

// Done is closed when the channel is closed.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Stats returns a snapshot of the counters.
func (c *Channel) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Published:   c.published,
		Overwritten: c.overwritten,
		Seq:         c.seq,
	}
}
