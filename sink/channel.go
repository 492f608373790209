package sink

import (
	"context"
	"sync"
)

// Channel is a bounded, channel-backed Sink. Consumers range over Items;
// once the channel is closed, Err and Count report the terminal outcome.
type Channel[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once

	err   error
	count int
}

// NewChannel creates a Channel sink with the given capacity. A capacity
// below 1 is coerced to 1 so writes cannot deadlock against an absent
// reader of an unbuffered channel.
func NewChannel[T any](capacity int) *Channel[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Channel[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
	}
}

// Write sends item into the channel, blocking while it is full.
func (c *Channel[T]) Write(ctx context.Context, item T) error {
	select {
	case c.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Complete closes the channel after recording the delivered count.
// Subsequent Complete/Fault calls are no-ops.
func (c *Channel[T]) Complete(count int) {
	c.once.Do(func() {
		c.count = count
		close(c.ch)
		close(c.done)
	})
}

// Fault closes the channel after recording the causing error.
// Subsequent Complete/Fault calls are no-ops.
func (c *Channel[T]) Fault(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.ch)
		close(c.done)
	})
}

// Items returns the receive side. It is closed exactly once, by Complete
// or Fault.
func (c *Channel[T]) Items() <-chan T {
	return c.ch
}

// Err blocks until the sink is terminal, then reports the fault (nil on a
// clean finish).
func (c *Channel[T]) Err() error {
	<-c.done
	return c.err
}

// Count blocks until the sink is terminal, then reports the delivered
// item count.
func (c *Channel[T]) Count() int {
	<-c.done
	return c.count
}
