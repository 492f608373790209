package rowstream

import (
	"context"

	"github.com/go-row-stream/rowstream/cursor"
	"github.com/go-row-stream/rowstream/sink"
)

// Iterator provides pull-based sequential access to the materialized items
// of one pipeline operation. It is not restartable; build a new one against
// a fresh cursor to read again.
type Iterator[T any] struct {
	items  *sink.Channel[T]
	cancel context.CancelFunc
	closed bool
}

// Iter starts a pipeline operation over cur and exposes it as a lazy,
// pull-based sequence. The pipeline runs ahead of the consumer only as far
// as the bounded queue and the channel sink allow.
//
// The caller must exhaust the iterator or Close it, otherwise the draining
// goroutine leaks.
func Iter[T any](ctx context.Context, cur cursor.Cursor, opts ...Option) *Iterator[T] {
	ictx, cancel := context.WithCancel(ctx)
	items := sink.NewChannel[T](newSettings(opts).queueCap)
	go func() {
		_, _ = Stream[T](ictx, cur, items, opts...)
	}()
	return &Iterator[T]{items: items, cancel: cancel}
}

// Next returns the next item. It returns (zero, false, nil) when the
// operation completed cleanly and (zero, false, err) when it faulted.
func (it *Iterator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	select {
	case item, ok := <-it.items.Items():
		if !ok {
			return zero, false, it.items.Err()
		}
		return item, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

// Close stops the underlying operation and releases its goroutines.
func (it *Iterator[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.cancel()
	for range it.items.Items() {
		// discard whatever was already in flight
	}
	return nil
}
