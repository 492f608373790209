package rowstream

import (
	"context"

	"github.com/go-row-stream/rowstream/bind"
	"github.com/go-row-stream/rowstream/cursor"
	"github.com/go-row-stream/rowstream/sink"
)

// Stream drains cur, materializes each row into a T and delivers the items
// to snk in cursor order. It returns the number of items delivered and the
// operation's fault, if any; the same outcome is signaled to snk exactly
// once, as Complete(count) or Fault(err).
//
// The cursor is drained by a dedicated stage that owns it exclusively;
// transformation and delivery run concurrently, coupled through a bounded
// queue (see WithQueueCapacity). Memory stays bounded regardless of result
// set size, and pooled row buffers (see WithPool) are reclaimed on every
// exit path.
func Stream[T any](ctx context.Context, cur cursor.Cursor, snk sink.Sink[T], opts ...Option) (int, error) {
	s := newSettings(opts)
	return stream(ctx, cur, snk, s, func(columns []string) (materializer[T], error) {
		binding, err := bind.For[T](columns, s.aliases, s.missing)
		if err != nil {
			return nil, err
		}
		return binding.Materialize, nil
	})
}

// Collect drains cur and returns every materialized item as a slice.
// On fault the items delivered before the fault are returned alongside
// the error.
func Collect[T any](ctx context.Context, cur cursor.Cursor, opts ...Option) ([]T, error) {
	c := sink.NewCollector[T]()
	_, err := Stream[T](ctx, cur, c, opts...)
	return c.Items(), err
}

// Each drains cur and invokes fn once per materialized item, in cursor
// order. An error from fn faults the operation.
func Each[T any](ctx context.Context, cur cursor.Cursor, fn func(context.Context, T) error, opts ...Option) (int, error) {
	return Stream[T](ctx, cur, sink.NewFunc(fn), opts...)
}
