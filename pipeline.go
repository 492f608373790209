package rowstream

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/go-row-stream/rowstream/cursor"
	"github.com/go-row-stream/rowstream/sink"
)

// materializer turns one row buffer into a delivered item. It must not
// retain the buffer: ownership goes back to the pool right after the call.
type materializer[T any] func(row []any) (T, error)

// stream executes one drain-transform-deliver cycle: the draining stage
// owns the cursor and feeds row buffers through a bounded queue to the
// transform stage, which materializes items and writes them to the sink.
//
// The sink is completed or faulted exactly once; the same fault is returned
// to the caller. Rented buffers are returned on every exit path.
func stream[T any](ctx context.Context, cur cursor.Cursor, snk sink.Sink[T], s *settings,
	compile func(columns []string) (materializer[T], error)) (int, error) {

	if snk == nil {
		return 0, errors.New("rowstream: nil sink")
	}
	if cur == nil {
		err := errors.New("rowstream: nil cursor")
		snk.Fault(err)
		return 0, err
	}

	cols, err := cur.Columns()
	if err != nil {
		err = errors.Wrap(err, "rowstream: reading columns")
		snk.Fault(err)
		return 0, err
	}
	names := cursor.Names(cols)
	materialize, err := compile(names)
	if err != nil {
		snk.Fault(err)
		return 0, err
	}

	opID := uuid.New()
	s.logger.Debug().
		Stringer("op", opID).
		Str("driver", cur.Driver()).
		Int("columns", len(names)).
		Int("queue_capacity", s.queueCap).
		Msg("stream started")

	ncols := len(names)
	queue := make(chan []any, s.queueCap)
	delivered := 0

	g, gctx := errgroup.WithContext(ctx)

	// Draining stage: exclusive cursor owner, strictly sequential.
	g.Go(func() error {
		defer close(queue)
		for {
			// Cancellation is observed at row boundaries only.
			if gctx.Err() != nil {
				return drainHalt(ctx, s.cancel)
			}
			if !cur.Next() {
				if err := cur.Err(); err != nil {
					return errors.Wrap(err, "rowstream: advancing cursor")
				}
				return nil
			}
			buf := s.pool.Rent(ncols)
			if err := cur.ScanRow(buf); err != nil {
				s.pool.Return(buf)
				return errors.Wrap(err, "rowstream: scanning row")
			}
			select {
			case queue <- buf:
			case <-gctx.Done():
				// A fully read row may still be handed over, but never at
				// the cost of blocking on a consumer that is gone.
				select {
				case queue <- buf:
				default:
					s.pool.Return(buf)
				}
				return drainHalt(ctx, s.cancel)
			}
		}
	})

	// Transform stage: materialize and deliver, FIFO.
	g.Go(func() error {
		for buf := range queue {
			// Queued buffers are in flight, not delivered: under CancelFail
			// a caller cancellation discards them.
			if ctx.Err() != nil && s.cancel == CancelFail {
				s.pool.Return(buf)
				return ctx.Err()
			}
			item, merr := materialize(buf)
			s.pool.Return(buf) // before acting on any error
			if merr != nil {
				return merr
			}
			if werr := snk.Write(gctx, item); werr != nil {
				if ctx.Err() != nil && s.cancel == CancelStop {
					return nil
				}
				return werr
			}
			delivered++
		}
		return nil
	})

	err = g.Wait()

	// Buffers still queued when a stage bailed out are returned here, so
	// rent and return counts match on every path.
	for buf := range queue {
		s.pool.Return(buf)
	}

	if err != nil {
		s.logger.Debug().Stringer("op", opID).Int("rows", delivered).Err(err).Msg("stream faulted")
		snk.Fault(err)
		return delivered, err
	}
	s.logger.Debug().Stringer("op", opID).Int("rows", delivered).Msg("stream completed")
	snk.Complete(delivered)
	return delivered, nil
}

// drainHalt decides how the draining stage reports an interrupted run:
// a caller cancellation surfaces per the configured policy, while a halt
// triggered by the other stage's fault is silent (that fault is already
// the operation's error).
func drainHalt(ctx context.Context, policy CancelPolicy) error {
	if ctx.Err() != nil && policy == CancelFail {
		return ctx.Err()
	}
	return nil
}
