// Package sink defines the downstream consumer abstraction the streaming
// pipeline delivers materialized items into.
//
// A Sink receives every item in cursor order through Write, then exactly one
// of Complete or Fault. Write may block; that is the pipeline's second
// backpressure point after the bounded row queue.
package sink

import "context"

// Sink consumes materialized items from one pipeline operation.
type Sink[T any] interface {
	// Write delivers one item. It may suspend under backpressure and must
	// honor ctx cancellation while suspended.
	Write(ctx context.Context, item T) error
	// Complete marks a clean finish with the total item count.
	Complete(count int)
	// Fault marks a failed finish. Items already written stay delivered.
	Fault(err error)
}

// Func adapts a callback into a Sink. Complete and Fault outcomes are
// recorded and readable after the operation finishes.
type Func[T any] struct {
	fn    func(ctx context.Context, item T) error
	count int
	err   error
	done  bool
}

// NewFunc wraps fn as a Sink.
func NewFunc[T any](fn func(ctx context.Context, item T) error) *Func[T] {
	return &Func[T]{fn: fn}
}

func (s *Func[T]) Write(ctx context.Context, item T) error {
	return s.fn(ctx, item)
}

func (s *Func[T]) Complete(count int) {
	if s.done {
		return
	}
	s.done = true
	s.count = count
}

func (s *Func[T]) Fault(err error) {
	if s.done {
		return
	}
	s.done = true
	s.err = err
}

// Count reports the delivered item count after Complete.
func (s *Func[T]) Count() int { return s.count }

// Err reports the fault after Fault, nil otherwise.
func (s *Func[T]) Err() error { return s.err }
