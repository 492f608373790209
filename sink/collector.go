package sink

import "context"

// Collector accumulates every written item into a slice. It is meant for
// one pipeline operation at a time; read the results after the operation
// has finished.
type Collector[T any] struct {
	items     []T
	err       error
	count     int
	completes int
	faults    int
}

// NewCollector creates an empty Collector sink.
func NewCollector[T any]() *Collector[T] {
	return &Collector[T]{}
}

func (c *Collector[T]) Write(_ context.Context, item T) error {
	c.items = append(c.items, item)
	return nil
}

func (c *Collector[T]) Complete(count int) {
	c.completes++
	if c.completes+c.faults > 1 {
		return
	}
	c.count = count
}

func (c *Collector[T]) Fault(err error) {
	c.faults++
	if c.completes+c.faults > 1 {
		return
	}
	c.err = err
}

// Items returns the collected items in delivery order.
func (c *Collector[T]) Items() []T { return c.items }

// Err reports the fault, nil on a clean finish.
func (c *Collector[T]) Err() error { return c.err }

// Count reports the count passed to Complete.
func (c *Collector[T]) Count() int { return c.count }

// Signals reports how many times Complete and Fault were invoked,
// including suppressed duplicates.
func (c *Collector[T]) Signals() (completes, faults int) {
	return c.completes, c.faults
}
