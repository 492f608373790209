// Package pool provides rent/return reuse of row buffers so large scans do
// not allocate one []any per row.
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool hands out row buffers and takes them back.
//
// Every rented buffer must be returned exactly once; after Return the
// contents are undefined for the caller. Implementations are safe for
// concurrent use.
type Pool interface {
	// Rent returns a buffer with length >= size, sliced to exactly size.
	Rent(size int) []any
	// Return gives buf back for reuse.
	Return(buf []any)
}

// Stats reports how many buffers a pool has handed out and taken back.
// At the end of any pipeline operation the two counts are equal.
type Stats struct {
	Rents   uint64
	Returns uint64
}

// rowPool is the sync.Pool-backed implementation.
type rowPool struct {
	pool    sync.Pool
	rents   atomic.Uint64
	returns atomic.Uint64
}

// New creates a buffer pool backed by sync.Pool.
func New() *rowPool {
	return &rowPool{}
}

func (p *rowPool) Rent(size int) []any {
	p.rents.Add(1)
	v := p.pool.Get()
	if v == nil {
		return make([]any, size)
	}
	buf := v.([]any)
	if cap(buf) < size {
		return make([]any, size)
	}
	buf = buf[:size]
	for i := range buf {
		buf[i] = nil
	}
	return buf
}

func (p *rowPool) Return(buf []any) {
	p.returns.Add(1)
	if buf == nil {
		return
	}
	p.pool.Put(buf[:0])
}

// Stats returns the current rent/return counters.
func (p *rowPool) Stats() Stats {
	return Stats{Rents: p.rents.Load(), Returns: p.returns.Load()}
}

// noPool allocates a fresh buffer per rent and discards returns. It keeps
// the pipeline code identical whether pooling is enabled or not.
type noPool struct{}

// None returns the passthrough pool used when pooling is disabled.
func None() Pool {
	return noPool{}
}

func (noPool) Rent(size int) []any {
	return make([]any, size)
}

func (noPool) Return([]any) {}
