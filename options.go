package rowstream

import (
	"github.com/rs/zerolog"

	"github.com/go-row-stream/rowstream/bind"
	"github.com/go-row-stream/rowstream/pool"
)

// CancelPolicy selects how a pipeline operation reacts to context
// cancellation, observed at row boundaries.
type CancelPolicy int

const (
	// CancelFail stops the operation and surfaces the context error as the
	// fault, discarding in-flight rows.
	CancelFail CancelPolicy = iota
	// CancelStop stops the operation cleanly: rows already delivered are
	// reported through Complete and no error is raised.
	CancelStop
)

// DefaultQueueCapacity is the bound on the row queue between the draining
// and transform stages when WithQueueCapacity is not given.
const DefaultQueueCapacity = 256

type settings struct {
	queueCap int
	pool     pool.Pool
	aliases  []bind.FieldAlias
	missing  bind.MissingPolicy
	cancel   CancelPolicy
	logger   zerolog.Logger
}

func newSettings(opts []Option) *settings {
	s := &settings{
		queueCap: DefaultQueueCapacity,
		pool:     pool.None(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures one pipeline operation.
type Option func(*settings)

// WithQueueCapacity bounds the intermediate row queue to n buffers. This is
// the backpressure point: the draining stage suspends while the queue is
// full. Values below 1 are coerced to 1 (capacity 0 would deadlock).
func WithQueueCapacity(n int) Option {
	return func(s *settings) {
		if n < 1 {
			n = 1
		}
		s.queueCap = n
	}
}

// WithPool makes the pipeline rent row buffers from p instead of allocating
// one per row. Every rented buffer is returned before the operation ends,
// on every exit path.
func WithPool(p pool.Pool) Option {
	return func(s *settings) {
		if p == nil {
			p = pool.None()
		}
		s.pool = p
	}
}

// WithAliases overrides the column bound to each named field. An Omit alias
// excludes the field.
func WithAliases(aliases ...bind.FieldAlias) Option {
	return func(s *settings) {
		s.aliases = aliases
	}
}

// WithMissingPolicy selects whether unresolved columns are dropped silently
// or reported, before draining begins, as one aggregated error.
func WithMissingPolicy(p bind.MissingPolicy) Option {
	return func(s *settings) {
		s.missing = p
	}
}

// WithCancelPolicy selects the cancellation behavior. The default is
// CancelFail.
func WithCancelPolicy(p CancelPolicy) Option {
	return func(s *settings) {
		s.cancel = p
	}
}

// WithLogger attaches a zerolog logger; operation start, completion and
// faults are logged at debug level. The default logger discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}
