// Package jsonsink writes materialized items as a JSON array or as
// newline-delimited JSON.
package jsonsink

import (
	"context"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type settings struct {
	newlineDelimited bool
	limit            int
}

type Option func(*settings)

// WithNewlineDelimited switches output from one JSON array to one JSON
// document per line (NDJSON).
func WithNewlineDelimited(isNewlineDelimited bool) Option {
	return func(s *settings) {
		s.newlineDelimited = isNewlineDelimited
	}
}

// WithLimit caps the number of items written. Negative means unlimited.
func WithLimit(limit int) Option {
	return func(s *settings) {
		s.limit = limit
	}
}

// Sink encodes items of type T as JSON. It implements sink.Sink[T].
type Sink[T any] struct {
	settings
	w     io.Writer
	wrote int
}

// New creates a JSON sink writing to w.
func New[T any](w io.Writer, opts ...Option) *Sink[T] {
	s := &Sink[T]{
		settings: settings{limit: -1},
		w:        w,
	}
	for _, opt := range opts {
		opt(&s.settings)
	}
	return s
}

func (s *Sink[T]) Write(_ context.Context, item T) error {
	if s.limit >= 0 && s.wrote >= s.limit {
		return nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return errors.Wrap(err, "jsonsink: encoding item")
	}
	if s.newlineDelimited {
		if _, err := s.w.Write(append(data, '\n')); err != nil {
			return errors.Wrap(err, "jsonsink: writing item")
		}
		s.wrote++
		return nil
	}
	sep := []byte(",\n  ")
	if s.wrote == 0 {
		sep = []byte("[\n  ")
	}
	if _, err := s.w.Write(append(sep, data...)); err != nil {
		return errors.Wrap(err, "jsonsink: writing item")
	}
	s.wrote++
	return nil
}

// Complete closes the JSON array. Zero delivered items produce an empty
// array.
func (s *Sink[T]) Complete(int) {
	if s.newlineDelimited {
		return
	}
	if s.wrote == 0 {
		_, _ = s.w.Write([]byte("[]\n"))
		return
	}
	_, _ = s.w.Write([]byte("\n]\n"))
}

// Fault closes the array around whatever was already written so the output
// stays parseable.
func (s *Sink[T]) Fault(error) {
	if s.newlineDelimited || s.wrote == 0 {
		return
	}
	_, _ = s.w.Write([]byte("\n]\n"))
}
