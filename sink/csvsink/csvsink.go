// Package csvsink writes materialized items as CSV rows. One column per
// exported struct field, headers from field names or `db` tags.
package csvsink

import (
	"context"
	"encoding/csv"
	"io"
	"reflect"

	"github.com/pkg/errors"

	"github.com/go-row-stream/rowstream/cursor"
)

type settings struct {
	customMapper     map[reflect.Type]func(any, cursor.Metadata) string
	preProcessorFunc func(row []string) ([]string, bool)
	delimiter        rune
	useCRLF          bool
	writeHeader      bool
	customHeader     []string
	nullValue        string
	limit            int
	driver           string
	columns          []cursor.Column
}

type Option func(*settings)

// Sink encodes items of type T to CSV. It implements sink.Sink[T].
type Sink[T any] struct {
	settings
	w          *csv.Writer
	fields     []field
	headerDone bool
	wrote      int
}

type field struct {
	name  string
	index int
}

// New creates a CSV sink writing to w. T's exported fields become the
// columns, in declaration order; a `db` tag overrides the header name and
// `db:"-"` skips the field. A non-struct T is written as a single column.
func New[T any](w io.Writer, opts ...Option) *Sink[T] {
	s := &Sink[T]{
		settings: settings{
			customMapper: make(map[reflect.Type]func(any, cursor.Metadata) string),
			delimiter:    ',',
			writeHeader:  true,
			limit:        -1,
		},
	}
	for _, opt := range opts {
		opt(&s.settings)
	}
	s.w = csv.NewWriter(w)
	if s.delimiter != 0 {
		s.w.Comma = s.delimiter
	}
	s.w.UseCRLF = s.useCRLF

	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Kind() == reflect.Struct {
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if sf.PkgPath != "" {
				continue
			}
			name := sf.Tag.Get("db")
			if name == "-" {
				continue
			}
			if name == "" {
				name = sf.Name
			}
			s.fields = append(s.fields, field{name: name, index: i})
		}
	}
	return s
}

// WithCustomType registers a custom string conversion for values of type T.
// The metadata carries the cell's provenance when WithSource was given;
// without it, Column is nil and Driver empty.
func WithCustomType[T any](fn func(v T, metadata cursor.Metadata) string) Option {
	return func(s *settings) {
		var zero T
		typ := reflect.TypeOf(zero)
		if s.customMapper == nil {
			s.customMapper = make(map[reflect.Type]func(any, cursor.Metadata) string)
		}
		s.customMapper[typ] = func(v any, metadata cursor.Metadata) string {
			return fn(v.(T), metadata)
		}
	}
}

// WithSource attaches the provenance of the rows feeding the sink, so custom
// conversions see the driver name and per-cell column metadata. columns must
// be in the same order as the sink's output columns.
func WithSource(driver string, columns []cursor.Column) Option {
	return func(s *settings) {
		s.driver = driver
		s.columns = columns
	}
}

func WithPreProcessorFunc(fn func(row []string) ([]string, bool)) Option {
	return func(s *settings) {
		s.preProcessorFunc = fn
	}
}

func WithCustomDelimiter(delimiter rune) Option {
	return func(s *settings) {
		s.delimiter = delimiter
	}
}

func WithCRLF(useCRLF bool) Option {
	return func(s *settings) {
		s.useCRLF = useCRLF
	}
}

func WithHeader(writeHeader bool) Option {
	return func(s *settings) {
		s.writeHeader = writeHeader
	}
}

func WithCustomHeader(customHeader []string) Option {
	return func(s *settings) {
		s.customHeader = customHeader
	}
}

func WithCustomNULL(nullValue string) Option {
	return func(s *settings) {
		s.nullValue = nullValue
	}
}

// WithLimit caps the number of rows written. Negative means unlimited.
func WithLimit(limit int) Option {
	return func(s *settings) {
		s.limit = limit
	}
}

func (s *Sink[T]) Write(_ context.Context, item T) error {
	if err := s.writeHeaderOnce(); err != nil {
		return err
	}
	if s.limit >= 0 && s.wrote >= s.limit {
		return nil
	}
	row := s.record(item)
	writeRow := true
	if s.preProcessorFunc != nil {
		row, writeRow = s.preProcessorFunc(row)
	}
	if !writeRow {
		return nil
	}
	if err := s.w.Write(row); err != nil {
		return errors.Wrap(err, "csvsink: writing row")
	}
	s.wrote++
	return nil
}

// Complete flushes buffered rows. An operation that delivered zero items
// still gets its header.
func (s *Sink[T]) Complete(int) {
	_ = s.writeHeaderOnce()
	s.w.Flush()
}

// Fault flushes rows already written; partial output stays delivered.
func (s *Sink[T]) Fault(error) {
	s.w.Flush()
}

func (s *Sink[T]) writeHeaderOnce() error {
	if s.headerDone || !s.writeHeader {
		s.headerDone = true
		return nil
	}
	s.headerDone = true
	header := s.headerNames()
	if s.customHeader != nil {
		if len(s.customHeader) != len(header) {
			return errors.New("csvsink: invalid header length")
		}
		header = s.customHeader
	}
	if err := s.w.Write(header); err != nil {
		return errors.Wrap(err, "csvsink: writing header")
	}
	return nil
}

func (s *Sink[T]) headerNames() []string {
	if len(s.fields) == 0 {
		return []string{"value"}
	}
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	return names
}

func (s *Sink[T]) record(item T) []string {
	if len(s.fields) == 0 {
		return []string{s.toString(item, s.cellMetadata(0))}
	}
	rv := reflect.ValueOf(item)
	row := make([]string, len(s.fields))
	for i, f := range s.fields {
		row[i] = s.toString(rv.Field(f.index).Interface(), s.cellMetadata(i))
	}
	return row
}

func (s *Sink[T]) cellMetadata(i int) cursor.Metadata {
	md := cursor.Metadata{RowID: s.wrote, Driver: s.driver}
	if i < len(s.columns) {
		md.Column = s.columns[i]
	}
	return md
}
