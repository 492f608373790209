// This file provides an in-memory implementation of Cursor backed by a
// slice of rows. It is useful for tests or small in-memory data sources.
package cursor

import (
	"fmt"
	"io"
	"reflect"

	"github.com/pkg/errors"
)

// sliceCursor implements the Cursor interface over a slice of slices.
type sliceCursor struct {
	rows    [][]any  // the raw data: each inner slice is a row
	columns []Column // column metadata, inferred or caller-supplied
	lastRow []any    // the last read row, cached after Next()
	pos     int      // index of the current row
}

// FromData creates a Cursor from a 2D slice of data.
// Each inner slice is a row. Column metadata is inferred from the first row
// with names column_0, column_1, ...
func FromData(rows [][]any) Cursor {
	s := &sliceCursor{rows: rows}
	s.columns, _ = s.Columns()
	return s
}

// FromTable creates a Cursor with explicit column names over a 2D slice of
// data. Every row must have len(columns) values.
func FromTable(columns []string, rows [][]any) Cursor {
	s := &sliceCursor{rows: rows}
	for i, name := range columns {
		c := &memColumn{name: name, index: i}
		if len(rows) != 0 && i < len(rows[0]) && rows[0][i] != nil {
			c.goType = reflect.TypeOf(rows[0][i]).String()
		}
		s.columns = append(s.columns, c)
	}
	return s
}

// Driver identifies the data source as an in-memory slice.
func (s *sliceCursor) Driver() string {
	return "go-slice"
}

// Err always returns nil for sliceCursor since errors are reported immediately.
func (s *sliceCursor) Err() error {
	return nil
}

// Next prepares the next row for reading. Returns false when no more rows
// are available.
func (s *sliceCursor) Next() bool {
	if s.pos >= len(s.rows) {
		return false
	}
	s.lastRow = s.rows[s.pos]
	return true
}

// ScanRow copies the current row into dst.
// It must be called only after a successful call to Next().
func (s *sliceCursor) ScanRow(dst []any) error {
	if s.pos >= len(s.rows) {
		return io.EOF
	}
	if s.lastRow == nil {
		return errors.New("rowstream: scan called without calling Next")
	}
	if len(s.lastRow) != len(s.columns) {
		return fmt.Errorf("length of row %d != column count: %d != %d", s.pos+1, len(s.lastRow), len(s.columns))
	}
	copy(dst, s.lastRow)
	s.pos++
	return nil
}

// Columns returns the column metadata. When none was supplied it is
// inferred from the first row.
func (s *sliceCursor) Columns() ([]Column, error) {
	if s.columns != nil {
		return s.columns, nil
	}
	if len(s.rows) != 0 {
		for i, v := range s.rows[0] {
			c := &memColumn{
				index: i,
				name:  fmt.Sprintf("column_%d", i),
			}
			if v == nil {
				c.goType = "nil"
			} else {
				c.goType = reflect.TypeOf(v).String()
			}
			s.columns = append(s.columns, c)
		}
	}
	return s.columns, nil
}
