// Package cursor defines the forward-only row source abstraction consumed by
// the streaming pipeline, plus adapters for common backends.
// This file adapts database/sql result sets.
package cursor

import (
	"database/sql"

	"github.com/pkg/errors"
)

// sqlCursor wraps a *sql.Rows and implements the Cursor interface.
type sqlCursor struct {
	*sql.Rows

	driver  string
	columns []Column
	ptrs    []any
}

// FromSQL creates a Cursor around a *sql.Rows result set.
// The driver name is carried through for metadata and contextual information.
func FromSQL(rows *sql.Rows, driver string) Cursor {
	return &sqlCursor{Rows: rows, driver: driver}
}

// sqlColumn implements the Column interface using *sql.ColumnType
// provided by the standard database/sql package.
type sqlColumn struct {
	*sql.ColumnType
	index int
}

// Index returns the column's position in the result set.
func (c *sqlColumn) Index() int {
	return c.index
}

// Columns returns column metadata for the SQL result set.
func (s *sqlCursor) Columns() ([]Column, error) {
	if s.columns != nil {
		return s.columns, nil
	}
	cc, err := s.Rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, "rowstream: reading column types")
	}
	for i, c := range cc {
		s.columns = append(s.columns, &sqlColumn{
			ColumnType: c,
			index:      i,
		})
	}
	return s.columns, nil
}

// ScanRow copies the current row into dst using pointer indirection,
// one slot per column ordinal.
func (s *sqlCursor) ScanRow(dst []any) error {
	if s.columns == nil {
		if _, err := s.Columns(); err != nil {
			return err
		}
	}
	if len(dst) != len(s.columns) {
		return errors.Errorf("rowstream: scan destination has %d slots, result set has %d columns", len(dst), len(s.columns))
	}
	if s.ptrs == nil {
		s.ptrs = make([]any, len(s.columns))
	}
	for i := range dst {
		s.ptrs[i] = &dst[i]
	}
	return s.Rows.Scan(s.ptrs...)
}

// Driver returns the name of the SQL driver used.
func (s *sqlCursor) Driver() string {
	return s.driver
}
