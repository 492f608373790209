package cursor

// Cursor is a forward-only, single-pass source of tabular rows.
//
// A Cursor is single-threaded by construction: exactly one goroutine may
// drive Next/ScanRow at a time, and a consumed row cannot be revisited.
// The streaming pipeline owns this discipline; adapters only need to
// translate their backend's iteration protocol.
type Cursor interface {
	// Next advances to the next row. Returns false at end-of-data.
	Next() bool
	// ScanRow copies the current row's values into dst by ordinal.
	// len(dst) must equal the column count.
	ScanRow(dst []any) error
	// Columns returns metadata for the active result set, in physical order.
	Columns() ([]Column, error)
	// Driver identifies the backing data source.
	Driver() string
	// Err returns the first error encountered while iterating.
	Err() error
}

// Metadata describes the provenance of a single cell. The CSV sink hands it
// to custom conversion hooks; Column and Driver are zero unless the sink was
// given its source.
type Metadata struct {
	RowID  int
	Driver string
	Column Column
}

// Names extracts the column names of cols in physical order.
func Names(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
	}
	return names
}
