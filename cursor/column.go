package cursor

import "reflect"

// Column describes one column of a result set.
type Column interface {
	Name() string
	Index() int
	Length() (length int64, ok bool)
	DecimalSize() (precision, scale int64, ok bool)
	ScanType() reflect.Type
	Nullable() (nullable, ok bool)
	DatabaseTypeName() string
}

// memColumn is the Column implementation used by in-memory cursors.
type memColumn struct {
	name   string
	index  int
	goType string
}

func (c *memColumn) Name() string {
	return c.name
}

func (c *memColumn) Index() int {
	return c.index
}

func (c *memColumn) Length() (length int64, ok bool) {
	return 0, false
}

func (c *memColumn) DecimalSize() (precision, scale int64, ok bool) {
	return 0, 0, false
}

func (c *memColumn) ScanType() reflect.Type {
	return nil
}

func (c *memColumn) Nullable() (nullable, ok bool) {
	return false, false
}

func (c *memColumn) DatabaseTypeName() string {
	return c.goType
}
