package cursor

import (
	"context"
	"reflect"
	"strings"

	"github.com/beltran/gohive"
)

type hiveCursor struct {
	cursor  *gohive.Cursor
	ctx     context.Context
	columns []Column
	ptrs    []any
}

// FromHiveCursor creates a Cursor around an executed gohive cursor.
func FromHiveCursor(cursor *gohive.Cursor, ctx context.Context) Cursor {
	return &hiveCursor{cursor: cursor, ctx: ctx}
}

func (h *hiveCursor) Next() bool {
	return h.cursor.HasMore(h.ctx)
}

func (h *hiveCursor) ScanRow(dst []any) error {
	if h.columns == nil {
		if _, err := h.Columns(); err != nil {
			return err
		}
	}
	if h.ptrs == nil {
		h.ptrs = make([]any, len(h.columns))
	}
	for i := range dst {
		h.ptrs[i] = &dst[i]
	}
	h.cursor.FetchOne(h.ctx, h.ptrs...)
	if h.cursor.Err != nil {
		return h.cursor.Err
	}
	return nil
}

func (h *hiveCursor) Columns() ([]Column, error) {
	if h.columns != nil {
		return h.columns, nil
	}
	cc := h.cursor.Description()
	for i, c := range cc {
		if len(c) == 0 {
			continue
		}
		col := hiveColumn{index: i}
		if len(c) == 1 {
			col.name = c[0]
		} else if len(c) >= 2 {
			col.name = c[0]
			col.hiveType = c[1]
		}
		// Hive qualifies names as "table.column"; keep the bare column.
		_, colName, ok := strings.Cut(col.name, ".")
		if ok {
			col.name = colName
		}
		col.hiveType = strings.TrimSuffix(col.hiveType, "_TYPE")
		h.columns = append(h.columns, &col)
	}
	return h.columns, nil
}

func (h *hiveCursor) Driver() string {
	return "gohive"
}

func (h *hiveCursor) Err() error {
	return h.cursor.Error()
}

type hiveColumn struct {
	name     string
	index    int
	hiveType string
}

func (c *hiveColumn) Name() string {
	return c.name
}

func (c *hiveColumn) Index() int {
	return c.index
}

func (c *hiveColumn) Length() (length int64, ok bool) {
	return 0, false
}

func (c *hiveColumn) DecimalSize() (precision, scale int64, ok bool) {
	return 0, 0, false
}

func (c *hiveColumn) ScanType() reflect.Type {
	return nil
}

func (c *hiveColumn) Nullable() (nullable, ok bool) {
	return false, false
}

func (c *hiveColumn) DatabaseTypeName() string {
	return c.hiveType
}
