// Package bind compiles reusable bindings from result-set columns to the
// fields of a target struct, and materializes row buffers through them.
//
// A binding is compiled once per (type, column set, alias list) and cached,
// so the per-row cost is a constructor call plus one precompiled setter
// invocation per bound field.
package bind

import (
	"hash/fnv"
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// FieldAlias overrides the effective column name for one struct field.
// Omit excludes the field from binding entirely.
type FieldAlias struct {
	Field  string
	Column string
	Omit   bool
}

// Binder owns the binding caches. Use the package-level functions unless you
// need isolated caches (tests, multiple schemas with clashing types).
type Binder struct {
	bindingCache sync.Map // key: bindingKey -> *compiled
	indexCache   sync.Map // key: reflect.Type -> *fieldIndex
}

func NewBinder() *Binder { return &Binder{} }

var (
	binder     *Binder
	binderOnce sync.Once
)

func defaultBinder() *Binder {
	binderOnce.Do(func() { binder = NewBinder() })
	return binder
}

// Binding is a compiled, immutable mapping from row ordinals to the fields
// of T. Safe for concurrent use across the stages of one operation.
type Binding[T any] struct {
	c *compiled
}

type bindingKey struct {
	rt    reflect.Type
	hash  uint64 // FNV-1a of uppercased columns + alias signature + policy
	ncols int
}

type compiled struct {
	steps []step
}

type step struct {
	ordinal int
	fpath   []int
	field   string // for error messages
	column  string
	set     setter
}

// For compiles a binding of T's fields against the given column names using
// the default binder's caches.
func For[T any](columns []string, aliases []FieldAlias, policy MissingPolicy) (*Binding[T], error) {
	return ForBinder[T](defaultBinder(), columns, aliases, policy)
}

// ForBinder is For with an explicit Binder.
func ForBinder[T any](b *Binder, columns []string, aliases []FieldAlias, policy MissingPolicy) (*Binding[T], error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	c, err := b.compile(rt, columns, aliases, policy)
	if err != nil {
		return nil, err
	}
	return &Binding[T]{c: c}, nil
}

// Fields reports how many fields the binding actually bound. Zero is valid:
// materializing still yields one default-valued T per row.
func (bd *Binding[T]) Fields() int {
	return len(bd.c.steps)
}

// Materialize constructs a new T and assigns each bound field from the row
// buffer value at its ordinal. A nil raw value translates to the field's
// zero value (or a nil pointer), except for sql.Scanner fields, which see
// the nil through Scan.
func (bd *Binding[T]) Materialize(row []any) (T, error) {
	var out T
	if len(bd.c.steps) == 0 {
		return out, nil
	}
	rv := reflect.ValueOf(&out).Elem()
	for i := range bd.c.steps {
		st := &bd.c.steps[i]
		if st.ordinal >= len(row) {
			var zero T
			return zero, errors.Errorf("rowstream: row has %d values, binding needs ordinal %d", len(row), st.ordinal)
		}
		fv := fieldByPathAlloc(rv, st.fpath)
		if err := st.set(fv, row[st.ordinal]); err != nil {
			var zero T
			return zero, errors.Wrapf(err, "rowstream: column %q into field %q", st.column, st.field)
		}
	}
	return out, nil
}

func (b *Binder) compile(rt reflect.Type, columns []string, aliases []FieldAlias, policy MissingPolicy) (*compiled, error) {
	if rt.Kind() != reflect.Struct {
		return nil, errors.Errorf("rowstream: cannot bind %s: target shape must be a struct", rt)
	}

	key := bindingKey{rt: rt, hash: hashSignature(columns, aliases, policy), ncols: len(columns)}
	if v, ok := b.bindingCache.Load(key); ok {
		return v.(*compiled), nil
	}

	fi := b.fieldIndex(rt)
	overrides := make(map[string]FieldAlias, len(aliases))
	for _, a := range aliases {
		overrides[a.Field] = a
	}

	// Effective column name per candidate field, after aliasing.
	candidates := make([]fieldInfo, 0, len(fi.fields))
	requested := make([]string, 0, len(fi.fields))
	for _, f := range fi.fields {
		col := f.column
		if a, ok := overrides[f.name]; ok {
			if a.Omit {
				continue
			}
			if a.Column != "" {
				col = a.Column
			}
		}
		candidates = append(candidates, f)
		requested = append(requested, col)
	}

	resolved, err := Resolve(columns, requested, OrderRequested, policy)
	if err != nil {
		return nil, err
	}

	// Resolve preserves request order and drops unmatched names, so the two
	// lists re-align with a single forward scan.
	c := &compiled{}
	j := 0
	for i, f := range candidates {
		if j >= len(resolved) || !strings.EqualFold(requested[i], resolved[j].Name) {
			continue
		}
		c.steps = append(c.steps, step{
			ordinal: resolved[j].Ordinal,
			fpath:   f.path,
			field:   f.name,
			column:  resolved[j].Name,
			set:     f.set,
		})
		j++
	}

	b.bindingCache.Store(key, c)
	return c, nil
}

func hashSignature(columns []string, aliases []FieldAlias, policy MissingPolicy) uint64 {
	h := fnv.New64a()
	for _, c := range columns {
		_, _ = h.Write([]byte(strings.ToUpper(c)))
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{1, byte(policy)})
	for _, a := range aliases {
		_, _ = h.Write([]byte(a.Field))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(a.Column))
		if a.Omit {
			_, _ = h.Write([]byte{2})
		}
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// ---------------- Field indexing & tags ----------------

// fieldIndex lists T's bindable fields in declaration order, each with a
// precompiled setter for its type.
type fieldIndex struct {
	fields []fieldInfo
}

type fieldInfo struct {
	name   string // Go field name
	column string // effective column name before aliasing: tag or field name
	path   []int
	set    setter
}

func (b *Binder) fieldIndex(rt reflect.Type) *fieldIndex {
	if v, ok := b.indexCache.Load(rt); ok {
		return v.(*fieldIndex)
	}
	fi := buildFieldIndex(rt)
	b.indexCache.Store(rt, fi)
	return fi
}

func buildFieldIndex(rt reflect.Type) *fieldIndex {
	idx := &fieldIndex{}
	seen := make(map[string]struct{})

	var walk func(t reflect.Type, base []int, forceInline bool)
	walk = func(t reflect.Type, base []int, forceInline bool) {
		t = derefPtr(t)
		if t.Kind() != reflect.Struct {
			return
		}
		n := t.NumField()
		for i := 0; i < n; i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous { // unexported, non-anonymous
				continue
			}
			tag := sf.Tag.Get("db")
			name, inline, omit := parseTag(tag)
			if omit {
				continue
			}
			ft := sf.Type
			path := append(append([]int(nil), base...), i)

			if inline || (sf.Anonymous && (forceInline || tag == "")) {
				if isStruct(ft) || (ft.Kind() == reflect.Ptr && isStruct(ft.Elem())) {
					walk(ft, path, inline)
					continue
				}
			}
			if name == "" {
				name = sf.Name
			}
			key := strings.ToUpper(sf.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			idx.fields = append(idx.fields, fieldInfo{
				name:   sf.Name,
				column: name,
				path:   path,
				set:    makeSetter(sf.Type),
			})
		}
	}
	walk(rt, nil, false)
	return idx
}

// parseTag supports: "-", "col", ",inline", "col,inline", "inline,col".
func parseTag(tag string) (name string, inline bool, omit bool) {
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return "", false, false
	}
	start := 0
	for i := 0; i <= len(tag); i++ {
		if i == len(tag) || tag[i] == ',' {
			part := tag[start:i]
			if part == "inline" {
				inline = true
			} else if part != "" && name == "" {
				name = part
			}
			start = i + 1
		}
	}
	return name, inline, false
}

// ---------------- reflect helpers ----------------

func isStruct(t reflect.Type) bool { return derefPtr(t).Kind() == reflect.Struct }

func derefPtr(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// fieldByPathAlloc walks fpath, allocating nil pointers so the final field
// is addressable.
func fieldByPathAlloc(root reflect.Value, fpath []int) reflect.Value {
	v := root
	for _, i := range fpath {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}
