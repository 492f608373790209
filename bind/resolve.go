package bind

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// MissingPolicy controls what happens when a requested name has no
// matching column in the result set.
type MissingPolicy int

const (
	// IgnoreMissing silently drops requested names without a match.
	IgnoreMissing MissingPolicy = iota
	// ErrorOnMissing fails with a single error aggregating every
	// unmatched name, so the caller gets a complete diagnostic in one pass.
	ErrorOnMissing
)

// Order controls the ordering of resolved columns.
type Order int

const (
	// OrderRequested preserves the caller's request order.
	OrderRequested Order = iota
	// OrderPhysical sorts ascending by ordinal, for sequential
	// single-pass access to the cursor.
	OrderPhysical
)

// Resolved pairs a column's stored name with its zero-based ordinal.
type Resolved struct {
	Name    string
	Ordinal int
}

// MissingColumnsError reports every requested name that matched no column.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "rowstream: no such columns: " + strings.Join(e.Missing, ", ")
}

// columnIndex maps uppercase column names to their ordinal. When the result
// set carries duplicate names, the first occurrence wins.
func columnIndex(columns []string) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		k := strings.ToUpper(c)
		if _, ok := idx[k]; !ok {
			idx[k] = i
		}
	}
	return idx
}

// Resolve matches requested names against the result set's column names,
// case-insensitively. The returned entries carry the stored casing of each
// column, not the caller's.
func Resolve(columns, requested []string, order Order, policy MissingPolicy) ([]Resolved, error) {
	if columns == nil {
		return nil, errors.New("rowstream: nil column list")
	}
	idx := columnIndex(columns)
	out := make([]Resolved, 0, len(requested))
	var missing []string
	for _, req := range requested {
		ord, ok := idx[strings.ToUpper(req)]
		if !ok {
			missing = append(missing, req)
			continue
		}
		out = append(out, Resolved{Name: columns[ord], Ordinal: ord})
	}
	if policy == ErrorOnMissing && len(missing) != 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}
	if order == OrderPhysical {
		sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	}
	return out, nil
}
