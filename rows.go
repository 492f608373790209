package rowstream

import (
	"context"

	"github.com/go-row-stream/rowstream/cursor"
	"github.com/go-row-stream/rowstream/sink"
)

// StreamRows delivers each row as a fresh []any in physical column order,
// with no struct binding. Useful for generic consumers (exporters, format
// writers) that work from column metadata instead of a compile-time shape.
func StreamRows(ctx context.Context, cur cursor.Cursor, snk sink.Sink[[]any], opts ...Option) (int, error) {
	s := newSettings(opts)
	return stream(ctx, cur, snk, s, func([]string) (materializer[[]any], error) {
		return func(row []any) ([]any, error) {
			out := make([]any, len(row))
			copy(out, row)
			return out, nil
		}, nil
	})
}

// StreamMaps delivers each row as a map keyed by column name. When the
// result set repeats a column name, the later ordinal wins.
func StreamMaps(ctx context.Context, cur cursor.Cursor, snk sink.Sink[map[string]any], opts ...Option) (int, error) {
	s := newSettings(opts)
	return stream(ctx, cur, snk, s, func(columns []string) (materializer[map[string]any], error) {
		return func(row []any) (map[string]any, error) {
			out := make(map[string]any, len(row))
			for i, name := range columns {
				out[name] = row[i]
			}
			return out, nil
		}, nil
	})
}
