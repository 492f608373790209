// Package rowstream streams tabular query results into caller-defined Go
// structs with bounded memory.
//
// A forward-only cursor (see the cursor subpackage) is drained by a
// dedicated stage and coupled through a bounded queue to a transform stage
// that materializes each row into a struct and delivers it to a sink (see
// the sink subpackage). Backpressure from the queue keeps a slow consumer
// from pulling the whole result set into memory, and pooled row buffers
// (see the pool subpackage) keep large scans from allocating per row.
//
// Basic use:
//
//	type Person struct {
//	    ID   int    `db:"id"`
//	    Name string `db:"name"`
//	}
//
//	rows, err := db.QueryContext(ctx, `SELECT id, name FROM people`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rows.Close()
//
//	people, err := rowstream.Collect[Person](ctx, cursor.FromSQL(rows, "pgx"))
//
// For concurrent delivery, pass a sink and let the pipeline push:
//
//	out := sink.NewChannel[Person](64)
//	go rowstream.Stream(ctx, cursor.FromSQL(rows, "pgx"), out)
//	for p := range out.Items() {
//	    handle(p)
//	}
//	if err := out.Err(); err != nil {
//	    log.Fatal(err)
//	}
//
// Field binding is case-insensitive on column names, honors `db` tags and
// can be overridden per field with WithAliases. Bindings are compiled once
// per (type, column set) and cached.
package rowstream
