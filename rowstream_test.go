package rowstream

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/go-row-stream/rowstream/bind"
	"github.com/go-row-stream/rowstream/cursor"
	"github.com/go-row-stream/rowstream/pool"
	"github.com/go-row-stream/rowstream/sink"
)

type person struct {
	Id   int
	Name string
}

// fakeCursor is an instrumented in-memory cursor: it counts Next calls and
// can inject scan failures and a terminal iteration error.
type fakeCursor struct {
	cols      []string
	rows      [][]any
	pos       int
	scanned   bool
	scanErrAt int // 1-based row to fail scanning, 0 = never
	finalErr  error
	nextCalls atomic.Int32
}

func (f *fakeCursor) Next() bool {
	f.nextCalls.Add(1)
	if f.pos >= len(f.rows) {
		return false
	}
	f.scanned = false
	return true
}

func (f *fakeCursor) ScanRow(dst []any) error {
	if f.scanned {
		return errors.New("scan called twice for one row")
	}
	f.scanned = true
	f.pos++
	if f.scanErrAt != 0 && f.pos == f.scanErrAt {
		return errors.Errorf("scan failed at row %d", f.pos)
	}
	copy(dst, f.rows[f.pos-1])
	return nil
}

func (f *fakeCursor) Columns() ([]cursor.Column, error) {
	return cursor.FromTable(f.cols, f.rows).Columns()
}

func (f *fakeCursor) Driver() string { return "fake" }

func (f *fakeCursor) Err() error {
	if f.pos >= len(f.rows) {
		return f.finalErr
	}
	return nil
}

// blockingSink never accepts a write until its context is cancelled.
type blockingSink[T any] struct {
	writes atomic.Int32
}

func (b *blockingSink[T]) Write(ctx context.Context, _ T) error {
	b.writes.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingSink[T]) Complete(int) {}
func (b *blockingSink[T]) Fault(error)  {}

func peopleCursor() cursor.Cursor {
	return cursor.FromTable([]string{"Id", "Name"}, [][]any{
		{int64(1), "a"},
		{int64(2), "b"},
	})
}

func TestStreamDeliversAllInOrder(t *testing.T) {
	c := sink.NewCollector[person]()
	n, err := Stream[person](context.Background(), peopleCursor(), c)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 delivered, got %d", n)
	}
	want := []person{{Id: 1, Name: "a"}, {Id: 2, Name: "b"}}
	if !reflect.DeepEqual(c.Items(), want) {
		t.Fatalf("got %+v want %+v", c.Items(), want)
	}
	completes, faults := c.Signals()
	if completes != 1 || faults != 0 {
		t.Fatalf("want exactly one Complete, got %d/%d", completes, faults)
	}
	if c.Count() != 2 {
		t.Fatalf("want count 2, got %d", c.Count())
	}
}

func TestStreamWithAlias(t *testing.T) {
	type labeled struct {
		Id    int
		Label string
	}
	got, err := Collect[labeled](context.Background(), peopleCursor(),
		WithAliases(bind.FieldAlias{Field: "Label", Column: "Name"}))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []labeled{{Id: 1, Label: "a"}, {Id: 2, Label: "b"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestEachVisitsInOrder(t *testing.T) {
	var names []string
	n, err := Each(context.Background(), peopleCursor(), func(_ context.Context, p person) error {
		names = append(names, p.Name)
		return nil
	})
	if err != nil || n != 2 {
		t.Fatalf("each: n=%d err=%v", n, err)
	}
	if !reflect.DeepEqual(names, []string{"a", "b"}) {
		t.Fatalf("got %v", names)
	}
}

func TestEmptyCursor(t *testing.T) {
	p := pool.New()
	c := sink.NewCollector[person]()
	n, err := Stream[person](context.Background(),
		cursor.FromTable([]string{"Id", "Name"}, nil), c, WithPool(p))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if n != 0 || len(c.Items()) != 0 {
		t.Fatalf("want zero items, got n=%d items=%v", n, c.Items())
	}
	if completes, _ := c.Signals(); completes != 1 {
		t.Fatal("empty cursor must still complete")
	}
	if st := p.Stats(); st.Rents != 0 || st.Returns != 0 {
		t.Fatalf("empty cursor must never touch the pool: %+v", st)
	}
}

func TestZeroColumnProjection(t *testing.T) {
	type nothing struct{}
	got, err := Collect[nothing](context.Background(),
		cursor.FromTable([]string{"a"}, [][]any{{1}, {2}, {3}}))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("row existence lost: want 3 default items, got %d", len(got))
	}
}

func TestMaterializeFaultKeepsPartialAndPool(t *testing.T) {
	cur := cursor.FromTable([]string{"Id", "Name"}, [][]any{
		{int64(1), "a"},
		{"bad", "b"},
		{int64(3), "c"},
	})
	p := pool.New()
	c := sink.NewCollector[person]()
	n, err := Stream[person](context.Background(), cur, c, WithPool(p), WithQueueCapacity(8))
	if err == nil {
		t.Fatal("want materialization fault")
	}
	if n != 1 {
		t.Fatalf("want 1 delivered before fault, got %d", n)
	}
	if len(c.Items()) != 1 || c.Items()[0].Id != 1 {
		t.Fatalf("partial results wrong: %+v", c.Items())
	}
	completes, faults := c.Signals()
	if completes != 0 || faults != 1 {
		t.Fatalf("want exactly one Fault, got %d/%d", completes, faults)
	}
	if st := p.Stats(); st.Rents != st.Returns {
		t.Fatalf("pool invariant broken: %+v", st)
	}
}

func TestScanFault(t *testing.T) {
	cur := &fakeCursor{
		cols:      []string{"Id", "Name"},
		rows:      [][]any{{int64(1), "a"}, {int64(2), "b"}},
		scanErrAt: 2,
	}
	p := pool.New()
	c := sink.NewCollector[person]()
	_, err := Stream[person](context.Background(), cur, c, WithPool(p))
	if err == nil {
		t.Fatal("want scan fault")
	}
	if st := p.Stats(); st.Rents != st.Returns {
		t.Fatalf("pool invariant broken: %+v", st)
	}
}

func TestCursorErrSurfaced(t *testing.T) {
	cur := &fakeCursor{
		cols:     []string{"Id", "Name"},
		rows:     [][]any{{int64(1), "a"}},
		finalErr: errors.New("connection lost"),
	}
	c := sink.NewCollector[person]()
	_, err := Stream[person](context.Background(), cur, c)
	if err == nil || !errors.Is(errors.Cause(err), cur.finalErr) {
		t.Fatalf("want cursor error surfaced, got %v", err)
	}
	if _, faults := c.Signals(); faults != 1 {
		t.Fatal("cursor error must fault the sink")
	}
}

func TestPoolInvariantOnSuccess(t *testing.T) {
	rows := make([][]any, 500)
	for i := range rows {
		rows[i] = []any{int64(i), fmt.Sprintf("n%d", i)}
	}
	p := pool.New()
	got, err := Collect[person](context.Background(),
		cursor.FromTable([]string{"Id", "Name"}, rows),
		WithPool(p), WithQueueCapacity(16))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 500 {
		t.Fatalf("want 500, got %d", len(got))
	}
	for i, item := range got {
		if item.Id != i {
			t.Fatalf("order broken at %d: %+v", i, item)
		}
	}
	st := p.Stats()
	if st.Rents != 500 || st.Returns != 500 {
		t.Fatalf("want 500/500, got %+v", st)
	}
}

func TestBackpressureSuspendsDraining(t *testing.T) {
	rows := make([][]any, 100)
	for i := range rows {
		rows[i] = []any{int64(i), "x"}
	}
	cur := &fakeCursor{cols: []string{"Id", "Name"}, rows: rows}
	snk := &blockingSink[person]{}
	p := pool.New()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Stream[person](ctx, cur, snk, WithQueueCapacity(2), WithPool(p), WithCancelPolicy(CancelStop))
	}()

	time.Sleep(100 * time.Millisecond)
	// Queue capacity 2, one row held by the blocked consumer, one more row
	// read but stuck on enqueue: draining must be suspended well short of
	// the full result set.
	if calls := cur.nextCalls.Load(); calls > 5 {
		t.Fatalf("draining not suspended: %d Next calls", calls)
	}
	cancel()
	<-done
	if st := p.Stats(); st.Rents != st.Returns {
		t.Fatalf("pool invariant broken after cancel: %+v", st)
	}
}

func TestCancelFailPolicy(t *testing.T) {
	rows := make([][]any, 50)
	for i := range rows {
		rows[i] = []any{int64(i), "x"}
	}
	cur := &fakeCursor{cols: []string{"Id", "Name"}, rows: rows}
	snk := &blockingSink[person]{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := Stream[person](ctx, cur, snk, WithQueueCapacity(2))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestCancelFailDiscardsQueuedRows(t *testing.T) {
	rows := make([][]any, 20)
	for i := range rows {
		rows[i] = []any{int64(i), "x"}
	}
	cur := &fakeCursor{cols: []string{"Id", "Name"}, rows: rows}
	p := pool.New()

	// A sink that never looks at its context: cancellation must still stop
	// delivery at the next row boundary.
	ctx, cancel := context.WithCancel(context.Background())
	var cancelled atomic.Bool
	var afterCancel atomic.Int32
	snk := sink.NewFunc(func(_ context.Context, _ person) error {
		if cancelled.Load() {
			afterCancel.Add(1)
			return nil
		}
		cancelled.Store(true)
		cancel()
		// Let the draining stage fill the queue behind the cancellation.
		time.Sleep(30 * time.Millisecond)
		return nil
	})

	_, err := Stream[person](ctx, cur, snk, WithQueueCapacity(8), WithPool(p))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if n := afterCancel.Load(); n != 0 {
		t.Fatalf("%d queued rows delivered after cancellation", n)
	}
	if st := p.Stats(); st.Rents != st.Returns {
		t.Fatalf("pool invariant broken: %+v", st)
	}
}

func TestCancelStopPolicy(t *testing.T) {
	rows := make([][]any, 50)
	for i := range rows {
		rows[i] = []any{int64(i), "x"}
	}
	cur := &fakeCursor{cols: []string{"Id", "Name"}, rows: rows}
	snk := &blockingSink[person]{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	n, err := Stream[person](ctx, cur, snk, WithQueueCapacity(2), WithCancelPolicy(CancelStop))
	if err != nil {
		t.Fatalf("silent stop must not error, got %v", err)
	}
	if n >= len(rows) {
		t.Fatalf("stop did not interrupt: %d delivered", n)
	}
}

func TestValidation(t *testing.T) {
	if _, err := Stream[person](context.Background(), peopleCursor(), nil); err == nil {
		t.Fatal("want nil sink error")
	}
	c := sink.NewCollector[person]()
	if _, err := Stream[person](context.Background(), nil, c); err == nil {
		t.Fatal("want nil cursor error")
	}
	if _, faults := c.Signals(); faults != 1 {
		t.Fatal("nil cursor must fault the sink")
	}
}

func TestMissingPolicyFailsBeforeDraining(t *testing.T) {
	type withGhost struct {
		Id    int
		Ghost string
	}
	cur := &fakeCursor{cols: []string{"Id"}, rows: [][]any{{int64(1)}}}
	c := sink.NewCollector[withGhost]()
	_, err := Stream[withGhost](context.Background(), cur, c, WithMissingPolicy(bind.ErrorOnMissing))
	var missing *bind.MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("want missing columns error, got %v", err)
	}
	if cur.nextCalls.Load() != 0 {
		t.Fatal("binding errors must surface before any row is read")
	}
}

func TestStreamRows(t *testing.T) {
	c := sink.NewCollector[[]any]()
	n, err := StreamRows(context.Background(), peopleCursor(), c, WithPool(pool.New()))
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if c.Items()[1][0] != int64(2) || c.Items()[1][1] != "b" {
		t.Fatalf("got %v", c.Items())
	}
}

func TestStreamMaps(t *testing.T) {
	c := sink.NewCollector[map[string]any]()
	n, err := StreamMaps(context.Background(), peopleCursor(), c)
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if c.Items()[0]["Id"] != int64(1) || c.Items()[0]["Name"] != "a" {
		t.Fatalf("got %v", c.Items())
	}
}

func TestIterator(t *testing.T) {
	it := Iter[person](context.Background(), peopleCursor())
	defer it.Close()

	ctx := context.Background()
	var got []person
	for {
		p, ok, err := it.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, p)
	}
	want := []person{{Id: 1, Name: "a"}, {Id: 2, Name: "b"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestIteratorSurfacesFault(t *testing.T) {
	cur := cursor.FromTable([]string{"Id", "Name"}, [][]any{
		{int64(1), "a"},
		{"bad", "b"},
	})
	it := Iter[person](context.Background(), cur)
	defer it.Close()

	ctx := context.Background()
	seen := 0
	for {
		_, ok, err := it.Next(ctx)
		if !ok {
			if err == nil {
				t.Fatal("want fault surfaced at end of iteration")
			}
			break
		}
		seen++
	}
	if seen != 1 {
		t.Fatalf("want 1 item before fault, got %d", seen)
	}
}
