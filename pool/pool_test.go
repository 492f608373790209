package pool

import (
	"sync"
	"testing"
)

func TestRentReturnPairing(t *testing.T) {
	p := New()
	bufs := make([][]any, 0, 10)
	for i := 0; i < 10; i++ {
		bufs = append(bufs, p.Rent(4))
	}
	for _, b := range bufs {
		p.Return(b)
	}
	st := p.Stats()
	if st.Rents != 10 || st.Returns != 10 {
		t.Fatalf("want 10/10, got %d/%d", st.Rents, st.Returns)
	}
}

func TestRentSizes(t *testing.T) {
	p := New()
	b := p.Rent(3)
	if len(b) != 3 {
		t.Fatalf("want len 3, got %d", len(b))
	}
	b[0], b[1], b[2] = 1, 2, 3
	p.Return(b)

	// A recycled buffer comes back zeroed at the requested size.
	b = p.Rent(2)
	if len(b) != 2 {
		t.Fatalf("want len 2, got %d", len(b))
	}
	for i, v := range b {
		if v != nil {
			t.Fatalf("slot %d not cleared: %v", i, v)
		}
	}
	p.Return(b)

	b = p.Rent(8)
	if len(b) != 8 {
		t.Fatalf("want len 8, got %d", len(b))
	}
	p.Return(b)
}

func TestConcurrentRentReturn(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b := p.Rent(5)
				b[0] = i
				p.Return(b)
			}
		}()
	}
	wg.Wait()
	st := p.Stats()
	if st.Rents != st.Returns {
		t.Fatalf("pairing broken: %d rents, %d returns", st.Rents, st.Returns)
	}
	if st.Rents != 8*200 {
		t.Fatalf("want %d rents, got %d", 8*200, st.Rents)
	}
}

func TestNonePassthrough(t *testing.T) {
	p := None()
	a := p.Rent(2)
	b := p.Rent(2)
	if len(a) != 2 || len(b) != 2 {
		t.Fatal("want fresh buffers of requested size")
	}
	a[0] = "x"
	p.Return(a)
	c := p.Rent(2)
	if c[0] != nil {
		t.Fatal("passthrough pool must hand out fresh buffers")
	}
	p.Return(b)
	p.Return(c)
	p.Return(nil) // no-op
}
