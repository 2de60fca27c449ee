package cache

import "testing"

func TestBoundedNeverExceedsLimit(t *testing.T) {
	b := NewBounded[int, int](16)
	for i := 0; i < 1000; i++ {
		b.Put(i, i*2)
		if b.Len() > b.Limit() {
			t.Fatalf("after %d inserts len=%d exceeds limit=%d", i+1, b.Len(), b.Limit())
		}
	}
}

func TestBoundedClearsEntirelyOnOverflow(t *testing.T) {
	b := NewBounded[int, string](3)
	b.Put(1, "a")
	b.Put(2, "b")
	b.Put(3, "c")
	// Fourth insert sweeps everything, then stores the new entry.
	b.Put(4, "d")
	if b.Len() != 1 {
		t.Fatalf("len after overflow = %d, want 1", b.Len())
	}
	if _, ok := b.Get(1); ok {
		t.Error("entry 1 survived the overflow sweep")
	}
	if v, ok := b.Get(4); !ok || v != "d" {
		t.Errorf("Get(4) = %q,%v; want d,true", v, ok)
	}
}

func TestBoundedOverwriteDoesNotSweep(t *testing.T) {
	b := NewBounded[string, int](2)
	b.Put("x", 1)
	b.Put("y", 2)
	b.Put("x", 3)
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}
	if v, _ := b.Get("y"); v != 2 {
		t.Errorf("overwrite of x evicted y")
	}
}

func TestBoundedGetWith(t *testing.T) {
	b := NewBounded[string, int](4)
	b.Put("x", 7)

	var got int
	if !b.GetWith("x", func(v int) { got = v }) {
		t.Fatal("GetWith missed a stored entry")
	}
	if got != 7 {
		t.Errorf("GetWith saw %d, want 7", got)
	}
	if b.GetWith("missing", func(int) { t.Error("fn ran on a miss") }) {
		t.Error("GetWith reported a hit for a missing key")
	}
}

func TestBoundedEvictCallback(t *testing.T) {
	evicted := map[int]bool{}
	b := NewBoundedWithEvict[int, int](2, func(k, _ int) { evicted[k] = true })
	b.Put(1, 10)
	b.Put(2, 20)
	b.Put(3, 30)
	if !evicted[1] || !evicted[2] {
		t.Errorf("evict callback missed entries: %v", evicted)
	}
	if evicted[3] {
		t.Error("fresh entry reported as evicted")
	}
	b.Clear()
	if !evicted[3] {
		t.Error("Clear did not invoke callback for remaining entry")
	}
}
