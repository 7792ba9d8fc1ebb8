package objstore

import "testing"

func TestCeilDiv(t *testing.T) {
	cases := []struct{ n, d, want int64 }{
		{0, 8, 0},
		{-5, 8, 0},
		{1, 8, 1},
		{8, 8, 1},
		{9, 8, 2},
		{256, 256, 1},
		{257, 256, 2},
	}
	for _, c := range cases {
		if got := ceilDiv(c.n, c.d); got != c.want {
			t.Errorf("ceilDiv(%d, %d) = %d, want %d", c.n, c.d, got, c.want)
		}
	}
}

func TestObjectBlockLastBlockOffset(t *testing.T) {
	b := ObjectBlock{Blocks: nil}
	if off := b.lastBlockOffset(); off != -1 {
		t.Errorf("expected -1 for empty Blocks, got %d", off)
	}

	b.Blocks = []int64{256, 768, 512}
	if off := b.lastBlockOffset(); off != 768 {
		t.Errorf("expected 768, got %d", off)
	}
}

func TestObjectIndexInsertRemoveOrder(t *testing.T) {
	idx := newObjectIndex()
	for _, oid := range []int64{5, 1, 3, -2} {
		if err := idx.Insert(oid, &ObjectBlock{OID: oid}); err != nil {
			t.Fatalf("Insert(%d) failed: %s", oid, err)
		}
	}

	var order []int64
	idx.IterAscendingByOID(func(oid int64, _ *ObjectBlock) bool {
		order = append(order, oid)
		return true
	})
	want := []int64{-2, 1, 3, 5}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}

	if _, ok := idx.Remove(3); !ok {
		t.Fatal("expected Remove(3) to report found")
	}
	if idx.Contains(3) {
		t.Fatal("expected oid 3 to be gone")
	}
	if idx.Len() != 3 {
		t.Fatalf("expected 3 entries remaining, got %d", idx.Len())
	}
}

func TestObjectIndexMaxLastBlockOffset(t *testing.T) {
	idx := newObjectIndex()
	if off := idx.maxLastBlockOffset(); off != -1 {
		t.Errorf("expected -1 for empty index, got %d", off)
	}

	idx.Insert(1, &ObjectBlock{OID: 1, Blocks: []int64{256, 512}})
	idx.Insert(2, &ObjectBlock{OID: 2, Blocks: []int64{1024}})
	if off := idx.maxLastBlockOffset(); off != 1024 {
		t.Errorf("expected 1024, got %d", off)
	}
}

func TestObjectIndexIterationStopsEarly(t *testing.T) {
	idx := newObjectIndex()
	idx.Insert(1, &ObjectBlock{OID: 1})
	idx.Insert(2, &ObjectBlock{OID: 2})
	idx.Insert(3, &ObjectBlock{OID: 3})

	var visited int
	idx.IterAscendingByOID(func(oid int64, _ *ObjectBlock) bool {
		visited++
		return oid != 2
	})
	if visited != 2 {
		t.Errorf("expected iteration to stop after visiting 2 entries, visited %d", visited)
	}
}
