package objstore

import "sort"

// ObjectBlock locates one object's payload: its length in bytes and the
// ordered list of block offsets holding it.
type ObjectBlock struct {
	OID        int64
	CountBytes int32
	Blocks     []int64
}

// ceilDiv returns ceil(n / d), or 0 if n <= 0. Shared by the codec and
// allocator so block-count rounding only has one definition.
func ceilDiv(n, d int64) int64 {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// lastBlockOffset returns the largest offset in Blocks, or -1 if empty.
func (b ObjectBlock) lastBlockOffset() int64 {
	if len(b.Blocks) == 0 {
		return -1
	}
	max := b.Blocks[0]
	for _, o := range b.Blocks[1:] {
		if o > max {
			max = o
		}
	}
	return max
}

// objectIndex is the ordered oid -> ObjectBlock mapping. Backed by a Go map
// plus a sorted key slice kept in sync on insert/remove, so ascending
// iteration never needs a fresh sort on the hot path; only insert/remove pay
// for the ordering.
type objectIndex struct {
	byOID map[int64]*ObjectBlock
	order []int64 // ascending oids, kept in sync with byOID
}

func newObjectIndex() *objectIndex {
	return &objectIndex{byOID: make(map[int64]*ObjectBlock)}
}

func (idx *objectIndex) Contains(oid int64) bool {
	_, ok := idx.byOID[oid]
	return ok
}

func (idx *objectIndex) Get(oid int64) (*ObjectBlock, bool) {
	b, ok := idx.byOID[oid]
	return b, ok
}

// Insert adds block to the index. Returns ErrDuplicateOID if oid is already
// present.
func (idx *objectIndex) Insert(oid int64, block *ObjectBlock) error {
	if _, ok := idx.byOID[oid]; ok {
		return ErrDuplicateOID
	}
	idx.byOID[oid] = block
	i := sort.Search(len(idx.order), func(i int) bool { return idx.order[i] >= oid })
	idx.order = append(idx.order, 0)
	copy(idx.order[i+1:], idx.order[i:])
	idx.order[i] = oid
	return nil
}

// Remove deletes oid from the index, returning its ObjectBlock if present.
func (idx *objectIndex) Remove(oid int64) (*ObjectBlock, bool) {
	b, ok := idx.byOID[oid]
	if !ok {
		return nil, false
	}
	delete(idx.byOID, oid)
	i := sort.Search(len(idx.order), func(i int) bool { return idx.order[i] >= oid })
	if i < len(idx.order) && idx.order[i] == oid {
		idx.order = append(idx.order[:i], idx.order[i+1:]...)
	}
	return b, true
}

func (idx *objectIndex) Len() int {
	return len(idx.order)
}

// IterAscendingByOID calls fn for every entry in ascending OID order,
// stopping early if fn returns false.
func (idx *objectIndex) IterAscendingByOID(fn func(oid int64, block *ObjectBlock) bool) {
	for _, oid := range idx.order {
		if !fn(oid, idx.byOID[oid]) {
			return
		}
	}
}

// maxLastBlockOffset returns the largest block offset referenced by any
// entry in the index, or -1 if the index holds no payload blocks.
func (idx *objectIndex) maxLastBlockOffset() int64 {
	max := int64(-1)
	idx.IterAscendingByOID(func(_ int64, b *ObjectBlock) bool {
		if o := b.lastBlockOffset(); o > max {
			max = o
		}
		return true
	})
	return max
}
