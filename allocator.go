package objstore

import "math"

// allocator owns the monotonically-advancing OID counter and chooses block
// offsets for new allocations, consulting the store's freeSpace first and
// falling back to appending at end-of-file.
type allocator struct {
	s *Store
}

// newOID returns the next unused OID, advancing lastOID. If advancing would
// wrap past math.MaxInt64 it wraps to math.MinInt64. If the freshly produced
// candidate is 0 (reserved for the index), it scans the OID space for the
// first free slot.
func (a *allocator) newOID() (int64, error) {
	s := a.s
	if s.lastOID == math.MaxInt64 {
		s.lastOID = math.MinInt64
	} else {
		s.lastOID++
	}
	candidate := s.lastOID

	if candidate != 0 {
		return candidate, nil
	}

	return a.scanForFreeOID()
}

// scanForFreeOID is the fallback path used when the natural successor lands
// on the reserved index OID 0. It searches [0, MaxInt64) then
// [MinInt64, -1] for the first OID absent from the index.
func (a *allocator) scanForFreeOID() (int64, error) {
	idx := a.s.index

	for oid := int64(0); oid >= 0; oid++ {
		if !idx.Contains(oid) {
			return oid, nil
		}
		if oid == math.MaxInt64 {
			break
		}
	}
	for oid := int64(math.MinInt64); oid < 0; oid++ {
		if !idx.Contains(oid) {
			return oid, nil
		}
	}
	return 0, ErrCapacityExhausted
}

// reserve claims oid with an empty ObjectBlock (count 0, no blocks) and
// raises lastOID to at least oid.
func (a *allocator) reserve(oid int64) error {
	s := a.s
	if s.index.Contains(oid) {
		return ErrDuplicateOID
	}
	if err := s.index.Insert(oid, &ObjectBlock{OID: oid}); err != nil {
		return err
	}
	if oid > s.lastOID {
		s.lastOID = oid
	}
	return nil
}

// findNewPos chooses count block offsets for a fresh allocation: a single
// free block if count is 1 and one exists, otherwise a contiguous run of
// free blocks if one is long enough, otherwise the first count free
// offsets in ascending order, falling back to appending past end-of-file
// if there isn't enough free space at all. It mutates freeSpace and may
// grow the backing file.
func (a *allocator) findNewPos(count int) ([]int64, error) {
	s := a.s
	fs := s.freeSpace

	if count == 1 {
		if off, ok := fs.PopFirst(); ok {
			return []int64{off}, nil
		}
	}

	if count > fs.Len() {
		return a.appendAtEnd(count)
	}

	if run := a.findContiguousRun(count); run != nil {
		for _, o := range run {
			fs.Remove(o)
		}
		return run, nil
	}

	// No contiguous run long enough: fall back to the first count offsets in
	// ascending order. This forfeits locality but guarantees forward
	// progress.
	out := make([]int64, count)
	for i := 0; i < count; i++ {
		out[i] = fs.offsets[i]
	}
	fs.offsets = fs.offsets[count:]
	return out, nil
}

// findContiguousRun scans freeSpace (already ascending) for count entries
// that are exactly blockSize apart, returning the run or nil if none exists.
// It does not mutate freeSpace.
func (a *allocator) findContiguousRun(count int) []int64 {
	fs := a.s.freeSpace
	bs := a.s.blockSize

	for start := 0; start+count <= len(fs.offsets); start++ {
		ok := true
		for i := 1; i < count; i++ {
			if fs.offsets[start+i] != fs.offsets[start+i-1]+bs {
				ok = false
				break
			}
		}
		if ok {
			run := make([]int64, count)
			copy(run, fs.offsets[start:start+count])
			return run
		}
	}
	return nil
}

// appendAtEnd returns count offsets starting at the first block past the
// current end of file (or block 1 if the file is empty — block 0 is always
// reserved for the index), and discards any stale free-space entries at or
// beyond the old EOF.
func (a *allocator) appendAtEnd(count int) ([]int64, error) {
	s := a.s
	l := s.file.Len()
	end := ceilDiv(l, s.blockSize) * s.blockSize
	if end < s.blockSize {
		end = s.blockSize
	}

	out := make([]int64, count)
	for i := 0; i < count; i++ {
		out[i] = end + int64(i)*s.blockSize
	}

	s.freeSpace.DropAtOrAfter(l)

	newLen := out[count-1] + s.blockSize
	if newLen > l {
		if err := s.file.SetLen(newLen); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// findNewPosAfter is the bounded variant used by ObjectStream when extending
// an existing object: it prefers free offsets strictly greater than after
// before falling back to end-of-file appends.
func (a *allocator) findNewPosAfter(count int, after int64) ([]int64, error) {
	s := a.s
	candidates := s.freeSpace.AscendingAfter(after, count)
	for _, c := range candidates {
		s.freeSpace.Remove(c)
	}
	if len(candidates) == count {
		return candidates, nil
	}

	more, err := a.appendAtEnd(count - len(candidates))
	if err != nil {
		return nil, err
	}
	return append(candidates, more...), nil
}
