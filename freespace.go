package objstore

import "sort"

// freeSpace is an ordered set of block offsets known to be free, kept as a
// sorted slice searched with binary search. Neither FreeSpace nor
// ObjectIndex need more than ascending iteration and bounded deletion, so a
// sorted vector is preferred here over a generic tree type.
type freeSpace struct {
	offsets []int64 // ascending, unique
}

func (f *freeSpace) Len() int {
	return len(f.offsets)
}

// search returns the index at which offset is present, and whether it was
// found.
func (f *freeSpace) search(offset int64) (int, bool) {
	i := sort.Search(len(f.offsets), func(i int) bool { return f.offsets[i] >= offset })
	if i < len(f.offsets) && f.offsets[i] == offset {
		return i, true
	}
	return i, false
}

// Insert adds offset to the set. Idempotent.
func (f *freeSpace) Insert(offset int64) {
	i, found := f.search(offset)
	if found {
		return
	}
	f.offsets = append(f.offsets, 0)
	copy(f.offsets[i+1:], f.offsets[i:])
	f.offsets[i] = offset
}

// InsertMany adds every offset in offsets to the set.
func (f *freeSpace) InsertMany(offsets []int64) {
	for _, o := range offsets {
		f.Insert(o)
	}
}

// Remove deletes offset from the set if present. Reports whether it was
// present.
func (f *freeSpace) Remove(offset int64) bool {
	i, found := f.search(offset)
	if !found {
		return false
	}
	f.offsets = append(f.offsets[:i], f.offsets[i+1:]...)
	return true
}

// PopFirst removes and returns the smallest offset in the set. The second
// return value is false if the set is empty.
func (f *freeSpace) PopFirst() (int64, bool) {
	if len(f.offsets) == 0 {
		return 0, false
	}
	v := f.offsets[0]
	f.offsets = f.offsets[1:]
	return v, true
}

// AscendingAfter returns up to limit offsets strictly greater than after, in
// ascending order, without removing them. limit < 0 means no limit.
func (f *freeSpace) AscendingAfter(after int64, limit int) []int64 {
	i := sort.Search(len(f.offsets), func(i int) bool { return f.offsets[i] > after })
	var out []int64
	for ; i < len(f.offsets); i++ {
		if limit >= 0 && len(out) >= limit {
			break
		}
		out = append(out, f.offsets[i])
	}
	return out
}

// DropAtOrAfter removes every element >= threshold. Used when truncating the
// file to discard stale free offsets that now point past EOF.
func (f *freeSpace) DropAtOrAfter(threshold int64) {
	i := sort.Search(len(f.offsets), func(i int) bool { return f.offsets[i] >= threshold })
	f.offsets = f.offsets[:i]
}
