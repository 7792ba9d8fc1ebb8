package objstore

import "encoding/binary"

// indexCodec serializes and deserializes the ObjectIndex and FreeSpace
// to/from the OID-0 chain stream. It is a one-shot helper: a fresh
// indexCodec is built for each SaveOIDs/ReadOIDs call and discarded.
//
// The chain is a sequence of fixed blockSize blocks; when a field would
// spill past the end of the current block, an 8-byte continuation pointer
// is written at the cursor and the cursor jumps to the next block in the
// chain, which need not be contiguous with the current one.
type indexCodec struct {
	s     *Store
	pos   int64
	chain []int64 // chain block offsets visited, in order, starting with 0
}

func newIndexCodec(s *Store) *indexCodec {
	return &indexCodec{s: s, pos: 0, chain: []int64{0}}
}

// ensureRoom makes room for a write of fieldSize bytes: if the remaining
// space in the current block can't hold the field plus a possible
// continuation pointer, it writes a continuation pointer at the cursor and
// jumps to a fresh block-aligned offset.
func (c *indexCodec) ensureRoom(fieldSize int64) error {
	bs := c.s.blockSize
	bytesLeft := bs - (c.pos % bs)
	if bytesLeft >= fieldSize+8 {
		return nil
	}

	var p int64
	if off, ok := c.s.freeSpace.PopFirst(); ok {
		p = off
	} else {
		l := c.s.file.Len()
		p = ceilDiv(l, bs) * bs
		if p < bs {
			p = bs
		}
		if err := c.s.file.SetLen(p + bs); err != nil {
			return err
		}
	}

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(p))
	if err := c.s.file.WriteAt(c.pos, buf); err != nil {
		return err
	}
	c.pos = p
	c.chain = append(c.chain, p)
	return nil
}

func (c *indexCodec) writeInt32(v int32) error {
	if err := c.ensureRoom(4); err != nil {
		return err
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	if err := c.s.file.WriteAt(c.pos, buf); err != nil {
		return err
	}
	c.pos += 4
	return nil
}

func (c *indexCodec) writeInt64(v int64) error {
	if err := c.ensureRoom(8); err != nil {
		return err
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	if err := c.s.file.WriteAt(c.pos, buf); err != nil {
		return err
	}
	c.pos += 8
	return nil
}

// readField returns the offset to read fieldSize bytes from, following and
// repairing continuation pointers as needed, and advances the cursor past
// the field.
func (c *indexCodec) readField(fieldSize int64) (int64, error) {
	bs := c.s.blockSize
	bytesLeft := bs - (c.pos % bs)
	if bytesLeft < fieldSize+8 {
		buf := make([]byte, 8)
		if err := c.s.file.ReadAt(c.pos, buf); err != nil {
			return 0, err
		}
		p := int64(binary.LittleEndian.Uint64(buf))

		fileLen := c.s.file.Len()
		prev := c.chain[len(c.chain)-1]
		if p < 0 || p > fileLen || p < prev {
			c.s.log.Warn("objstore: repairing out-of-range index chain pointer",
				"at", c.pos, "bad_pointer", p, "previous", prev)
			p = prev + bs
		}
		c.chain = append(c.chain, p)
		c.pos = p
	}
	field := c.pos
	c.pos += fieldSize
	return field, nil
}

func (c *indexCodec) readInt32() (int32, error) {
	off, err := c.readField(4)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 4)
	if err := c.s.file.ReadAt(off, buf); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf)), nil
}

func (c *indexCodec) readInt64() (int64, error) {
	off, err := c.readField(8)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 8)
	if err := c.s.file.ReadAt(off, buf); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf)), nil
}

// saveOIDs rebuilds and rewrites the OID-0 index chain: it frees the old
// chain, recomputes free space and file length from the live index, then
// serializes the index and free list into a fresh chain starting at
// offset 0.
func (s *Store) saveOIDs() error {
	// Step 1: fire the save-changes callback before freeing the old chain.
	// Close holds s.mu; it is released while the callback runs so the
	// handler can call Write, Delete or Reserve.
	if s.saveChanges != nil && !s.inSaveChanges {
		s.inSaveChanges = true
		s.mu.Unlock()
		err := s.saveChanges(s)
		s.mu.Lock()
		s.inSaveChanges = false
		if err != nil {
			return err
		}
	}

	// Step 2: delete the current OID-0 block, then specifically drop offset
	// 0 from FreeSpace rather than blindly popping its first entry, which
	// could remove an unrelated offset if 0 isn't the smallest free one.
	if old, ok := s.index.Remove(0); ok {
		s.freeSpace.InsertMany(old.Blocks)
	}
	if !s.freeSpace.Remove(0) {
		s.log.Warn("objstore: offset 0 was not free when rebuilding the index head")
	}

	// Step 3: compute last_data, trim stale free offsets, resize the file.
	lastData := s.index.maxLastBlockOffset()
	if lastData < 0 {
		lastData = 0
	}
	s.freeSpace.DropAtOrAfter(lastData + 1)
	newLen := ceilDiv(lastData+s.blockSize, s.blockSize) * s.blockSize
	if err := s.file.SetLen(newLen); err != nil {
		return err
	}

	// Step 4: repair — no live block may remain listed as free.
	s.index.IterAscendingByOID(func(_ int64, b *ObjectBlock) bool {
		for _, off := range b.Blocks {
			s.freeSpace.Remove(off)
		}
		return true
	})

	// Step 5: serialize.
	c := newIndexCodec(s)

	count := int32(0)
	s.index.IterAscendingByOID(func(oid int64, _ *ObjectBlock) bool {
		if oid != 0 {
			count++
		}
		return true
	})
	if err := c.writeInt32(count); err != nil {
		return err
	}

	var encErr error
	s.index.IterAscendingByOID(func(oid int64, b *ObjectBlock) bool {
		if oid == 0 {
			return true
		}
		if encErr = c.writeInt64(oid); encErr != nil {
			return false
		}
		if encErr = c.writeInt32(b.CountBytes); encErr != nil {
			return false
		}
		if encErr = c.writeInt32(int32(len(b.Blocks))); encErr != nil {
			return false
		}
		for _, off := range b.Blocks {
			if encErr = c.writeInt64(off); encErr != nil {
				return false
			}
		}
		return true
	})
	if encErr != nil {
		return encErr
	}

	freeSnapshot := append([]int64(nil), s.freeSpace.offsets...)
	if err := c.writeInt32(int32(len(freeSnapshot))); err != nil {
		return err
	}
	for _, off := range freeSnapshot {
		if err := c.writeInt64(off); err != nil {
			return err
		}
	}

	// Step 6: the chain blocks visited while writing become OID 0's blocks.
	head := &ObjectBlock{
		OID:        0,
		CountBytes: int32(int64(len(c.chain)) * s.blockSize),
		Blocks:     c.chain,
	}
	return s.index.Insert(0, head)
}

// readOIDs populates the index and free space from the file by walking the
// OID-0 chain from offset 0.
func (s *Store) readOIDs() error {
	if s.file.Len() == 0 {
		s.index.Insert(0, &ObjectBlock{OID: 0, CountBytes: int32(s.blockSize), Blocks: []int64{0}})
		return nil
	}

	aligned := ceilDiv(s.file.Len(), s.blockSize) * s.blockSize
	if aligned != s.file.Len() {
		if err := s.file.SetLen(aligned); err != nil {
			return err
		}
	}

	c := newIndexCodec(s)

	n, err := c.readInt32()
	if err != nil {
		return err
	}

	for i := int32(0); i < n; i++ {
		oid, err := c.readInt64()
		if err != nil {
			return err
		}
		countBytes, err := c.readInt32()
		if err != nil {
			return err
		}
		blockCount, err := c.readInt32()
		if err != nil {
			return err
		}
		blocks := make([]int64, blockCount)
		for j := int32(0); j < blockCount; j++ {
			off, err := c.readInt64()
			if err != nil {
				return err
			}
			blocks[j] = off
		}
		if err := s.index.Insert(oid, &ObjectBlock{OID: oid, CountBytes: countBytes, Blocks: blocks}); err != nil {
			return err
		}
		if oid > s.lastOID {
			s.lastOID = oid
		}
	}

	m, err := c.readInt32()
	if err != nil {
		return err
	}
	freeList := make([]int64, m)
	for i := int32(0); i < m; i++ {
		off, err := c.readInt64()
		if err != nil {
			return err
		}
		freeList[i] = off
	}
	s.freeSpace.InsertMany(freeList)

	if err := s.index.Insert(0, &ObjectBlock{
		OID:        0,
		CountBytes: int32(int64(len(c.chain)) * s.blockSize),
		Blocks:     c.chain,
	}); err != nil {
		return err
	}

	// Repair pass: no block referenced by a live object may also be listed
	// as free — covers both legitimate aliasing from a prior save and the
	// index chain's own blocks.
	s.index.IterAscendingByOID(func(_ int64, b *ObjectBlock) bool {
		for _, off := range b.Blocks {
			s.freeSpace.Remove(off)
		}
		return true
	})

	return nil
}
