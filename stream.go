package objstore

import "io"

// ObjectStream is a seekable, read/write view over one object's payload. It
// translates logical positions into the physical block offsets recorded in
// the object's ObjectBlock, growing or shrinking that block list on demand.
type ObjectStream struct {
	s     *Store
	block *ObjectBlock
	pos   int64
}

var (
	_ io.Reader = (*ObjectStream)(nil)
	_ io.Writer = (*ObjectStream)(nil)
	_ io.Seeker = (*ObjectStream)(nil)
	_ io.Closer = (*ObjectStream)(nil)
)

// openStream binds a stream to oid. If the store is writable and oid is
// absent, an empty ObjectBlock is created and inserted; otherwise the
// existing block is used. Caller must hold s.mu.
func (s *Store) openStream(oid int64) (*ObjectStream, error) {
	block, ok := s.index.Get(oid)
	if !ok {
		if s.readOnly {
			return nil, ErrNotFound
		}
		block = &ObjectBlock{OID: oid}
		if err := s.index.Insert(oid, block); err != nil {
			return nil, err
		}
		if oid > s.lastOID {
			s.lastOID = oid
		}
	}
	return &ObjectStream{s: s, block: block}, nil
}

// mapPos translates a logical position to a physical file offset. The
// caller must ensure p/blockSize is within range of o.block.Blocks.
func (o *ObjectStream) mapPos(p int64) int64 {
	bs := o.s.blockSize
	return o.block.Blocks[p/bs] + p%bs
}

// Read implements io.Reader.
func (o *ObjectStream) Read(p []byte) (int, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	bs := o.s.blockSize
	remaining := int64(o.block.CountBytes) - o.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	count := int64(len(p))
	if count > remaining {
		count = remaining
	}
	if count <= 0 {
		return 0, io.EOF
	}
	if o.pos/bs >= int64(len(o.block.Blocks)) {
		return 0, io.EOF
	}

	read := int64(0)
	for read < count {
		cur := o.pos + read
		blockOff := cur % bs
		chunk := bs - blockOff
		if chunk > count-read {
			chunk = count - read
		}
		if err := o.s.file.ReadAt(o.mapPos(cur), p[read:read+chunk]); err != nil {
			return int(read), err
		}
		read += chunk
	}

	o.pos += read
	return int(read), nil
}

// Write implements io.Writer. It extends the object (allocating new blocks)
// when the write runs past the current block list.
func (o *ObjectStream) Write(p []byte) (int, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	if o.s.readOnly {
		return 0, ErrReadOnly
	}

	bs := o.s.blockSize
	count := int64(len(p))
	if count == 0 {
		return 0, nil
	}

	endBlockIdx := (o.pos + count - 1) / bs
	if endBlockIdx >= int64(len(o.block.Blocks)) {
		if err := o.setLen(o.pos + count); err != nil {
			return 0, err
		}
	}

	written := int64(0)
	for written < count {
		cur := o.pos + written
		blockOff := cur % bs
		chunk := bs - blockOff
		if chunk > count-written {
			chunk = count - written
		}
		if err := o.s.file.WriteAt(o.mapPos(cur), p[written:written+chunk]); err != nil {
			return int(written), err
		}
		written += chunk
	}

	o.pos += written
	if o.pos > int64(o.block.CountBytes) {
		o.block.CountBytes = int32(o.pos)
	}
	return int(written), nil
}

// Seek implements io.Seeker. SeekEnd subtracts offset from the current
// size rather than adding it: a positive offset seeks further back from
// the end than io.Seeker's usual convention. This is surprising to callers
// used to os.File.Seek and is intentional.
func (o *ObjectStream) Seek(offset int64, whence int) (int64, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = o.pos + offset
	case io.SeekEnd:
		target = int64(o.block.CountBytes) - offset
	default:
		return 0, ErrInvalidWhence
	}

	if target < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if target > int64(o.block.CountBytes) {
		target = int64(o.block.CountBytes)
	}
	o.pos = target
	return o.pos, nil
}

// Size returns the object's current payload length.
func (o *ObjectStream) Size() int64 {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return int64(o.block.CountBytes)
}

// SetLen resizes the object to exactly n bytes, freeing trailing blocks
// when shrinking and allocating new ones (via the store's bounded
// allocator) when growing.
func (o *ObjectStream) SetLen(n int64) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return o.setLen(n)
}

func (o *ObjectStream) setLen(n int64) error {
	if o.s.readOnly {
		return ErrReadOnly
	}
	bs := o.s.blockSize
	desired := int(ceilDiv(n, bs))
	current := len(o.block.Blocks)

	if desired < current {
		freed := o.block.Blocks[desired:]
		o.s.freeSpace.InsertMany(append([]int64(nil), freed...))
		o.block.Blocks = o.block.Blocks[:desired]
	} else if desired > current {
		after := int64(-1)
		if current > 0 {
			after = o.block.Blocks[current-1]
		}
		newBlocks, err := o.s.alloc.findNewPosAfter(desired-current, after)
		if err != nil {
			return err
		}
		o.block.Blocks = append(o.block.Blocks, newBlocks...)
	}

	o.block.CountBytes = int32(n)
	return nil
}

// Flush flushes the backing file. Closing or flushing a stream has no
// effect on the ObjectIndex or FreeSpace in memory; those are only
// persisted to disk by the store's Close/IndexCodec.
func (o *ObjectStream) Flush() error {
	return o.s.file.Flush()
}

// Close flushes the backing file. It does not invalidate the stream's
// in-memory ObjectBlock, which remains part of the store's index.
func (o *ObjectStream) Close() error {
	return o.Flush()
}
