package objstore

import (
	"fmt"
	"log/slog"
	"sync"
)

// DefaultBlockSize is the fixed block size used by stores opened without
// WithBlockSize.
const DefaultBlockSize = 256

// RootOID is the well-known OID applications are expected to build their
// object graph from. OID 0 is reserved for the index itself.
const RootOID = 1

// SaveChangesFunc is invoked once at the start of Close, before the OID-0
// index block is freed and rewritten. Handlers may call Write, Delete or
// Reserve on the Store; doing so will not re-trigger the callback.
type SaveChangesFunc func(s *Store) error

// Store is a single-file, self-describing object store: it maps int64 OIDs
// to arbitrary-length byte payloads, persisting both the payloads and the
// index that locates them inside one fixed-block file. Store is mutable end
// to end, so every operation that touches shared state takes mu.
type Store struct {
	mu sync.Mutex

	file      blockFile
	blockSize int64
	readOnly  bool
	closed    bool

	index     *objectIndex
	freeSpace *freeSpace
	alloc     *allocator
	lastOID   int64

	log           *slog.Logger
	saveChanges   SaveChangesFunc
	inSaveChanges bool
}

// Open opens path as an object store, creating it if absent unless
// WithReadOnly is given. The returned Store owns the backing file for its
// lifetime; callers must call Close to persist the index and compact the
// file.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		blockSize: DefaultBlockSize,
		index:     newObjectIndex(),
		freeSpace: &freeSpace{},
		log:       slog.Default(),
	}
	s.alloc = &allocator{s: s}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	f, err := openOSBlockFile(path, s.readOnly)
	if err != nil {
		return nil, fmt.Errorf("objstore: open %s: %w", path, err)
	}
	s.file = f

	if err := s.readOIDs(); err != nil {
		f.Close()
		return nil, fmt.Errorf("objstore: read index: %w", err)
	}

	return s, nil
}

// IsEmpty reports whether the backing file has zero length.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Len() == 0
}

// Contains reports whether oid has a live object in the store.
func (s *Store) Contains(oid int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Contains(oid)
}

// OIDs returns every live OID in ascending order, excluding the reserved
// index OID 0.
func (s *Store) OIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int64, 0, s.index.Len())
	s.index.IterAscendingByOID(func(oid int64, _ *ObjectBlock) bool {
		if oid != 0 {
			out = append(out, oid)
		}
		return true
	})
	return out
}

// Read returns the payload last written under oid. The second return value
// is false if oid is absent.
func (s *Store) Read(oid int64) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block, ok := s.index.Get(oid)
	if !ok {
		return nil, false, nil
	}

	buf := make([]byte, block.CountBytes)
	for i, off := range block.Blocks {
		start := int64(i) * s.blockSize
		n := s.blockSize
		if remaining := int64(block.CountBytes) - start; remaining < n {
			n = remaining
		}
		if err := s.file.ReadAt(off, buf[start:start+n]); err != nil {
			return nil, false, fmt.Errorf("objstore: read oid %d: %w", oid, err)
		}
	}
	return buf, true, nil
}

// Write stores data under oid, replacing any prior payload. Raises the
// store's OID watermark to at least oid.
func (s *Store) Write(oid int64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readOnly {
		return ErrReadOnly
	}
	if oid == 0 {
		return ErrReservedOID
	}

	if _, _, err := s.delete(oid); err != nil {
		return err
	}

	count := int(ceilDiv(int64(len(data)), s.blockSize))
	var blocks []int64
	if count > 0 {
		var err error
		blocks, err = s.alloc.findNewPos(count)
		if err != nil {
			return err
		}
	}

	for i, off := range blocks {
		start := i * int(s.blockSize)
		end := start + int(s.blockSize)
		if end > len(data) {
			end = len(data)
		}
		if err := s.file.WriteAt(off, data[start:end]); err != nil {
			return fmt.Errorf("objstore: write oid %d: %w", oid, err)
		}
	}

	if err := s.index.Insert(oid, &ObjectBlock{OID: oid, CountBytes: int32(len(data)), Blocks: blocks}); err != nil {
		return err
	}
	if oid > s.lastOID {
		s.lastOID = oid
	}
	return nil
}

// Delete removes oid and returns its ObjectBlock, releasing its blocks to
// FreeSpace. The second return value is false if oid was absent, in which
// case Delete is a no-op.
func (s *Store) Delete(oid int64) (ObjectBlock, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(oid)
}

func (s *Store) delete(oid int64) (ObjectBlock, bool, error) {
	if s.readOnly {
		return ObjectBlock{}, false, ErrReadOnly
	}
	if oid == 0 {
		return ObjectBlock{}, false, ErrReservedOID
	}
	old, ok := s.index.Remove(oid)
	if !ok {
		return ObjectBlock{}, false, nil
	}
	s.freeSpace.InsertMany(old.Blocks)
	return *old, true, nil
}

// DeleteBlocks releases offsets back to FreeSpace directly, idempotently.
// Intended for collaborators that already hold a set of block offsets to
// discard.
func (s *Store) DeleteBlocks(offsets []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freeSpace.InsertMany(offsets)
}

// Reserve claims oid with an empty object (no payload) and raises the OID
// watermark to at least oid. Used to claim RootOID, or any other
// well-known OID, before first use.
func (s *Store) Reserve(oid int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return ErrReadOnly
	}
	return s.alloc.reserve(oid)
}

// NewOID allocates and returns a fresh OID, advancing the store's watermark.
func (s *Store) NewOID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return 0, ErrReadOnly
	}
	return s.alloc.newOID()
}

// OpenStream returns a seekable ObjectStream bound to oid. If the store is
// writable and oid is absent, an empty object is created for it.
func (s *Store) OpenStream(oid int64) (*ObjectStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openStream(oid)
}

// Close persists the index and compacts the backing file, then releases
// the file handle. The Store must not be used afterward.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.closed = true

	if !s.readOnly {
		if err := s.saveOIDs(); err != nil {
			s.file.Close()
			return fmt.Errorf("objstore: save index: %w", err)
		}
		if err := s.file.Flush(); err != nil {
			s.file.Close()
			return fmt.Errorf("objstore: flush: %w", err)
		}
	}
	return s.file.Close()
}
