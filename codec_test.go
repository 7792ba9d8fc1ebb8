package objstore

import (
	"encoding/binary"
	"path/filepath"
	"testing"
)

// TestIndexChainsAcrossMultipleBlocks forces the OID-0 index to outgrow a
// single block by using a tiny block size with many objects, exercising the
// continuation-pointer chaining path in saveOIDs/readOIDs rather than just
// the single-block fast path.
func TestIndexChainsAcrossMultipleBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := Open(path, WithBlockSize(32))
	if err != nil {
		t.Fatalf("Open failed: %s", err)
	}

	const count = 50
	for i := int64(1); i <= count; i++ {
		if err := s.Write(i, []byte{byte(i)}); err != nil {
			t.Fatalf("Write %d failed: %s", i, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %s", err)
	}

	s2, err := Open(path, WithBlockSize(32))
	if err != nil {
		t.Fatalf("reopen failed: %s", err)
	}
	defer s2.Close()

	head, ok := s2.index.Get(0)
	if !ok {
		t.Fatal("expected oid 0 (index head) to be present after reopen")
	}
	if len(head.Blocks) < 2 {
		t.Fatalf("expected the index to span multiple chained blocks with this many objects, spans %d", len(head.Blocks))
	}

	for i := int64(1); i <= count; i++ {
		data, ok, err := s2.Read(i)
		if err != nil || !ok {
			t.Fatalf("Read %d failed: ok=%v err=%s", i, ok, err)
		}
		if len(data) != 1 || data[0] != byte(i) {
			t.Fatalf("oid %d: got %v", i, data)
		}
	}
}

func TestReadFieldRepairsOutOfRangeContinuationPointer(t *testing.T) {
	s := openInternalTemp(t, WithBlockSize(32))
	defer s.Close()

	if err := s.Write(1, []byte("x")); err != nil {
		t.Fatalf("Write failed: %s", err)
	}

	// Plant a deliberately bogus continuation pointer (far past EOF) at the
	// tail of the index's root block, where readField will look for one
	// once there isn't room left for an 8-byte field plus a pointer.
	bogus := make([]byte, 8)
	binary.LittleEndian.PutUint64(bogus, uint64(999999))
	writeAt := s.blockSize - 4
	if err := s.file.WriteAt(writeAt, bogus); err != nil {
		t.Fatalf("WriteAt failed: %s", err)
	}

	c := newIndexCodec(s)
	c.pos = writeAt
	off, err := c.readField(8)
	if err != nil {
		t.Fatalf("readField failed: %s", err)
	}
	if off != s.blockSize {
		t.Errorf("expected repaired pointer to land at %d (prev + blockSize), got %d", s.blockSize, off)
	}
}
