package objstore_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/KarpelesLab/objstore"
)

func openTemp(t *testing.T, opts ...objstore.Option) *objstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := objstore.Open(path, opts...)
	if err != nil {
		t.Fatalf("Open failed: %s", err)
	}
	return s
}

func TestFreshFileIsEmpty(t *testing.T) {
	s := openTemp(t)
	defer s.Close()

	if !s.IsEmpty() {
		t.Error("freshly created store should be empty")
	}
	if s.Contains(1) {
		t.Error("fresh store should not contain any OID")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := openTemp(t)
	defer s.Close()

	data := bytes.Repeat([]byte("hello world"), 50)
	if err := s.Write(42, data); err != nil {
		t.Fatalf("Write failed: %s", err)
	}

	got, ok, err := s.Read(42)
	if err != nil {
		t.Fatalf("Read failed: %s", err)
	}
	if !ok {
		t.Fatal("expected oid 42 to be present")
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

func TestWriteZeroIsReservedOID(t *testing.T) {
	s := openTemp(t)
	defer s.Close()

	if err := s.Write(0, []byte("x")); err != objstore.ErrReservedOID {
		t.Errorf("expected ErrReservedOID, got %v", err)
	}
}

func TestReopenPreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	s, err := objstore.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %s", err)
	}
	if err := s.Write(7, []byte("persisted payload")); err != nil {
		t.Fatalf("Write failed: %s", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %s", err)
	}

	s2, err := objstore.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %s", err)
	}
	defer s2.Close()

	got, ok, err := s2.Read(7)
	if err != nil {
		t.Fatalf("Read after reopen failed: %s", err)
	}
	if !ok {
		t.Fatal("expected oid 7 to survive reopen")
	}
	if string(got) != "persisted payload" {
		t.Errorf("got %q", got)
	}
}

func TestDeleteAbsentOIDIsNoop(t *testing.T) {
	s := openTemp(t)
	defer s.Close()

	_, ok, err := s.Delete(999)
	if err != nil {
		t.Fatalf("Delete of absent oid failed: %s", err)
	}
	if ok {
		t.Error("expected Delete of absent oid to report ok=false")
	}
}

func TestNewOIDAdvancesAndSkipsZero(t *testing.T) {
	s := openTemp(t)
	defer s.Close()

	seen := make(map[int64]bool)
	for i := 0; i < 10; i++ {
		oid, err := s.NewOID()
		if err != nil {
			t.Fatalf("NewOID failed: %s", err)
		}
		if oid == 0 {
			t.Error("NewOID must never return the reserved index OID 0")
		}
		if seen[oid] {
			t.Errorf("NewOID returned duplicate oid %d", oid)
		}
		seen[oid] = true
	}
}

func TestReserve(t *testing.T) {
	s := openTemp(t)
	defer s.Close()

	if err := s.Reserve(100); err != nil {
		t.Fatalf("Reserve failed: %s", err)
	}
	if !s.Contains(100) {
		t.Error("expected oid 100 to be present after Reserve")
	}
	if err := s.Reserve(100); err != objstore.ErrDuplicateOID {
		t.Errorf("expected ErrDuplicateOID on repeat Reserve, got %v", err)
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := objstore.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %s", err)
	}
	if err := s.Write(1, []byte("x")); err != nil {
		t.Fatalf("Write failed: %s", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %s", err)
	}

	ro, err := objstore.Open(path, objstore.WithReadOnly())
	if err != nil {
		t.Fatalf("read-only Open failed: %s", err)
	}
	defer ro.Close()

	if err := ro.Write(2, []byte("y")); err != objstore.ErrReadOnly {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestCloseTwiceFails(t *testing.T) {
	s := openTemp(t)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close failed: %s", err)
	}
	if err := s.Close(); err != objstore.ErrClosed {
		t.Errorf("expected ErrClosed on second Close, got %v", err)
	}
}

func TestManyObjectsIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := objstore.Open(path, objstore.WithBlockSize(64))
	if err != nil {
		t.Fatalf("Open failed: %s", err)
	}

	const count = 2000
	for i := int64(1); i <= count; i++ {
		if err := s.Write(i, []byte{byte(i), byte(i >> 8), byte(i >> 16)}); err != nil {
			t.Fatalf("Write %d failed: %s", i, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %s", err)
	}

	s2, err := objstore.Open(path, objstore.WithBlockSize(64))
	if err != nil {
		t.Fatalf("reopen failed: %s", err)
	}
	defer s2.Close()

	for i := int64(1); i <= count; i++ {
		data, ok, err := s2.Read(i)
		if err != nil {
			t.Fatalf("Read %d failed: %s", i, err)
		}
		if !ok {
			t.Fatalf("oid %d missing after reopen", i)
		}
		want := []byte{byte(i), byte(i >> 8), byte(i >> 16)}
		if !bytes.Equal(data, want) {
			t.Fatalf("oid %d: got %v want %v", i, data, want)
		}
	}
}

func TestSaveChangesCallback(t *testing.T) {
	called := false
	s := openTemp(t, objstore.WithSaveChanges(func(s *objstore.Store) error {
		called = true
		return s.Write(objstore.RootOID, []byte("root"))
	}))

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %s", err)
	}
	if !called {
		t.Error("expected save-changes callback to run during Close")
	}
}
