// Package blob implements a string-keyed blob store on top of an
// objstore.Store: it keeps a name -> OID directory persisted as an object
// in the core store, and applies compression to blobs above a size
// threshold.
package blob

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/KarpelesLab/objstore"
)

// DefaultDirOID is the OID the directory object is kept under when no
// WithDirOID option is given. RootOID (1) is left for the application's own
// use; the façade reserves the next one.
const DefaultDirOID = 2

// DefaultThreshold is the payload size, in bytes, at or above which Put compresses
// the blob. Below it the compression header would cost more than it saves.
const DefaultThreshold = 64

type entry struct {
	OID        int64
	Size       int64
	StoredSize int64
	Codec      CodecID
}

// Store is a name-keyed blob façade over an objstore.Store: it maintains a
// name -> OID directory object and compresses blobs above a size threshold.
type Store struct {
	mu        sync.Mutex
	db        *objstore.Store
	dirOID    int64
	threshold int64
	codec     CodecID
	dir       map[string]entry
}

// Option configures Open.
type Option func(*Store)

// WithDirOID overrides the OID the directory is stored under.
func WithDirOID(oid int64) Option {
	return func(s *Store) { s.dirOID = oid }
}

// WithThreshold overrides DefaultThreshold.
func WithThreshold(n int64) Option {
	return func(s *Store) { s.threshold = n }
}

// WithCodec selects the compression backend new Puts use above threshold.
// The default, when no codec option is given, is CodecFlate.
func WithCodec(id CodecID) Option {
	return func(s *Store) { s.codec = id }
}

// WithZstd selects CodecZstd for new Puts. The zstd backend is only
// registered when the module is built with -tags zstd; without that tag,
// Put fails with an "unknown codec" error the first time it needs to
// compress.
func WithZstd() Option {
	return WithCodec(CodecZstd)
}

// WithXZ selects CodecXZ for new Puts. The xz backend is only registered
// when the module is built with -tags xz; see WithZstd.
func WithXZ() Option {
	return WithCodec(CodecXZ)
}

// Open loads (or initializes) the directory object from db.
func Open(db *objstore.Store, opts ...Option) (*Store, error) {
	s := &Store{
		db:        db,
		dirOID:    DefaultDirOID,
		threshold: DefaultThreshold,
		codec:     CodecFlate,
		dir:       make(map[string]entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok, err := db.Read(s.dirOID)
	if err != nil {
		return nil, fmt.Errorf("blob: load directory: %w", err)
	}
	if ok && len(raw) > 0 {
		if err := s.decodeDir(raw); err != nil {
			return nil, fmt.Errorf("blob: decode directory: %w", err)
		}
	}
	if !ok {
		if err := db.Reserve(s.dirOID); err != nil && err != objstore.ErrReadOnly {
			return nil, fmt.Errorf("blob: reserve directory: %w", err)
		}
	}
	return s, nil
}

func (s *Store) decodeDir(raw []byte) error {
	r := bytes.NewReader(raw)
	n, err := readString(r) // length-prefixed magic/version marker
	if err != nil {
		return err
	}
	if n != "objstore-blob-v1" {
		return fmt.Errorf("blob: unrecognized directory format %q", n)
	}
	return s.decodeEntries(r)
}

func (s *Store) decodeEntries(r *bytes.Reader) error {
	for r.Len() > 0 {
		name, err := readString(r)
		if err != nil {
			return err
		}
		var buf [33]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return fmt.Errorf("blob: truncated directory entry for %q", name)
		}
		oid := beInt64(buf[0:8])
		size := beInt64(buf[8:16])
		stored := beInt64(buf[16:24])
		codec := CodecID(buf[24])
		s.dir[name] = entry{OID: oid, Size: size, StoredSize: stored, Codec: codec}
	}
	return nil
}

func beInt64(b []byte) int64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return int64(v)
}

func putBeInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 7; i >= 0; i-- {
		b[i] = byte(u)
		u >>= 8
	}
}

func (s *Store) encodeDir() []byte {
	var buf bytes.Buffer
	writeString(&buf, "objstore-blob-v1")

	names := make([]string, 0, len(s.dir))
	for name := range s.dir {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		e := s.dir[name]
		writeString(&buf, name)
		var rec [33]byte
		putBeInt64(rec[0:8], e.OID)
		putBeInt64(rec[8:16], e.Size)
		putBeInt64(rec[16:24], e.StoredSize)
		rec[24] = byte(e.Codec)
		buf.Write(rec[:])
	}
	return buf.Bytes()
}

func (s *Store) saveDir() error {
	return s.db.Write(s.dirOID, s.encodeDir())
}

// Put stores data under name, compressing it with the configured codec when
// it is at least threshold bytes. Replaces any prior blob of the same name.
func (s *Store) Put(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	codec := CodecID(CodecNone)
	payload := data
	if int64(len(data)) >= s.threshold {
		c, err := codecFor(s.codec)
		if err != nil {
			return err
		}
		compressed, err := c.Compress(data)
		if err != nil {
			return fmt.Errorf("blob: compress %q: %w", name, err)
		}
		if len(compressed) < len(data) {
			codec = s.codec
			payload = compressed
		}
	}

	old, existed := s.dir[name]
	oid := old.OID
	if !existed {
		var err error
		oid, err = s.db.NewOID()
		if err != nil {
			return err
		}
	}
	if err := s.db.Write(oid, payload); err != nil {
		return fmt.Errorf("blob: write %q: %w", name, err)
	}

	s.dir[name] = entry{OID: oid, Size: int64(len(data)), StoredSize: int64(len(payload)), Codec: codec}
	return s.saveDir()
}

// Get returns the payload stored under name.
func (s *Store) Get(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.dir[name]
	if !ok {
		return nil, objstore.ErrNotFound
	}
	raw, ok, err := s.db.Read(e.OID)
	if err != nil {
		return nil, fmt.Errorf("blob: read %q: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("blob: directory entry %q points at missing oid %d", name, e.OID)
	}
	c, err := codecFor(e.Codec)
	if err != nil {
		return nil, err
	}
	return c.Decompress(raw, int(e.Size))
}

// Delete removes name. It is a no-op if name is absent.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.dir[name]
	if !ok {
		return nil
	}
	if _, _, err := s.db.Delete(e.OID); err != nil {
		return fmt.Errorf("blob: delete %q: %w", name, err)
	}
	delete(s.dir, name)
	return s.saveDir()
}

// List returns every stored name in sorted order.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.dir))
	for name := range s.dir {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Stat reports a blob's uncompressed size and on-disk size without reading
// its payload.
func (s *Store) Stat(name string) (size int64, storedSize int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.dir[name]
	return e.Size, e.StoredSize, ok
}
