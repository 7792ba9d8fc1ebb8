package objstore

import "os"

// blockFile is the positioned-I/O surface every other component in this
// package addresses the backing file through. All offsets are absolute
// bytes; callers are responsible for aligning them to the store's block
// size where the format requires it.
type blockFile interface {
	// Len returns the current file length in bytes.
	Len() int64
	// SetLen truncates or grows the file to exactly n bytes.
	SetLen(n int64) error
	// ReadAt reads len(buf) bytes starting at offset.
	ReadAt(offset int64, buf []byte) error
	// WriteAt writes buf starting at offset, growing the file if needed.
	WriteAt(offset int64, buf []byte) error
	// Flush pushes any buffered data to stable storage.
	Flush() error
	// Close releases the underlying handle.
	Close() error
}

// osBlockFile is a blockFile backed by a real *os.File.
type osBlockFile struct {
	f *os.File
}

// openOSBlockFile opens path for positioned read/write access. If readOnly
// is false and the file does not exist, it is created.
func openOSBlockFile(path string, readOnly bool) (*osBlockFile, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	} else {
		flag |= os.O_CREATE
	}

	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	return &osBlockFile{f: f}, nil
}

func (b *osBlockFile) Len() int64 {
	fi, err := b.f.Stat()
	if err != nil {
		return 0
	}
	return fi.Size()
}

func (b *osBlockFile) SetLen(n int64) error {
	return b.f.Truncate(n)
}

func (b *osBlockFile) ReadAt(offset int64, buf []byte) error {
	_, err := b.f.ReadAt(buf, offset)
	return err
}

func (b *osBlockFile) WriteAt(offset int64, buf []byte) error {
	_, err := b.f.WriteAt(buf, offset)
	return err
}

func (b *osBlockFile) Flush() error {
	return b.f.Sync()
}

func (b *osBlockFile) Close() error {
	return b.f.Close()
}
