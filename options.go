package objstore

import (
	"fmt"
	"log/slog"
)

// Option configures a Store at Open time.
type Option func(s *Store) error

// WithReadOnly opens the store without creating it if absent and rejects
// any mutating operation. The backing file must already exist.
func WithReadOnly() Option {
	return func(s *Store) error {
		s.readOnly = true
		return nil
	}
}

// WithLogger sets the logger used for recoverable anomalies (out-of-range
// continuation pointers, offset 0 missing from free space when the index
// head is rebuilt). The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) error {
		s.log = l
		return nil
	}
}

// WithSaveChanges registers a callback invoked exactly once at the start of
// Close, before the index's OID-0 block is freed and rewritten. The handler
// may call Write, Delete or Reserve on the store; doing so does not
// re-trigger the callback.
func WithSaveChanges(fn SaveChangesFunc) Option {
	return func(s *Store) error {
		s.saveChanges = fn
		return nil
	}
}

// WithBlockSize overrides the default block size. Intended for tests that
// need to exercise chaining behavior without allocating thousands of
// objects; production stores should use the default.
func WithBlockSize(n int64) Option {
	return func(s *Store) error {
		if n <= 16 || n%8 != 0 {
			return fmt.Errorf("objstore: block size must be a multiple of 8 greater than 16, got %d", n)
		}
		s.blockSize = n
		return nil
	}
}
