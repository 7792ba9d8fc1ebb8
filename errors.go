package objstore

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrDuplicateOID is returned by the index when inserting an OID that is already present.
	ErrDuplicateOID = errors.New("objstore: oid already present in index")

	// ErrNotFound is returned by operations that require an OID to already exist.
	ErrNotFound = errors.New("objstore: oid not found")

	// ErrCapacityExhausted is returned by NewOID when every int64 OID is in use.
	ErrCapacityExhausted = errors.New("objstore: oid space exhausted")

	// ErrClosed is returned by Close when the store has already been closed. Other Store
	// and ObjectStream operations do not check for a closed store.
	ErrClosed = errors.New("objstore: store is closed")

	// ErrReadOnly is returned by mutating operations on a store opened with WithReadOnly.
	ErrReadOnly = errors.New("objstore: store is read-only")

	// ErrReservedOID is returned when a caller tries to Write or Delete OID 0, which is
	// reserved for the index itself.
	ErrReservedOID = errors.New("objstore: oid 0 is reserved for the index")

	// ErrInvalidWhence is returned by ObjectStream.Seek when whence is not
	// one of io.SeekStart, io.SeekCurrent, or io.SeekEnd.
	ErrInvalidWhence = errors.New("objstore: invalid seek whence")
)
