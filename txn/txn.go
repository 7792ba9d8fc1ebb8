// Package txn provides a best-effort transaction wrapper around an
// objstore.Store: writes are staged under shadow OIDs and deletes are
// recorded, and both are only applied to their real OIDs on Commit. This is NOT atomic — Commit applies
// staged changes one at a time and can fail partway through, leaving some
// applied and some not.
package txn

import (
	"fmt"
	"sync"

	"github.com/KarpelesLab/objstore"
)

// Txn stages writes and deletes against db until Commit or Rollback.
type Txn struct {
	mu      sync.Mutex
	db      *objstore.Store
	shadow  map[int64]int64 // real oid -> shadow oid holding the staged payload
	deleted map[int64]bool  // real oid -> staged for deletion
	done    bool
}

// Begin starts a new transaction against db. The Store itself is not locked
// for the transaction's lifetime; concurrent direct use of db while a Txn is
// open can interleave with staged changes.
func Begin(db *objstore.Store) *Txn {
	return &Txn{
		db:      db,
		shadow:  make(map[int64]int64),
		deleted: make(map[int64]bool),
	}
}

// Write stages data to be written to oid on Commit.
func (t *Txn) Write(oid int64, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("txn: already committed or rolled back")
	}

	shadowOID, ok := t.shadow[oid]
	if !ok {
		var err error
		shadowOID, err = t.db.NewOID()
		if err != nil {
			return err
		}
		t.shadow[oid] = shadowOID
	}
	delete(t.deleted, oid)
	return t.db.Write(shadowOID, data)
}

// Delete stages oid for removal on Commit.
func (t *Txn) Delete(oid int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("txn: already committed or rolled back")
	}
	if shadowOID, ok := t.shadow[oid]; ok {
		if _, _, err := t.db.Delete(shadowOID); err != nil {
			return err
		}
		delete(t.shadow, oid)
	}
	t.deleted[oid] = true
	return nil
}

// Read returns oid's payload as it would appear after Commit: the staged
// value if Write or Delete has touched it this transaction, otherwise the
// value currently in db.
func (t *Txn) Read(oid int64) ([]byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.deleted[oid] {
		return nil, false, nil
	}
	if shadowOID, ok := t.shadow[oid]; ok {
		return t.db.Read(shadowOID)
	}
	return t.db.Read(oid)
}

// Commit applies every staged delete and then every staged write to its
// real OID, and frees the shadow OIDs used to hold staged payloads. The
// order within the deletes and within the writes is not defined.
// If a step fails, Commit stops and returns an error describing which real
// OID it failed on; prior steps in this call remain applied, and the
// caller is responsible for deciding whether to retry or treat the Store as
// partially migrated. Best-effort by design — see the package doc comment.
func (t *Txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("txn: already committed or rolled back")
	}
	t.done = true

	for oid := range t.deleted {
		if _, _, err := t.db.Delete(oid); err != nil {
			return fmt.Errorf("txn: commit delete of oid %d: %w", oid, err)
		}
	}

	for oid, shadowOID := range t.shadow {
		data, ok, err := t.db.Read(shadowOID)
		if err != nil {
			return fmt.Errorf("txn: commit read of shadow oid %d: %w", shadowOID, err)
		}
		if !ok {
			return fmt.Errorf("txn: commit: shadow oid %d for %d vanished", shadowOID, oid)
		}
		if err := t.db.Write(oid, data); err != nil {
			return fmt.Errorf("txn: commit write of oid %d: %w", oid, err)
		}
		if _, _, err := t.db.Delete(shadowOID); err != nil {
			return fmt.Errorf("txn: commit cleanup of shadow oid %d: %w", shadowOID, err)
		}
	}
	return nil
}

// Rollback discards every staged change, deleting any shadow OIDs created
// to hold staged payloads. The real OIDs touched by Write/Delete are left
// exactly as they were before the transaction began.
func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("txn: already committed or rolled back")
	}
	t.done = true

	for oid, shadowOID := range t.shadow {
		if _, _, err := t.db.Delete(shadowOID); err != nil {
			return fmt.Errorf("txn: rollback cleanup of shadow oid %d (real %d): %w", shadowOID, oid, err)
		}
	}
	return nil
}
