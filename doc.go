// Package objstore implements a single-file, self-describing object store:
// it maps int64 OIDs to arbitrary-length byte payloads inside one
// fixed-block-size file, tracking free space and an index of live objects
// so the whole thing can be closed, reopened, and read back without any
// external metadata.
//
// OID 0 is reserved for the index itself, which is serialized as a chain of
// fixed-size blocks linked by trailing continuation pointers and rewritten
// from scratch on every Close. Applications are expected to build their own
// object graph on top, typically anchored at RootOID.
//
// The blob and txn subpackages build a name-keyed façade and a best-effort
// transaction wrapper on top of the OID-addressed core, respectively.
package objstore
