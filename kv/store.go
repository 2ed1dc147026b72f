// Package kv defines the minimal key-value storage abstraction the hub's
// message Engine is built on: a flat byte-string keyspace with prefixed
// "buckets", range iteration, batched writes and point-in-time snapshots.
// It exists so that hubstore's reference Engine implementations (in-memory
// and on-disk) share one interface, the way the teacher's own kv package
// lets muxdb and an in-memory store interchange.
package kv

import "context"

// Getter reads values by key.
type Getter interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// Putter writes values by key.
type Putter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// GetPutter is a Getter and a Putter.
type GetPutter interface {
	Getter
	Putter
}

// Range is a half-open byte-string key range [Start, Limit). A nil Limit
// means "no upper bound".
type Range struct {
	Start []byte
	Limit []byte
}

// Iterator walks a Range in key order.
type Iterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Bulk batches writes for a single atomic flush.
type Bulk interface {
	Putter
	EnableAutoFlush()
	Write() error
}

// Snapshot is a frozen, read-only view of the store at the instant it was
// taken.
type Snapshot interface {
	Getter
	Release()
}

// Store is the full capability hubstore's Engine needs from an underlying
// key-value database.
type Store interface {
	GetPutter
	IsNotFound(err error) bool
	DeleteRange(ctx context.Context, r Range) error
	Iterate(r Range) Iterator
	Bulk() Bulk
	Snapshot() Snapshot
}

// ClosableStore is a Store that owns resources (file handles, background
// compaction goroutines) that must be released when it's no longer needed.
// The top-level constructors (NewMem, NewLevelDB) return this; buckets
// carved out of a Store with Bucket.NewStore do not, since closing a
// bucket view must not close the store it shares.
type ClosableStore interface {
	Store
	Close() error
}

// Options configures a Store implementation; fields are implementation-
// specific and may be ignored.
type Options struct {
	CacheSize   int
	OpenFilesLimit int
	ReadOnly    bool
}
