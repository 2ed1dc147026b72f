package kv

import (
	"context"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelStore is a durable Store backed by goleveldb, the on-disk engine
// a production hub uses for its message corpus and registry events.
type LevelStore struct {
	db *leveldb.DB
}

// NewLevelDB opens (creating if absent) a goleveldb database at path.
func NewLevelDB(path string, opts Options) (ClosableStore, error) {
	o := &opt.Options{
		OpenFilesCacheCapacity: opts.OpenFilesLimit,
		BlockCacheCapacity:     opts.CacheSize / 2 * opt.MiB,
		WriteBuffer:            opts.CacheSize / 4 * opt.MiB,
		ReadOnly:               opts.ReadOnly,
	}
	db, err := leveldb.OpenFile(path, o)
	if err != nil {
		return nil, err
	}
	return &LevelStore{db: db}, nil
}

func (s *LevelStore) Get(key []byte) ([]byte, error) {
	return s.db.Get(key, nil)
}

func (s *LevelStore) Has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

func (s *LevelStore) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

func (s *LevelStore) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

func (s *LevelStore) IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}

func (s *LevelStore) DeleteRange(_ context.Context, r Range) error {
	it := s.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	if err := it.Error(); err != nil {
		return err
	}
	return s.db.Write(batch, nil)
}

func (s *LevelStore) Iterate(r Range) Iterator {
	return &levelIterator{it: s.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)}
}

func (s *LevelStore) Bulk() Bulk {
	return &levelBulk{db: s.db, batch: new(leveldb.Batch)}
}

func (s *LevelStore) Snapshot() Snapshot {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return &levelSnapshot{err: err}
	}
	return &levelSnapshot{snap: snap}
}

func (s *LevelStore) Close() error {
	return s.db.Close()
}

type levelIterator struct {
	it iterator.Iterator
}

func (i *levelIterator) First() bool   { return i.it.First() }
func (i *levelIterator) Last() bool    { return i.it.Last() }
func (i *levelIterator) Next() bool    { return i.it.Next() }
func (i *levelIterator) Prev() bool    { return i.it.Prev() }
func (i *levelIterator) Key() []byte   { return i.it.Key() }
func (i *levelIterator) Value() []byte { return i.it.Value() }
func (i *levelIterator) Release()      { i.it.Release() }
func (i *levelIterator) Error() error  { return i.it.Error() }

type levelBulk struct {
	db    *leveldb.DB
	batch *leveldb.Batch
	auto  bool
}

func (b *levelBulk) Put(key, value []byte) error {
	if b.auto {
		return b.db.Put(key, value, nil)
	}
	b.batch.Put(key, value)
	return nil
}

func (b *levelBulk) Delete(key []byte) error {
	if b.auto {
		return b.db.Delete(key, nil)
	}
	b.batch.Delete(key)
	return nil
}

func (b *levelBulk) EnableAutoFlush() {
	b.auto = true
}

func (b *levelBulk) Write() error {
	if err := b.db.Write(b.batch, nil); err != nil {
		return err
	}
	b.batch.Reset()
	return nil
}

type levelSnapshot struct {
	snap *leveldb.Snapshot
	err  error
}

func (s *levelSnapshot) Get(key []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snap.Get(key, nil)
}

func (s *levelSnapshot) Has(key []byte) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.snap.Has(key, nil)
}

func (s *levelSnapshot) Release() {
	if s.snap != nil {
		s.snap.Release()
	}
}
