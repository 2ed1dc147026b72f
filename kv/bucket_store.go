package kv

import "context"

func (b *bucketStore) scopedRange(r Range) Range {
	start := b.bucket.appended(r.Start)
	var limit []byte
	if r.Limit != nil {
		limit = b.bucket.appended(r.Limit)
	} else {
		limit = upperBound(b.bucket)
	}
	return Range{Start: start, Limit: limit}
}

func upperBound(prefix Bucket) []byte {
	p := []byte(prefix)
	out := make([]byte, len(p))
	copy(out, p)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}

func (b *bucketStore) DeleteRange(ctx context.Context, r Range) error {
	return b.store.DeleteRange(ctx, b.scopedRange(r))
}

func (b *bucketStore) Iterate(r Range) Iterator {
	return &bucketIterator{prefixLen: len(b.bucket), it: b.store.Iterate(b.scopedRange(r))}
}

type bucketIterator struct {
	prefixLen int
	it        Iterator
}

func (i *bucketIterator) First() bool      { return i.it.First() }
func (i *bucketIterator) Last() bool       { return i.it.Last() }
func (i *bucketIterator) Next() bool       { return i.it.Next() }
func (i *bucketIterator) Prev() bool       { return i.it.Prev() }
func (i *bucketIterator) Key() []byte      { return i.it.Key()[i.prefixLen:] }
func (i *bucketIterator) Value() []byte    { return i.it.Value() }
func (i *bucketIterator) Release()         { i.it.Release() }
func (i *bucketIterator) Error() error     { return i.it.Error() }

func (b *bucketStore) Bulk() Bulk {
	return &bucketBulk{bucket: b.bucket, bulk: b.store.Bulk()}
}

func (b *bucketStore) Snapshot() Snapshot {
	return &bucketSnapshot{bucket: b.bucket, snap: b.store.Snapshot()}
}

type bucketSnapshot struct {
	bucket Bucket
	snap   Snapshot
}

func (s *bucketSnapshot) Get(key []byte) ([]byte, error) { return s.snap.Get(s.bucket.appended(key)) }
func (s *bucketSnapshot) Has(key []byte) (bool, error)    { return s.snap.Has(s.bucket.appended(key)) }
func (s *bucketSnapshot) Release()                        { s.snap.Release() }

type bucketBulk struct {
	bucket Bucket
	bulk   Bulk
}

func (b *bucketBulk) Put(key, value []byte) error { return b.bulk.Put(b.bucket.appended(key), value) }
func (b *bucketBulk) Delete(key []byte) error      { return b.bulk.Delete(b.bucket.appended(key)) }
func (b *bucketBulk) EnableAutoFlush()             { b.bulk.EnableAutoFlush() }
func (b *bucketBulk) Write() error                 { return b.bulk.Write() }
