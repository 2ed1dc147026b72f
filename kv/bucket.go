package kv

// Bucket is a key prefix carving out a logical namespace within a shared
// Store, avoiding the need for one physical database per concern.
type Bucket string

type bucketGetter struct {
	bucket Bucket
	getter Getter
}

func (b *bucketGetter) Get(key []byte) ([]byte, error) {
	return b.getter.Get(b.bucket.appended(key))
}

func (b *bucketGetter) Has(key []byte) (bool, error) {
	return b.getter.Has(b.bucket.appended(key))
}

// NewGetter returns a Getter scoped to this bucket.
func (b Bucket) NewGetter(src Getter) Getter {
	return &bucketGetter{bucket: b, getter: src}
}

type bucketPutter struct {
	bucket Bucket
	putter Putter
}

func (b *bucketPutter) Put(key, value []byte) error {
	return b.putter.Put(b.bucket.appended(key), value)
}

func (b *bucketPutter) Delete(key []byte) error {
	return b.putter.Delete(b.bucket.appended(key))
}

// NewPutter returns a Putter scoped to this bucket.
func (b Bucket) NewPutter(dst Putter) Putter {
	return &bucketPutter{bucket: b, putter: dst}
}

func (b Bucket) appended(key []byte) []byte {
	buf := make([]byte, 0, len(b)+len(key))
	buf = append(buf, b...)
	buf = append(buf, key...)
	return buf
}

type bucketStore struct {
	bucket Bucket
	store  Store
}

// NewStore returns a Store scoped to this bucket: every key read or
// written through it is implicitly prefixed.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{bucket: b, store: src}
}

func (b *bucketStore) Get(key []byte) ([]byte, error) { return b.store.Get(b.bucket.appended(key)) }
func (b *bucketStore) Has(key []byte) (bool, error)    { return b.store.Has(b.bucket.appended(key)) }
func (b *bucketStore) Put(key, value []byte) error {
	return b.store.Put(b.bucket.appended(key), value)
}
func (b *bucketStore) Delete(key []byte) error   { return b.store.Delete(b.bucket.appended(key)) }
func (b *bucketStore) IsNotFound(err error) bool { return b.store.IsNotFound(err) }
