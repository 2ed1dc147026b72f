package hubstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/pkg/errors"

	"github.com/hubswarm/syncd/kv"
	"github.com/hubswarm/syncd/synctype"
)

// Engine is the message K/V store hubstore's LocalStore implementations
// sit on: a thin, encoding-aware layer over kv.Store so that Store itself
// never has to know how a Message or registry event is serialized.
type Engine interface {
	PutMessage(pk []byte, m *Message) error
	GetMessage(pk []byte) (*Message, error)
	DeleteMessage(pk []byte) error
	ForEachMessage(fn func(pk []byte, m *Message) error) error

	PutIdRegistryEvent(fid synctype.Fid, e *IdRegistryEvent) error
	GetIdRegistryEvent(fid synctype.Fid) (*IdRegistryEvent, error)
	ForEachIdRegistryEvent(fn func(fid synctype.Fid, e *IdRegistryEvent) error) error

	PutNameRegistryEvent(name string, e *NameRegistryEvent) error
}

var (
	messagesBucket   kv.Bucket = "m-"
	idRegistryBucket kv.Bucket = "i-"
	nameRegistryBucket kv.Bucket = "n-"
)

// kvEngine is the reference Engine implementation: three buckets carved
// out of a single shared kv.Store, the way the teacher's own packages
// (e.g. chain, logdb) each claim a bucket prefix within one physical
// database rather than opening one database per concern.
type kvEngine struct {
	messages    kv.Store
	idRegistry  kv.Store
	nameRegistry kv.Store
}

// NewEngine wraps src with the bucket layout hubstore needs. src may be an
// in-memory kv.MemStore or a durable kv.LevelStore; the engine does not
// care which.
func NewEngine(src kv.Store) Engine {
	return &kvEngine{
		messages:     messagesBucket.NewStore(src),
		idRegistry:   idRegistryBucket.NewStore(src),
		nameRegistry: nameRegistryBucket.NewStore(src),
	}
}

func (e *kvEngine) PutMessage(pk []byte, m *Message) error {
	buf, err := encodeMessage(m)
	if err != nil {
		return errors.Wrap(err, "hubstore: encode message")
	}
	return e.messages.Put(pk, buf)
}

func (e *kvEngine) GetMessage(pk []byte) (*Message, error) {
	buf, err := e.messages.Get(pk)
	if err != nil {
		return nil, err
	}
	return decodeMessage(buf)
}

func (e *kvEngine) DeleteMessage(pk []byte) error {
	return e.messages.Delete(pk)
}

func (e *kvEngine) ForEachMessage(fn func(pk []byte, m *Message) error) error {
	it := e.messages.Iterate(kv.Range{})
	defer it.Release()
	for it.Next() {
		m, err := decodeMessage(it.Value())
		if err != nil {
			return errors.Wrap(err, "hubstore: decode message during iteration")
		}
		if err := fn(it.Key(), m); err != nil {
			return err
		}
	}
	return it.Error()
}

func (e *kvEngine) PutIdRegistryEvent(fid synctype.Fid, ev *IdRegistryEvent) error {
	buf, err := encodeGob(ev)
	if err != nil {
		return errors.Wrap(err, "hubstore: encode id registry event")
	}
	return e.idRegistry.Put(fidKey(fid), buf)
}

func (e *kvEngine) GetIdRegistryEvent(fid synctype.Fid) (*IdRegistryEvent, error) {
	buf, err := e.idRegistry.Get(fidKey(fid))
	if err != nil {
		return nil, err
	}
	var ev IdRegistryEvent
	if err := decodeGob(buf, &ev); err != nil {
		return nil, errors.Wrap(err, "hubstore: decode id registry event")
	}
	return &ev, nil
}

func (e *kvEngine) ForEachIdRegistryEvent(fn func(fid synctype.Fid, ev *IdRegistryEvent) error) error {
	it := e.idRegistry.Iterate(kv.Range{})
	defer it.Release()
	for it.Next() {
		var ev IdRegistryEvent
		if err := decodeGob(it.Value(), &ev); err != nil {
			return errors.Wrap(err, "hubstore: decode id registry event during iteration")
		}
		if err := fn(ev.Fid, &ev); err != nil {
			return err
		}
	}
	return it.Error()
}

func (e *kvEngine) PutNameRegistryEvent(name string, ev *NameRegistryEvent) error {
	buf, err := encodeGob(ev)
	if err != nil {
		return errors.Wrap(err, "hubstore: encode name registry event")
	}
	return e.nameRegistry.Put([]byte(name), buf)
}

func fidKey(fid synctype.Fid) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(fid))
	return b[:]
}

func encodeMessage(m *Message) ([]byte, error) { return encodeGob(m) }

func decodeMessage(buf []byte) (*Message, error) {
	var m Message
	if err := decodeGob(buf, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(buf []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(buf)).Decode(v)
}
