package chain

import (
	"bytes"
	"errors"
	"sort"
)

var ErrReadOnly = errors.New("storage is read only")

type prefixStorage struct {
	parent Storage
	prefix []byte
}

// NewPrefixStorage scopes every key under prefix. Iterated keys have the
// prefix stripped.
func NewPrefixStorage(parent Storage, prefix []byte) Storage {
	return &prefixStorage{parent: parent, prefix: append([]byte(nil), prefix...)}
}

func (ps *prefixStorage) key(k []byte) []byte {
	key := make([]byte, 0, len(ps.prefix)+len(k))
	key = append(key, ps.prefix...)
	return append(key, k...)
}

func (ps *prefixStorage) Get(key []byte) ([]byte, error) {
	return ps.parent.Get(ps.key(key))
}

func (ps *prefixStorage) Set(key, val []byte) error {
	return ps.parent.Set(ps.key(key), val)
}

func (ps *prefixStorage) Delete(key []byte) error {
	return ps.parent.Delete(ps.key(key))
}

func (ps *prefixStorage) Iterate(prefix []byte, fn func(key, val []byte) error) error {
	return ps.parent.Iterate(ps.key(prefix), func(key, val []byte) error {
		return fn(key[len(ps.prefix):], val)
	})
}

type readOnlyStorage struct {
	Storage
}

func (readOnlyStorage) Set(key, val []byte) error {
	return ErrReadOnly
}

func (readOnlyStorage) Delete(key []byte) error {
	return ErrReadOnly
}

type cacheEntry struct {
	val     []byte
	deleted bool
}

// cacheStorage buffers writes on top of a parent so a failed sub message
// can be discarded without touching the parent.
type cacheStorage struct {
	parent  Storage
	entries map[string]cacheEntry
}

func newCacheStorage(parent Storage) *cacheStorage {
	return &cacheStorage{parent: parent, entries: make(map[string]cacheEntry)}
}

func (cs *cacheStorage) Get(key []byte) ([]byte, error) {
	if e, found := cs.entries[string(key)]; found {
		if e.deleted {
			return nil, nil
		}
		return e.val, nil
	}
	return cs.parent.Get(key)
}

func (cs *cacheStorage) Set(key, val []byte) error {
	cs.entries[string(key)] = cacheEntry{val: append([]byte(nil), val...)}
	return nil
}

func (cs *cacheStorage) Delete(key []byte) error {
	cs.entries[string(key)] = cacheEntry{deleted: true}
	return nil
}

func (cs *cacheStorage) Iterate(prefix []byte, fn func(key, val []byte) error) error {
	merged := make(map[string][]byte)
	err := cs.parent.Iterate(prefix, func(key, val []byte) error {
		merged[string(key)] = val
		return nil
	})
	if err != nil {
		return err
	}
	for k, e := range cs.entries {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if e.deleted {
			delete(merged, k)
		} else {
			merged[k] = e.val
		}
	}
	return iterateSorted(merged, fn)
}

func (cs *cacheStorage) flush() error {
	keys := make([]string, 0, len(cs.entries))
	for k := range cs.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := cs.entries[k]
		var err error
		if e.deleted {
			err = cs.parent.Delete([]byte(k))
		} else {
			err = cs.parent.Set([]byte(k), e.val)
		}
		if err != nil {
			return err
		}
	}
	cs.entries = make(map[string]cacheEntry)
	return nil
}

// MemStorage is a map backed Storage for contract unit tests.
type MemStorage struct {
	kv map[string][]byte
}

func NewMemStorage() *MemStorage {
	return &MemStorage{kv: make(map[string][]byte)}
}

func (ms *MemStorage) Get(key []byte) ([]byte, error) {
	return ms.kv[string(key)], nil
}

func (ms *MemStorage) Set(key, val []byte) error {
	ms.kv[string(key)] = append([]byte(nil), val...)
	return nil
}

func (ms *MemStorage) Delete(key []byte) error {
	delete(ms.kv, string(key))
	return nil
}

func (ms *MemStorage) Iterate(prefix []byte, fn func(key, val []byte) error) error {
	matched := make(map[string][]byte)
	for k, v := range ms.kv {
		if bytes.HasPrefix([]byte(k), prefix) {
			matched[k] = v
		}
	}
	return iterateSorted(matched, fn)
}

func (ms *MemStorage) Len() int {
	return len(ms.kv)
}

func iterateSorted(kv map[string][]byte, fn func(key, val []byte) error) error {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		err := fn([]byte(k), kv[k])
		if err != nil {
			return err
		}
	}
	return nil
}
