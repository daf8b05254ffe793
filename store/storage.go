package store

import (
	"github.com/dgraph-io/badger/v4"
)

const prefixChainStorage = "STORAGE:"

// txnStorage binds chain storage to a single badger transaction, so a host
// transaction commits or discards every contract write together.
type txnStorage struct {
	txn *badger.Txn
}

func (ts *txnStorage) key(k []byte) []byte {
	key := make([]byte, 0, len(prefixChainStorage)+len(k))
	key = append(key, prefixChainStorage...)
	return append(key, k...)
}

func (ts *txnStorage) Get(key []byte) ([]byte, error) {
	item, err := ts.txn.Get(ts.key(key))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (ts *txnStorage) Set(key, val []byte) error {
	return ts.txn.Set(ts.key(key), append([]byte(nil), val...))
}

func (ts *txnStorage) Delete(key []byte) error {
	return ts.txn.Delete(ts.key(key))
}

func (ts *txnStorage) Iterate(prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = ts.key(prefix)
	it := ts.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		err = fn(key[len(prefixChainStorage):], val)
		if err != nil {
			return err
		}
	}
	return nil
}
