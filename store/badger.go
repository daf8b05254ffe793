package store

import (
	"context"
	"time"

	"github.com/MixinNetwork/fractional/chain"
	"github.com/MixinNetwork/mixin/logger"
	"github.com/dgraph-io/badger/v4"
)

type BadgerStore struct {
	db     *badger.DB
	cancel context.CancelFunc
	done   chan struct{}
}

// OpenBadger opens the database at path, or an in-memory one when path is empty.
func OpenBadger(ctx context.Context, path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	bs := &BadgerStore{
		db:     db,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if path == "" {
		close(bs.done)
	} else {
		go bs.collectGarbage(ctx)
	}
	return bs, nil
}

func (bs *BadgerStore) collectGarbage(ctx context.Context) {
	defer close(bs.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Minute):
		}
		lsm, vlog := bs.db.Size()
		logger.Printf("Badger LSM %d VLOG %d\n", lsm, vlog)
		if lsm > 1024*1024*8 || vlog > 1024*1024*32 {
			err := bs.db.RunValueLogGC(0.5)
			logger.Printf("Badger RunValueLogGC %v\n", err)
		}
	}
}

func (bs *BadgerStore) Close() error {
	bs.cancel()
	<-bs.done
	return bs.db.Close()
}

func (bs *BadgerStore) Badger() *badger.DB {
	return bs.db
}

func (bs *BadgerStore) Update(fn func(chain.Storage) error) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		return fn(&txnStorage{txn: txn})
	})
}

func (bs *BadgerStore) View(fn func(chain.Storage) error) error {
	return bs.db.View(func(txn *badger.Txn) error {
		return fn(&txnStorage{txn: txn})
	})
}

func (bs *BadgerStore) WriteProperty(key, val []byte) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

func (bs *BadgerStore) ReadProperty(key []byte) ([]byte, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
