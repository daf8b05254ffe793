package store

import (
	"github.com/MixinNetwork/fractional/chain"
	"github.com/MixinNetwork/mixin/common"
	"github.com/dgraph-io/badger/v4"
)

const (
	prefixTransactionPayload = "TRANSACTION:PAYLOAD:"
	prefixTransactionState   = "TRANSACTION:STATE:"
)

func (bs *BadgerStore) WriteTransaction(tx *chain.Transaction) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		err := bs.resetOldTransaction(txn, tx)
		if err != nil {
			return err
		}
		key := []byte(prefixTransactionPayload + tx.TraceId)
		val := common.MsgpackMarshalPanic(tx)
		err = txn.Set(key, val)
		if err != nil {
			return err
		}

		key = buildTransactionTimedKey(tx)
		return txn.Set(key, []byte{1})
	})
}

func (bs *BadgerStore) ReadTransaction(traceId string) (*chain.Transaction, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	return bs.readTransaction(txn, traceId)
}

func (bs *BadgerStore) ListTransactions(state int, limit int) ([]*chain.Transaction, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(transactionStatePrefix(state))
	it := txn.NewIterator(opts)
	defer it.Close()

	var txs []*chain.Transaction
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		key := it.Item().Key()
		id := string(key[len(opts.Prefix)+8:])
		tx, err := bs.readTransaction(txn, id)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
		if len(txs) == limit {
			break
		}
	}
	return txs, nil
}

func (bs *BadgerStore) readTransaction(txn *badger.Txn, traceId string) (*chain.Transaction, error) {
	key := []byte(prefixTransactionPayload + traceId)
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var tx chain.Transaction
	err = common.MsgpackUnmarshal(val, &tx)
	return &tx, err
}

func (bs *BadgerStore) resetOldTransaction(txn *badger.Txn, tx *chain.Transaction) error {
	old, err := bs.readTransaction(txn, tx.TraceId)
	if err != nil || old == nil {
		return err
	}
	if old.State == tx.State && old.CreatedAt.Equal(tx.CreatedAt) {
		return nil
	}

	key := buildTransactionTimedKey(old)
	return txn.Delete(key)
}

func buildTransactionTimedKey(tx *chain.Transaction) []byte {
	buf := tsToBytes(tx.CreatedAt)
	prefix := transactionStatePrefix(tx.State)
	key := append([]byte(prefix), buf...)
	return append(key, []byte(tx.TraceId)...)
}

func transactionStatePrefix(state int) string {
	prefix := prefixTransactionState
	switch state {
	case chain.TransactionStateCommitted:
		return prefix + "committed"
	case chain.TransactionStateReverted:
		return prefix + "revertedd"
	}
	panic(state)
}
