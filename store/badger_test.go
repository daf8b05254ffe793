package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MixinNetwork/fractional/chain"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testBadgerStore(t *testing.T) *BadgerStore {
	bs, err := OpenBadger(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })
	return bs
}

func TestBadgerOpenClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	require := require.New(t)

	bs, err := OpenBadger(context.Background(), t.TempDir())
	require.NoError(err)
	require.NotNil(bs.Badger())
	require.NoError(bs.WriteProperty([]byte("p"), []byte("v")))
	require.NoError(bs.Close())
}

func TestBadgerProperty(t *testing.T) {
	require := require.New(t)
	bs := testBadgerStore(t)

	val, err := bs.ReadProperty([]byte("missing"))
	require.NoError(err)
	require.Nil(val)

	require.NoError(bs.WriteProperty([]byte("key"), []byte("value")))
	val, err = bs.ReadProperty([]byte("key"))
	require.NoError(err)
	require.Equal("value", string(val))
}

func TestBadgerStorage(t *testing.T) {
	require := require.New(t)
	bs := testBadgerStore(t)

	err := bs.Update(func(kv chain.Storage) error {
		for _, k := range []string{"b:2", "a:1", "b:1", "c:1"} {
			if err := kv.Set([]byte(k), []byte("v"+k)); err != nil {
				return err
			}
		}
		return kv.Delete([]byte("c:1"))
	})
	require.NoError(err)

	err = bs.View(func(kv chain.Storage) error {
		val, err := kv.Get([]byte("a:1"))
		require.NoError(err)
		require.Equal("va:1", string(val))
		val, err = kv.Get([]byte("c:1"))
		require.NoError(err)
		require.Nil(val)

		var keys []string
		err = kv.Iterate([]byte("b:"), func(key, val []byte) error {
			keys = append(keys, string(key))
			require.Equal("v"+string(key), string(val))
			return nil
		})
		require.NoError(err)
		require.Equal([]string{"b:1", "b:2"}, keys)
		return nil
	})
	require.NoError(err)

	val, err := bs.ReadProperty([]byte("a:1"))
	require.NoError(err)
	require.Nil(val)
}

func TestBadgerUpdateRollback(t *testing.T) {
	require := require.New(t)
	bs := testBadgerStore(t)
	boom := errors.New("boom")

	err := bs.Update(func(kv chain.Storage) error {
		err := kv.Set([]byte("a"), []byte("1"))
		if err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(err, boom)

	err = bs.View(func(kv chain.Storage) error {
		val, err := kv.Get([]byte("a"))
		require.Nil(val)
		return err
	})
	require.NoError(err)
}

func TestBadgerTransactions(t *testing.T) {
	require := require.New(t)
	bs := testBadgerStore(t)
	now := time.Now()

	tx, err := bs.ReadTransaction("2f3e6a5c-6c8a-3e51-9a3b-8a9c9a2a8e10")
	require.NoError(err)
	require.Nil(tx)

	first := &chain.Transaction{
		TraceId:   "2f3e6a5c-6c8a-3e51-9a3b-8a9c9a2a8e10",
		State:     chain.TransactionStateCommitted,
		Sender:    "alice",
		Contract:  "contract0",
		Height:    1,
		Events:    []chain.Event{{Contract: "contract0", Attributes: []chain.Attribute{{Key: "action", Value: "mint"}}}},
		CreatedAt: now,
	}
	second := &chain.Transaction{
		TraceId:   "7d1b0a44-1f47-3b0c-8f1e-45a2f16a7c02",
		State:     chain.TransactionStateReverted,
		Sender:    "bob",
		Height:    2,
		Error:     "unauthorized",
		CreatedAt: now.Add(time.Second),
	}
	third := &chain.Transaction{
		TraceId:   "c8b5a4c3-0e1d-3f2a-9b8c-7d6e5f4a3b21",
		State:     chain.TransactionStateCommitted,
		Sender:    "carol",
		Height:    3,
		CreatedAt: now.Add(2 * time.Second),
	}
	for _, tx := range []*chain.Transaction{third, second, first} {
		require.NoError(bs.WriteTransaction(tx))
	}

	tx, err = bs.ReadTransaction(first.TraceId)
	require.NoError(err)
	require.Equal("alice", tx.Sender)
	require.Equal(uint64(1), tx.Height)
	require.Equal(first.Events, tx.Events)
	require.True(first.CreatedAt.Equal(tx.CreatedAt))

	txs, err := bs.ListTransactions(chain.TransactionStateCommitted, 10)
	require.NoError(err)
	require.Len(txs, 2)
	require.Equal(first.TraceId, txs[0].TraceId)
	require.Equal(third.TraceId, txs[1].TraceId)

	txs, err = bs.ListTransactions(chain.TransactionStateCommitted, 1)
	require.NoError(err)
	require.Len(txs, 1)

	txs, err = bs.ListTransactions(chain.TransactionStateReverted, 10)
	require.NoError(err)
	require.Len(txs, 1)
	require.Equal("unauthorized", txs[0].Error)

	second.State = chain.TransactionStateCommitted
	require.NoError(bs.WriteTransaction(second))
	txs, err = bs.ListTransactions(chain.TransactionStateReverted, 10)
	require.NoError(err)
	require.Len(txs, 0)
	txs, err = bs.ListTransactions(chain.TransactionStateCommitted, 10)
	require.NoError(err)
	require.Len(txs, 3)
	require.Equal(second.TraceId, txs[1].TraceId)
}

func TestBadgerChain(t *testing.T) {
	require := require.New(t)
	bs := testBadgerStore(t)

	c, err := chain.NewChain(bs, nil)
	require.NoError(err)
	_, _, err = c.InstantiateContract(context.Background(), 1, "alice", struct{}{}, "missing")
	require.ErrorIs(err, chain.ErrCodeNotFound)

	txs, err := bs.ListTransactions(chain.TransactionStateReverted, 10)
	require.NoError(err)
	require.Len(txs, 1)
	require.Equal("alice", txs[0].Sender)
	require.Equal(uint64(1), txs[0].Height)

	block, err := bs.ReadProperty([]byte("CHAIN:CLOCK:BLOCK"))
	require.NoError(err)
	require.Len(block, 16)
}
