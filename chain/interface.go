package chain

import (
	"context"
)

// Storage is the key value view a single contract, or the host itself,
// reads and writes during one transaction. Get returns nil for a missing key.
type Storage interface {
	Get(key []byte) ([]byte, error)
	Set(key, val []byte) error
	Delete(key []byte) error
	Iterate(prefix []byte, fn func(key, val []byte) error) error
}

type Store interface {
	Update(fn func(Storage) error) error
	View(fn func(Storage) error) error

	WriteProperty(key, val []byte) error
	ReadProperty(key []byte) ([]byte, error)

	WriteTransaction(tx *Transaction) error
	ReadTransaction(traceId string) (*Transaction, error)
	ListTransactions(state int, limit int) ([]*Transaction, error)
}

type Querier interface {
	QuerySmart(ctx context.Context, contract string, msg []byte) ([]byte, error)
}

type Deps struct {
	Storage Storage
	Querier Querier
}

type Contract interface {
	Instantiate(ctx context.Context, deps Deps, env Env, info MessageInfo, msg []byte) (*Response, error)
	Execute(ctx context.Context, deps Deps, env Env, info MessageInfo, msg []byte) (*Response, error)
	Query(ctx context.Context, deps Deps, env Env, msg []byte) ([]byte, error)
}

// Replier is implemented by contracts that request replies from their sub messages.
type Replier interface {
	Reply(ctx context.Context, deps Deps, env Env, reply Reply) (*Response, error)
}
