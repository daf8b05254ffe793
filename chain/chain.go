package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/mixin/logger"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	prefixContractInstance = "CHAIN:INSTANCE:"
	prefixContractState    = "CHAIN:STATE:"
	keyContractSequence    = "CHAIN:SEQUENCE:CONTRACT"
)

type ContractInstance struct {
	Address string
	CodeId  uint64
	Creator string
	Label   string
	Height  uint64
}

// Chain runs contracts the way a blockchain host does: one external
// request at a time, every request atomic, sub messages dispatched depth
// first and replies delivered to the contract that asked for them.
type Chain struct {
	sync.Mutex
	store   Store
	clock   *Clock
	codes   []Contract
	metrics *metrics
}

func NewChain(store Store, reg prometheus.Registerer) (*Chain, error) {
	clock, err := NewClock(store)
	if err != nil {
		return nil, err
	}
	return &Chain{
		store:   store,
		clock:   clock,
		metrics: newMetrics(reg),
	}, nil
}

// StoreCode registers a contract implementation, code ids start from 1
// in registration order.
func (c *Chain) StoreCode(contract Contract) uint64 {
	c.Lock()
	defer c.Unlock()

	c.codes = append(c.codes, contract)
	return uint64(len(c.codes))
}

func (c *Chain) Block() Block {
	return c.clock.Now()
}

func (c *Chain) InstantiateContract(ctx context.Context, codeId uint64, sender string, msg interface{}, label string) (string, *Result, error) {
	res, err := c.run(ctx, sender, NewInstantiate(codeId, msg, label))
	if err != nil {
		return "", nil, err
	}
	address, _, err := ParseInstantiateResponse(res.Data)
	if err != nil {
		panic(err)
	}
	return address, res, nil
}

func (c *Chain) ExecuteContract(ctx context.Context, sender, contract string, msg interface{}) (*Result, error) {
	return c.run(ctx, sender, NewExecute(contract, msg))
}

func (c *Chain) QuerySmart(ctx context.Context, contract string, msg []byte) ([]byte, error) {
	var out []byte
	err := c.store.View(func(kv Storage) error {
		res, err := c.query(ctx, kv, c.clock.Now(), contract, msg)
		out = res
		return err
	})
	return out, err
}

func (c *Chain) ContractInfo(ctx context.Context, address string) (*ContractInstance, error) {
	var inst *ContractInstance
	err := c.store.View(func(kv Storage) error {
		i, err := c.readInstance(kv, address)
		inst = i
		return err
	})
	return inst, err
}

func (c *Chain) ReadTransaction(traceId string) (*Transaction, error) {
	return c.store.ReadTransaction(traceId)
}

func (c *Chain) ListTransactions(state int, limit int) ([]*Transaction, error) {
	return c.store.ListTransactions(state, limit)
}

// QueryInto sends a msgpack encoded query and decodes the answer into out.
func QueryInto(ctx context.Context, q Querier, contract string, msg, out interface{}) error {
	raw, err := q.QuerySmart(ctx, contract, common.MsgpackMarshalPanic(msg))
	if err != nil {
		return err
	}
	return common.MsgpackUnmarshal(raw, out)
}

func (c *Chain) run(ctx context.Context, sender string, msg Message) (*Result, error) {
	c.Lock()
	defer c.Unlock()

	block, err := c.clock.Next()
	if err != nil {
		return nil, err
	}
	traceId := transactionTraceId(sender, block)

	var out *dispatchResult
	err = c.store.Update(func(kv Storage) error {
		r, err := c.dispatch(ctx, kv, block, sender, msg)
		out = r
		return err
	})

	contract, raw := "", []byte(nil)
	switch {
	case msg.Execute != nil:
		contract, raw = msg.Execute.Contract, msg.Execute.Msg
	case msg.Instantiate != nil:
		raw = msg.Instantiate.Msg
		if err == nil {
			contract, _, _ = ParseInstantiateResponse(out.data)
		}
	}
	tx, terr := buildTransaction(traceId, sender, contract, raw, block, out, err)
	if terr != nil {
		return nil, terr
	}
	if werr := c.store.WriteTransaction(tx); werr != nil {
		return nil, werr
	}
	c.metrics.transactions.WithLabelValues(TransactionStateName(tx.State)).Inc()

	if err != nil {
		logger.Printf("Chain.run(%s, %s, %d) REVERTED %v\n", traceId, sender, block.Height, err)
		return nil, err
	}
	logger.Verbosef("Chain.run(%s, %s, %d) COMMITTED %s\n", traceId, sender, block.Height, contract)
	return &Result{TraceId: traceId, Events: out.events, Data: out.data}, nil
}

type dispatchResult struct {
	events []Event
	data   []byte
}

func (c *Chain) dispatch(ctx context.Context, kv Storage, block Block, sender string, msg Message) (*dispatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	if msg.Instantiate != nil {
		return c.instantiate(ctx, kv, block, sender, msg.Instantiate)
	}
	return c.execute(ctx, kv, block, sender, msg.Execute)
}

func (c *Chain) instantiate(ctx context.Context, kv Storage, block Block, sender string, im *InstantiateContract) (*dispatchResult, error) {
	contract, err := c.code(im.CodeId)
	if err != nil {
		return nil, err
	}
	address, err := c.nextAddress(kv)
	if err != nil {
		return nil, err
	}
	inst := &ContractInstance{
		Address: address,
		CodeId:  im.CodeId,
		Creator: sender,
		Label:   im.Label,
		Height:  block.Height,
	}
	err = kv.Set([]byte(prefixContractInstance+address), common.MsgpackMarshalPanic(inst))
	if err != nil {
		return nil, err
	}

	env := Env{Block: block, Contract: address}
	info := MessageInfo{Sender: sender}
	res, err := call(func() (*Response, error) {
		return contract.Instantiate(ctx, c.deps(kv, block, address), env, info, im.Msg)
	})
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", im.Label, err)
	}
	out, err := c.process(ctx, kv, block, address, res)
	if err != nil {
		return nil, err
	}
	out.data = EncodeInstantiateResponse(address, out.data)
	return out, nil
}

func (c *Chain) execute(ctx context.Context, kv Storage, block Block, sender string, em *ExecuteContract) (*dispatchResult, error) {
	inst, err := c.readInstance(kv, em.Contract)
	if err != nil {
		return nil, err
	}
	contract, err := c.code(inst.CodeId)
	if err != nil {
		return nil, err
	}

	env := Env{Block: block, Contract: inst.Address}
	info := MessageInfo{Sender: sender}
	res, err := call(func() (*Response, error) {
		return contract.Execute(ctx, c.deps(kv, block, inst.Address), env, info, em.Msg)
	})
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", inst.Address, err)
	}
	return c.process(ctx, kv, block, inst.Address, res)
}

func (c *Chain) process(ctx context.Context, kv Storage, block Block, address string, res *Response) (*dispatchResult, error) {
	if res == nil {
		res = NewResponse()
	}
	out := &dispatchResult{data: res.Data}
	if len(res.Attributes) > 0 {
		out.events = append(out.events, Event{Contract: address, Attributes: res.Attributes})
	}

	for _, sub := range res.Messages {
		cache := newCacheStorage(kv)
		r, err := c.dispatch(ctx, cache, block, address, sub.Msg)
		if err == nil {
			err = cache.flush()
			if err != nil {
				return nil, err
			}
			out.events = append(out.events, r.events...)
		}

		var reply *Reply
		switch {
		case err != nil && (sub.ReplyOn == ReplyError || sub.ReplyOn == ReplyAlways):
			reply = &Reply{ID: sub.ID, Result: SubMsgResult{Err: err.Error()}}
		case err != nil:
			return nil, err
		case sub.ReplyOn == ReplySuccess || sub.ReplyOn == ReplyAlways:
			reply = &Reply{ID: sub.ID, Result: SubMsgResult{Events: r.events, Data: r.data}}
		}
		if reply == nil {
			continue
		}

		rr, err := c.reply(ctx, kv, block, address, *reply)
		if err != nil {
			return nil, err
		}
		out.events = append(out.events, rr.events...)
		if rr.data != nil {
			out.data = rr.data
		}
	}
	return out, nil
}

func (c *Chain) reply(ctx context.Context, kv Storage, block Block, address string, reply Reply) (*dispatchResult, error) {
	inst, err := c.readInstance(kv, address)
	if err != nil {
		return nil, err
	}
	contract, err := c.code(inst.CodeId)
	if err != nil {
		return nil, err
	}
	replier, ok := contract.(Replier)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReplyNotSupported, address)
	}

	env := Env{Block: block, Contract: address}
	res, err := call(func() (*Response, error) {
		return replier.Reply(ctx, c.deps(kv, block, address), env, reply)
	})
	if err != nil {
		return nil, fmt.Errorf("reply %s %d: %w", address, reply.ID, err)
	}
	return c.process(ctx, kv, block, address, res)
}

func (c *Chain) query(ctx context.Context, kv Storage, block Block, address string, msg []byte) ([]byte, error) {
	inst, err := c.readInstance(kv, address)
	if err != nil {
		return nil, err
	}
	contract, err := c.code(inst.CodeId)
	if err != nil {
		return nil, err
	}
	deps := c.deps(readOnlyStorage{kv}, block, address)
	env := Env{Block: block, Contract: address}

	var out []byte
	_, err = call(func() (*Response, error) {
		res, err := contract.Query(ctx, deps, env, msg)
		out = res
		return nil, err
	})
	return out, err
}

func (c *Chain) deps(kv Storage, block Block, address string) Deps {
	return Deps{
		Storage: NewPrefixStorage(kv, []byte(prefixContractState+address+":")),
		Querier: &querier{chain: c, kv: kv, block: block},
	}
}

func (c *Chain) code(id uint64) (Contract, error) {
	if id == 0 || id > uint64(len(c.codes)) {
		return nil, fmt.Errorf("%w: %d", ErrCodeNotFound, id)
	}
	return c.codes[id-1], nil
}

func (c *Chain) readInstance(kv Storage, address string) (*ContractInstance, error) {
	val, err := kv.Get([]byte(prefixContractInstance + address))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, address)
	}
	var inst ContractInstance
	err = common.MsgpackUnmarshal(val, &inst)
	return &inst, err
}

func (c *Chain) nextAddress(kv Storage) (string, error) {
	seq, err := NextSequence(kv, []byte(keyContractSequence))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("contract%d", seq), nil
}

// querier lets a running contract read other contracts, including the
// writes of the transaction still in progress.
type querier struct {
	chain *Chain
	kv    Storage
	block Block
}

func (q *querier) QuerySmart(ctx context.Context, contract string, msg []byte) ([]byte, error) {
	return q.chain.query(ctx, q.kv, q.block, contract, msg)
}

func call(fn func() (*Response, error)) (res *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: %v", ErrContractPanic, r)
		}
	}()
	return fn()
}
