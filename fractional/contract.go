package fractional

import (
	"context"
	"fmt"
	"strconv"

	"github.com/MixinNetwork/fractional/chain"
	"github.com/MixinNetwork/fractional/collectible"
	"github.com/MixinNetwork/fractional/fungible"
	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/mixin/logger"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ContractName = "fractional-nft"
	Version      = "0.1.0"

	DefaultFungibleCodeId = 1
	DefaultDecimals       = 6
	DefaultName           = "Fractional Token"
	DefaultSymbol         = "FRAC"

	defaultListLimit = 10
	maxListLimit     = 30
)

// Contract locks an NFT in its own custody and mints a fungible supply
// for it, then releases the NFT to whoever returns the entire supply.
type Contract struct {
	metrics *metrics
}

func NewContract(reg prometheus.Registerer) *Contract {
	return &Contract{metrics: newMetrics(reg)}
}

func (*Contract) Instantiate(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, raw []byte) (*chain.Response, error) {
	var msg InstantiateMsg
	err := common.MsgpackUnmarshal(raw, &msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	old, err := readContractVersion(deps.Storage)
	if err != nil {
		return nil, err
	}
	if old != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrAlreadyInitialized, old.Contract, old.Version)
	}

	cfg := &Config{
		FungibleCodeId: msg.FungibleCodeId,
		Decimals:       msg.Decimals,
		DefaultName:    msg.DefaultName,
		DefaultSymbol:  msg.DefaultSymbol,
		Creator:        info.Sender,
	}
	if cfg.FungibleCodeId == 0 {
		cfg.FungibleCodeId = DefaultFungibleCodeId
	}
	if cfg.Decimals == 0 {
		cfg.Decimals = DefaultDecimals
	}
	if cfg.DefaultName == "" {
		cfg.DefaultName = DefaultName
	}
	if cfg.DefaultSymbol == "" {
		cfg.DefaultSymbol = DefaultSymbol
	}
	cv := &ContractVersion{Contract: ContractName, Version: Version}
	err = writeContract(deps.Storage, cv, cfg)
	if err != nil {
		return nil, err
	}
	return chain.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("contract", ContractName).
		AddAttribute("version", Version), nil
}

func (c *Contract) Execute(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, raw []byte) (*chain.Response, error) {
	var msg ExecuteMsg
	err := common.MsgpackUnmarshal(raw, &msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if variants(msg.Fractionalize != nil, msg.ReceiveNft != nil, msg.Receive != nil) != 1 {
		return nil, fmt.Errorf("%w: execute message must set exactly one variant", ErrSerialization)
	}

	switch {
	case msg.Fractionalize != nil:
		res, err := c.fractionalize(ctx, deps, env, info, msg.Fractionalize)
		c.metrics.fractionalize.WithLabelValues(errorKind(err)).Inc()
		return res, err
	case msg.ReceiveNft != nil:
		res, err := c.receiveNft(ctx, deps, env, info, msg.ReceiveNft)
		c.metrics.fractionalize.WithLabelValues(errorKind(err)).Inc()
		return res, err
	default:
		res, err := c.receive(ctx, deps, env, info, msg.Receive)
		c.metrics.unfractionalize.WithLabelValues(errorKind(err)).Inc()
		return res, err
	}
}

// fractionalize takes the NFT from its owner, who must have approved this
// contract on the collection beforehand.
func (c *Contract) fractionalize(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, msg *Fractionalize) (*chain.Response, error) {
	if msg.Collection == "" || msg.TokenId == "" {
		return nil, fmt.Errorf("%w: empty collection or token id", ErrSerialization)
	}
	err := checkUntracked(deps.Storage, msg.Collection, msg.TokenId)
	if err != nil {
		return nil, err
	}
	err = checkOwner(ctx, deps.Querier, msg.Collection, msg.TokenId, info.Sender)
	if err != nil {
		return nil, err
	}
	res, err := c.request(deps, env, info.Sender, msg.Collection, msg.TokenId, msg.Owners, msg.Name, msg.Symbol)
	if err != nil {
		return nil, err
	}
	transfer := &collectible.ExecuteMsg{TransferNft: &collectible.TransferNft{
		Recipient: env.Contract,
		TokenId:   msg.TokenId,
	}}
	return res.AddMessage(chain.NewExecute(msg.Collection, transfer)), nil
}

// receiveNft handles the notification of a collection that has already
// moved the NFT to this contract.
func (c *Contract) receiveNft(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, wrapped *collectible.ReceiveNft) (*chain.Response, error) {
	inner, err := decodeReceiveMsg(wrapped.Msg)
	if err != nil {
		return nil, err
	}
	if inner.Fractionalize == nil {
		return nil, fmt.Errorf("%w: nft notification must fractionalize", ErrUnauthorized)
	}
	collection, tokenId := info.Sender, wrapped.TokenId
	err = checkUntracked(deps.Storage, collection, tokenId)
	if err != nil {
		return nil, err
	}
	err = checkOwner(ctx, deps.Querier, collection, tokenId, env.Contract)
	if err != nil {
		return nil, err
	}
	hook := inner.Fractionalize
	return c.request(deps, env, wrapped.Sender, collection, tokenId, hook.Owners, hook.Name, hook.Symbol)
}

// request records the pending operation and asks the host to create the
// fungible token, the reply id carries the operation to the completion.
func (c *Contract) request(deps chain.Deps, env chain.Env, sender, collection, tokenId string, owners []fungible.Coin, name, symbol string) (*chain.Response, error) {
	err := validateShares(owners)
	if err != nil {
		return nil, err
	}
	cfg, err := readConfig(deps.Storage)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		panic(keyContractConfig)
	}
	if name == "" {
		name = cfg.DefaultName
	}
	if symbol == "" {
		symbol = cfg.DefaultSymbol
	}

	id, err := nextPendingId(deps.Storage)
	if err != nil {
		return nil, err
	}
	p := &Pending{
		Id:         id,
		Collection: collection,
		TokenId:    tokenId,
		Sender:     sender,
		Height:     env.Block.Height,
		CreatedAt:  env.Block.Time,
	}
	err = writePending(deps.Storage, p)
	if err != nil {
		return nil, err
	}

	create := &fungible.InstantiateMsg{
		Name:            name,
		Symbol:          symbol,
		Decimals:        cfg.Decimals,
		InitialBalances: owners,
	}
	label := fmt.Sprintf("fractional %s %s", collection, tokenId)
	logger.Verbosef("Contract.request(%s, %s, %s) PENDING %d\n", sender, collection, tokenId, id)
	return chain.NewResponse().
		AddAttribute("action", "fractionalize").
		AddAttribute("sender", sender).
		AddAttribute("collection", collection).
		AddAttribute("token_id", tokenId).
		AddAttribute("request_id", strconv.FormatUint(id, 10)).
		AddSubMessage(chain.SubMsg{
			ID:      id,
			Msg:     chain.NewInstantiate(cfg.FungibleCodeId, create, label),
			ReplyOn: chain.ReplySuccess,
		}), nil
}

// receive handles a fungible token sent back to this contract, the sender
// is the token contract and the amount already belongs to this contract.
func (c *Contract) receive(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, wrapped *fungible.Receive) (*chain.Response, error) {
	inner, err := decodeReceiveMsg(wrapped.Msg)
	if err != nil {
		return nil, err
	}
	if inner.Unfractionalize == nil {
		return nil, fmt.Errorf("%w: token notification must unfractionalize", ErrUnauthorized)
	}
	recipient := inner.Unfractionalize.Recipient
	if recipient == "" {
		recipient = wrapped.Sender
	}

	r, err := readRecordByToken(deps.Storage, info.Sender)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFractionalized, info.Sender)
	}

	var ti fungible.TokenInfoResponse
	err = chain.QueryInto(ctx, deps.Querier, r.TokenAddress, &fungible.QueryMsg{TokenInfo: &struct{}{}}, &ti)
	if err != nil {
		return nil, err
	}
	total, err := fungible.ParseAmount(ti.TotalSupply)
	if err != nil {
		return nil, err
	}
	amount, err := fungible.ParseAmount(wrapped.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if !amount.Equal(total) {
		return nil, fmt.Errorf("%w: %s of %s", ErrInsufficientFunds, amount, total)
	}

	err = deleteRecord(deps.Storage, r)
	if err != nil {
		return nil, err
	}
	logger.Verbosef("Contract.receive(%s, %s, %s) UNFRACTIONALIZED %s\n", wrapped.Sender, r.Collection, r.TokenId, recipient)

	transfer := &collectible.ExecuteMsg{TransferNft: &collectible.TransferNft{
		Recipient: recipient,
		TokenId:   r.TokenId,
	}}
	burn := &fungible.ExecuteMsg{Burn: &fungible.Burn{Amount: total.String()}}
	return chain.NewResponse().
		AddAttribute("action", "unfractionalize").
		AddAttribute("sender", wrapped.Sender).
		AddAttribute("recipient", recipient).
		AddAttribute("collection", r.Collection).
		AddAttribute("token_id", r.TokenId).
		AddAttribute("token_address", r.TokenAddress).
		AddMessage(chain.NewExecute(r.Collection, transfer)).
		AddMessage(chain.NewExecute(r.TokenAddress, burn)), nil
}

func (c *Contract) Reply(ctx context.Context, deps chain.Deps, env chain.Env, reply chain.Reply) (*chain.Response, error) {
	res, err := c.complete(deps, env, reply)
	c.metrics.replies.WithLabelValues(errorKind(err)).Inc()
	return res, err
}

func (c *Contract) complete(deps chain.Deps, env chain.Env, reply chain.Reply) (*chain.Response, error) {
	p, err := readPending(deps.Storage, reply.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: unknown reply %d", ErrProtocolViolation, reply.ID)
	}
	if !reply.Result.IsOk() {
		return nil, fmt.Errorf("%w: reply %d failed %s", ErrProtocolViolation, reply.ID, reply.Result.Err)
	}
	if len(reply.Result.Data) == 0 {
		return nil, fmt.Errorf("%w: reply %d without data", ErrProtocolViolation, reply.ID)
	}
	address, _, err := chain.ParseInstantiateResponse(reply.Result.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}

	old, err := readRecord(deps.Storage, p.Collection, p.TokenId)
	if err != nil {
		return nil, err
	}
	if old != nil {
		return nil, fmt.Errorf("%w: %s %s already tracked", ErrProtocolViolation, p.Collection, p.TokenId)
	}
	old, err = readRecordByToken(deps.Storage, address)
	if err != nil {
		return nil, err
	}
	if old != nil {
		return nil, fmt.Errorf("%w: token %s already tracked", ErrProtocolViolation, address)
	}

	r := &Record{
		Collection:   p.Collection,
		TokenId:      p.TokenId,
		TokenAddress: address,
		Height:       env.Block.Height,
		CreatedAt:    env.Block.Time,
	}
	err = writeRecord(deps.Storage, r)
	if err != nil {
		return nil, err
	}
	err = deletePending(deps.Storage, p)
	if err != nil {
		return nil, err
	}
	logger.Verbosef("Contract.complete(%d, %s, %s) FRACTIONALIZED %s\n", p.Id, p.Collection, p.TokenId, address)
	return chain.NewResponse().
		AddAttribute("action", "fractionalized").
		AddAttribute("collection", p.Collection).
		AddAttribute("token_id", p.TokenId).
		AddAttribute("token_address", address), nil
}

func (*Contract) Query(ctx context.Context, deps chain.Deps, env chain.Env, raw []byte) ([]byte, error) {
	var msg QueryMsg
	err := common.MsgpackUnmarshal(raw, &msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	set := variants(msg.ResolveTokenAddress != nil, msg.ResolveNft != nil, msg.CountActive != nil,
		msg.ListRecords != nil, msg.ContractInfo != nil, msg.Pending != nil)
	if set != 1 {
		return nil, fmt.Errorf("%w: query message must set exactly one variant", ErrSerialization)
	}

	switch {
	case msg.ResolveTokenAddress != nil:
		q := msg.ResolveTokenAddress
		r, err := readRecord(deps.Storage, q.Collection, q.TokenId)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, q.Collection, q.TokenId)
		}
		return common.MsgpackMarshalPanic(&TokenAddressResponse{Address: r.TokenAddress}), nil
	case msg.ResolveNft != nil:
		r, err := readRecordByToken(deps.Storage, msg.ResolveNft.TokenAddress)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, msg.ResolveNft.TokenAddress)
		}
		return common.MsgpackMarshalPanic(&NftResponse{Collection: r.Collection, TokenId: r.TokenId}), nil
	case msg.CountActive != nil:
		count, err := countRecords(deps.Storage)
		if err != nil {
			return nil, err
		}
		return common.MsgpackMarshalPanic(&CountResponse{Count: count}), nil
	case msg.ListRecords != nil:
		limit := int(msg.ListRecords.Limit)
		if limit == 0 {
			limit = defaultListLimit
		}
		limit = min(limit, maxListLimit)
		records, err := listRecords(deps.Storage, msg.ListRecords.StartAfter, limit)
		if err != nil {
			return nil, err
		}
		return common.MsgpackMarshalPanic(&RecordsResponse{Records: records}), nil
	case msg.ContractInfo != nil:
		cv, err := readContractVersion(deps.Storage)
		if err != nil {
			return nil, err
		}
		cfg, err := readConfig(deps.Storage)
		if err != nil {
			return nil, err
		}
		if cv == nil || cfg == nil {
			return nil, fmt.Errorf("%w: contract not instantiated", ErrNotFound)
		}
		return common.MsgpackMarshalPanic(&ContractInfoResponse{
			Contract: cv.Contract,
			Version:  cv.Version,
			Config:   *cfg,
		}), nil
	default:
		p, err := readPendingByPair(deps.Storage, msg.Pending.Collection, msg.Pending.TokenId)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return common.MsgpackMarshalPanic(&PendingResponse{}), nil
		}
		return common.MsgpackMarshalPanic(&PendingResponse{Pending: true, Id: p.Id}), nil
	}
}

func checkUntracked(kv chain.Storage, collection, tokenId string) error {
	r, err := readRecord(kv, collection, tokenId)
	if err != nil {
		return err
	}
	if r != nil {
		return fmt.Errorf("%w: %s %s as %s", ErrAlreadyExists, collection, tokenId, r.TokenAddress)
	}
	p, err := readPendingByPair(kv, collection, tokenId)
	if err != nil {
		return err
	}
	if p != nil {
		return fmt.Errorf("%w: %s %s pending %d", ErrAlreadyExists, collection, tokenId, p.Id)
	}
	return nil
}

func checkOwner(ctx context.Context, q chain.Querier, collection, tokenId, owner string) error {
	var resp collectible.OwnerOfResponse
	query := &collectible.QueryMsg{OwnerOf: &collectible.OwnerOfQuery{TokenId: tokenId}}
	err := chain.QueryInto(ctx, q, collection, query, &resp)
	if err != nil {
		return fmt.Errorf("%w: owner of %s %s %v", ErrUnauthorized, collection, tokenId, err)
	}
	if resp.Owner != owner {
		return fmt.Errorf("%w: %s is not the owner of %s %s", ErrUnauthorized, owner, collection, tokenId)
	}
	return nil
}

func validateShares(owners []fungible.Coin) error {
	if len(owners) == 0 {
		return fmt.Errorf("%w: no owners", ErrInvalidShares)
	}
	seen := make(map[string]bool)
	for _, o := range owners {
		if o.Address == "" || seen[o.Address] {
			return fmt.Errorf("%w: owner %q", ErrInvalidShares, o.Address)
		}
		seen[o.Address] = true
		amt, err := fungible.ParseAmount(o.Amount)
		if err != nil || !amt.IsPositive() {
			return fmt.Errorf("%w: amount %q", ErrInvalidShares, o.Amount)
		}
	}
	return nil
}

func decodeReceiveMsg(raw []byte) (*ReceiveMsg, error) {
	var msg ReceiveMsg
	err := common.MsgpackUnmarshal(raw, &msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if variants(msg.Fractionalize != nil, msg.Unfractionalize != nil) != 1 {
		return nil, fmt.Errorf("%w: receive message must set exactly one variant", ErrSerialization)
	}
	return &msg, nil
}

func variants(set ...bool) int {
	var n int
	for _, s := range set {
		if s {
			n++
		}
	}
	return n
}
