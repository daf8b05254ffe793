package collectible

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/MixinNetwork/fractional/chain"
	"github.com/MixinNetwork/mixin/common"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTokenNotFound  = errors.New("token not found")
	ErrTokenClaimed   = errors.New("token already claimed")
)

const (
	keyCollectionInfo = "COLLECTION:INFO"
	prefixToken       = "TOKEN:"
)

type collectionInfo struct {
	Name   string
	Symbol string
	Minter string
}

type token struct {
	Owner     string
	Approvals []string
	TokenUri  string
}

// Contract is a non fungible token collection: a minter creates tokens,
// owners transfer them directly or through approved spenders.
type Contract struct{}

func NewContract() *Contract {
	return &Contract{}
}

func (*Contract) Instantiate(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, raw []byte) (*chain.Response, error) {
	var msg InstantiateMsg
	err := common.MsgpackUnmarshal(raw, &msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Minter == "" {
		return nil, fmt.Errorf("%w: empty minter", ErrInvalidMessage)
	}
	ci := &collectionInfo{Name: msg.Name, Symbol: msg.Symbol, Minter: msg.Minter}
	err = deps.Storage.Set([]byte(keyCollectionInfo), common.MsgpackMarshalPanic(ci))
	if err != nil {
		return nil, err
	}
	return chain.NewResponse().AddAttribute("action", "instantiate"), nil
}

func (c *Contract) Execute(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, raw []byte) (*chain.Response, error) {
	var msg ExecuteMsg
	err := common.MsgpackUnmarshal(raw, &msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch {
	case msg.Mint != nil:
		return c.mint(deps, info, msg.Mint)
	case msg.Approve != nil:
		return c.approve(deps, info, msg.Approve)
	case msg.Revoke != nil:
		return c.revoke(deps, info, msg.Revoke)
	case msg.TransferNft != nil:
		err := transfer(deps.Storage, info.Sender, msg.TransferNft.Recipient, msg.TransferNft.TokenId)
		if err != nil {
			return nil, err
		}
		return chain.NewResponse().
			AddAttribute("action", "transfer_nft").
			AddAttribute("sender", info.Sender).
			AddAttribute("recipient", msg.TransferNft.Recipient).
			AddAttribute("token_id", msg.TransferNft.TokenId), nil
	case msg.SendNft != nil:
		return c.send(deps, info, msg.SendNft)
	}
	return nil, fmt.Errorf("%w: empty execute message", ErrInvalidMessage)
}

func (*Contract) mint(deps chain.Deps, info chain.MessageInfo, msg *Mint) (*chain.Response, error) {
	ci, err := readCollectionInfo(deps.Storage)
	if err != nil {
		return nil, err
	}
	if ci.Minter != info.Sender {
		return nil, ErrUnauthorized
	}
	if msg.TokenId == "" || msg.Owner == "" {
		return nil, fmt.Errorf("%w: empty token id or owner", ErrInvalidMessage)
	}
	old, err := readToken(deps.Storage, msg.TokenId)
	if err != nil {
		return nil, err
	}
	if old != nil {
		return nil, fmt.Errorf("%w: %s", ErrTokenClaimed, msg.TokenId)
	}
	err = writeToken(deps.Storage, msg.TokenId, &token{Owner: msg.Owner, TokenUri: msg.TokenUri})
	if err != nil {
		return nil, err
	}
	return chain.NewResponse().
		AddAttribute("action", "mint").
		AddAttribute("owner", msg.Owner).
		AddAttribute("token_id", msg.TokenId), nil
}

func (*Contract) approve(deps chain.Deps, info chain.MessageInfo, msg *Approve) (*chain.Response, error) {
	t, err := mustReadToken(deps.Storage, msg.TokenId)
	if err != nil {
		return nil, err
	}
	if t.Owner != info.Sender {
		return nil, ErrUnauthorized
	}
	if !slices.Contains(t.Approvals, msg.Spender) {
		t.Approvals = append(t.Approvals, msg.Spender)
	}
	err = writeToken(deps.Storage, msg.TokenId, t)
	if err != nil {
		return nil, err
	}
	return chain.NewResponse().
		AddAttribute("action", "approve").
		AddAttribute("spender", msg.Spender).
		AddAttribute("token_id", msg.TokenId), nil
}

func (*Contract) revoke(deps chain.Deps, info chain.MessageInfo, msg *Revoke) (*chain.Response, error) {
	t, err := mustReadToken(deps.Storage, msg.TokenId)
	if err != nil {
		return nil, err
	}
	if t.Owner != info.Sender {
		return nil, ErrUnauthorized
	}
	t.Approvals = slices.DeleteFunc(t.Approvals, func(s string) bool { return s == msg.Spender })
	err = writeToken(deps.Storage, msg.TokenId, t)
	if err != nil {
		return nil, err
	}
	return chain.NewResponse().
		AddAttribute("action", "revoke").
		AddAttribute("spender", msg.Spender).
		AddAttribute("token_id", msg.TokenId), nil
}

func (*Contract) send(deps chain.Deps, info chain.MessageInfo, msg *SendNft) (*chain.Response, error) {
	err := transfer(deps.Storage, info.Sender, msg.Contract, msg.TokenId)
	if err != nil {
		return nil, err
	}
	hook := &ReceiveNftHook{ReceiveNft: &ReceiveNft{
		Sender:  info.Sender,
		TokenId: msg.TokenId,
		Msg:     msg.Msg,
	}}
	return chain.NewResponse().
		AddAttribute("action", "send_nft").
		AddAttribute("sender", info.Sender).
		AddAttribute("recipient", msg.Contract).
		AddAttribute("token_id", msg.TokenId).
		AddMessage(chain.NewExecute(msg.Contract, hook)), nil
}

func (*Contract) Query(ctx context.Context, deps chain.Deps, env chain.Env, raw []byte) ([]byte, error) {
	var msg QueryMsg
	err := common.MsgpackUnmarshal(raw, &msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch {
	case msg.OwnerOf != nil:
		t, err := mustReadToken(deps.Storage, msg.OwnerOf.TokenId)
		if err != nil {
			return nil, err
		}
		return common.MsgpackMarshalPanic(&OwnerOfResponse{Owner: t.Owner, Approvals: t.Approvals}), nil
	case msg.NumTokens != nil:
		var count uint64
		err := deps.Storage.Iterate([]byte(prefixToken), func(key, val []byte) error {
			count++
			return nil
		})
		if err != nil {
			return nil, err
		}
		return common.MsgpackMarshalPanic(&NumTokensResponse{Count: count}), nil
	case msg.ContractInfo != nil:
		ci, err := readCollectionInfo(deps.Storage)
		if err != nil {
			return nil, err
		}
		return common.MsgpackMarshalPanic(&ContractInfoResponse{Name: ci.Name, Symbol: ci.Symbol}), nil
	}
	return nil, fmt.Errorf("%w: empty query message", ErrInvalidMessage)
}

// transfer moves a token when sender owns it or is an approved spender,
// approvals never survive a change of owner.
func transfer(kv chain.Storage, sender, recipient, tokenId string) error {
	if recipient == "" {
		return fmt.Errorf("%w: empty recipient", ErrInvalidMessage)
	}
	t, err := mustReadToken(kv, tokenId)
	if err != nil {
		return err
	}
	if t.Owner != sender && !slices.Contains(t.Approvals, sender) {
		return fmt.Errorf("%w: %s can not transfer %s", ErrUnauthorized, sender, tokenId)
	}
	t.Owner = recipient
	t.Approvals = nil
	return writeToken(kv, tokenId, t)
}

func readCollectionInfo(kv chain.Storage) (*collectionInfo, error) {
	val, err := kv.Get([]byte(keyCollectionInfo))
	if err != nil {
		return nil, err
	}
	if val == nil {
		panic(keyCollectionInfo)
	}
	var ci collectionInfo
	err = common.MsgpackUnmarshal(val, &ci)
	return &ci, err
}

func mustReadToken(kv chain.Storage, id string) (*token, error) {
	t, err := readToken(kv, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, id)
	}
	return t, nil
}

func readToken(kv chain.Storage, id string) (*token, error) {
	val, err := kv.Get([]byte(prefixToken + id))
	if err != nil || val == nil {
		return nil, err
	}
	var t token
	err = common.MsgpackUnmarshal(val, &t)
	return &t, err
}

func writeToken(kv chain.Storage, id string, t *token) error {
	return kv.Set([]byte(prefixToken+id), common.MsgpackMarshalPanic(t))
}
