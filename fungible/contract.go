package fungible

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/MixinNetwork/fractional/chain"
	"github.com/MixinNetwork/mixin/common"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrInvalidToken      = errors.New("invalid token info")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrCannotExceedCap   = errors.New("minting cannot exceed the cap")
)

const (
	keyTokenInfo  = "TOKEN:INFO"
	prefixBalance = "BALANCE:"
	maxDecimals   = 18
	minNameLength = 3
	maxNameLength = 50
)

var symbolPattern = regexp.MustCompile(`^[a-zA-Z\-]{3,12}$`)

type tokenInfo struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply string
	Minter      *Minter `msgpack:",omitempty"`
}

// Contract is a fungible token with balances, a total supply, transfer,
// send with a receive hook, burn and optional capped minting.
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
	if l := len(msg.Name); l < minNameLength || l > maxNameLength {
		return nil, fmt.Errorf("%w: name %q", ErrInvalidToken, msg.Name)
	}
	if !symbolPattern.MatchString(msg.Symbol) {
		return nil, fmt.Errorf("%w: symbol %q", ErrInvalidToken, msg.Symbol)
	}
	if msg.Decimals > maxDecimals {
		return nil, fmt.Errorf("%w: decimals %d", ErrInvalidToken, msg.Decimals)
	}

	total := decimal.Zero
	seen := make(map[string]bool)
	for _, c := range msg.InitialBalances {
		if c.Address == "" || seen[c.Address] {
			return nil, fmt.Errorf("%w: initial balance address %q", ErrInvalidMessage, c.Address)
		}
		seen[c.Address] = true
		amt, err := ParseAmount(c.Amount)
		if err != nil {
			return nil, err
		}
		err = writeBalance(deps.Storage, c.Address, amt)
		if err != nil {
			return nil, err
		}
		total = total.Add(amt)
	}
	if msg.Mint != nil && msg.Mint.Cap != "" {
		limit, err := ParseAmount(msg.Mint.Cap)
		if err != nil {
			return nil, err
		}
		if total.GreaterThan(limit) {
			return nil, ErrCannotExceedCap
		}
	}

	ti := &tokenInfo{
		Name:        msg.Name,
		Symbol:      msg.Symbol,
		Decimals:    msg.Decimals,
		TotalSupply: total.String(),
		Minter:      msg.Mint,
	}
	err = deps.Storage.Set([]byte(keyTokenInfo), common.MsgpackMarshalPanic(ti))
	if err != nil {
		return nil, err
	}
	return chain.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("total_supply", ti.TotalSupply), nil
}

func (c *Contract) Execute(ctx context.Context, deps chain.Deps, env chain.Env, info chain.MessageInfo, raw []byte) (*chain.Response, error) {
	var msg ExecuteMsg
	err := common.MsgpackUnmarshal(raw, &msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch {
	case msg.Transfer != nil:
		return c.transfer(deps, info, msg.Transfer)
	case msg.Burn != nil:
		return c.burn(deps, info, msg.Burn)
	case msg.Send != nil:
		return c.send(deps, info, msg.Send)
	case msg.Mint != nil:
		return c.mint(deps, info, msg.Mint)
	}
	return nil, fmt.Errorf("%w: empty execute message", ErrInvalidMessage)
}

func (*Contract) transfer(deps chain.Deps, info chain.MessageInfo, msg *Transfer) (*chain.Response, error) {
	amt, err := parsePositive(msg.Amount)
	if err != nil {
		return nil, err
	}
	if msg.Recipient == "" {
		return nil, fmt.Errorf("%w: empty recipient", ErrInvalidMessage)
	}
	err = move(deps.Storage, info.Sender, msg.Recipient, amt)
	if err != nil {
		return nil, err
	}
	return chain.NewResponse().
		AddAttribute("action", "transfer").
		AddAttribute("from", info.Sender).
		AddAttribute("to", msg.Recipient).
		AddAttribute("amount", amt.String()), nil
}

func (*Contract) burn(deps chain.Deps, info chain.MessageInfo, msg *Burn) (*chain.Response, error) {
	amt, err := parsePositive(msg.Amount)
	if err != nil {
		return nil, err
	}
	bal, err := readBalance(deps.Storage, info.Sender)
	if err != nil {
		return nil, err
	}
	if bal.LessThan(amt) {
		return nil, fmt.Errorf("%w: %s < %s", ErrInsufficientFunds, bal, amt)
	}
	err = writeBalance(deps.Storage, info.Sender, bal.Sub(amt))
	if err != nil {
		return nil, err
	}

	ti, err := readTokenInfo(deps.Storage)
	if err != nil {
		return nil, err
	}
	total, err := ParseAmount(ti.TotalSupply)
	if err != nil {
		return nil, err
	}
	ti.TotalSupply = total.Sub(amt).String()
	err = deps.Storage.Set([]byte(keyTokenInfo), common.MsgpackMarshalPanic(ti))
	if err != nil {
		return nil, err
	}
	return chain.NewResponse().
		AddAttribute("action", "burn").
		AddAttribute("from", info.Sender).
		AddAttribute("amount", amt.String()), nil
}

func (*Contract) send(deps chain.Deps, info chain.MessageInfo, msg *Send) (*chain.Response, error) {
	amt, err := parsePositive(msg.Amount)
	if err != nil {
		return nil, err
	}
	if msg.Contract == "" {
		return nil, fmt.Errorf("%w: empty contract", ErrInvalidMessage)
	}
	err = move(deps.Storage, info.Sender, msg.Contract, amt)
	if err != nil {
		return nil, err
	}
	hook := &ReceiveHook{Receive: &Receive{
		Sender: info.Sender,
		Amount: amt.String(),
		Msg:    msg.Msg,
	}}
	return chain.NewResponse().
		AddAttribute("action", "send").
		AddAttribute("from", info.Sender).
		AddAttribute("to", msg.Contract).
		AddAttribute("amount", amt.String()).
		AddMessage(chain.NewExecute(msg.Contract, hook)), nil
}

func (*Contract) mint(deps chain.Deps, info chain.MessageInfo, msg *Mint) (*chain.Response, error) {
	amt, err := parsePositive(msg.Amount)
	if err != nil {
		return nil, err
	}
	if msg.Recipient == "" {
		return nil, fmt.Errorf("%w: empty recipient", ErrInvalidMessage)
	}
	ti, err := readTokenInfo(deps.Storage)
	if err != nil {
		return nil, err
	}
	if ti.Minter == nil || ti.Minter.Minter != info.Sender {
		return nil, ErrUnauthorized
	}
	total, err := ParseAmount(ti.TotalSupply)
	if err != nil {
		return nil, err
	}
	total = total.Add(amt)
	if ti.Minter.Cap != "" {
		limit, err := ParseAmount(ti.Minter.Cap)
		if err != nil {
			return nil, err
		}
		if total.GreaterThan(limit) {
			return nil, ErrCannotExceedCap
		}
	}
	bal, err := readBalance(deps.Storage, msg.Recipient)
	if err != nil {
		return nil, err
	}
	err = writeBalance(deps.Storage, msg.Recipient, bal.Add(amt))
	if err != nil {
		return nil, err
	}
	ti.TotalSupply = total.String()
	err = deps.Storage.Set([]byte(keyTokenInfo), common.MsgpackMarshalPanic(ti))
	if err != nil {
		return nil, err
	}
	return chain.NewResponse().
		AddAttribute("action", "mint").
		AddAttribute("to", msg.Recipient).
		AddAttribute("amount", amt.String()), nil
}

func (*Contract) Query(ctx context.Context, deps chain.Deps, env chain.Env, raw []byte) ([]byte, error) {
	var msg QueryMsg
	err := common.MsgpackUnmarshal(raw, &msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch {
	case msg.Balance != nil:
		bal, err := readBalance(deps.Storage, msg.Balance.Address)
		if err != nil {
			return nil, err
		}
		return common.MsgpackMarshalPanic(&BalanceResponse{Balance: bal.String()}), nil
	case msg.TokenInfo != nil:
		ti, err := readTokenInfo(deps.Storage)
		if err != nil {
			return nil, err
		}
		return common.MsgpackMarshalPanic(&TokenInfoResponse{
			Name:        ti.Name,
			Symbol:      ti.Symbol,
			Decimals:    ti.Decimals,
			TotalSupply: ti.TotalSupply,
		}), nil
	}
	return nil, fmt.Errorf("%w: empty query message", ErrInvalidMessage)
}

func move(kv chain.Storage, from, to string, amt decimal.Decimal) error {
	bal, err := readBalance(kv, from)
	if err != nil {
		return err
	}
	if bal.LessThan(amt) {
		return fmt.Errorf("%w: %s < %s", ErrInsufficientFunds, bal, amt)
	}
	err = writeBalance(kv, from, bal.Sub(amt))
	if err != nil {
		return err
	}
	rb, err := readBalance(kv, to)
	if err != nil {
		return err
	}
	return writeBalance(kv, to, rb.Add(amt))
}

func readBalance(kv chain.Storage, address string) (decimal.Decimal, error) {
	val, err := kv.Get([]byte(prefixBalance + address))
	if err != nil || val == nil {
		return decimal.Zero, err
	}
	return ParseAmount(string(val))
}

func writeBalance(kv chain.Storage, address string, amt decimal.Decimal) error {
	key := []byte(prefixBalance + address)
	if amt.IsZero() {
		return kv.Delete(key)
	}
	return kv.Set(key, []byte(amt.String()))
}

func readTokenInfo(kv chain.Storage) (*tokenInfo, error) {
	val, err := kv.Get([]byte(keyTokenInfo))
	if err != nil {
		return nil, err
	}
	if val == nil {
		panic(keyTokenInfo)
	}
	var ti tokenInfo
	err = common.MsgpackUnmarshal(val, &ti)
	return &ti, err
}
