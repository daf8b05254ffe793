package fungible

type Coin struct {
	Address string
	Amount  string
}

type Minter struct {
	Minter string
	Cap    string `msgpack:",omitempty"`
}

type InstantiateMsg struct {
	Name            string
	Symbol          string
	Decimals        uint8
	InitialBalances []Coin
	Mint            *Minter `msgpack:",omitempty"`
}

type Transfer struct {
	Recipient string
	Amount    string
}

type Burn struct {
	Amount string
}

// Send moves Amount to Contract and notifies it with a Receive carrying Msg.
type Send struct {
	Contract string
	Amount   string
	Msg      []byte
}

type Mint struct {
	Recipient string
	Amount    string
}

type ExecuteMsg struct {
	Transfer *Transfer `msgpack:",omitempty"`
	Burn     *Burn     `msgpack:",omitempty"`
	Send     *Send     `msgpack:",omitempty"`
	Mint     *Mint     `msgpack:",omitempty"`
}

// Receive is delivered to the contract named in a Send, wrapped in the
// receiving contract's execute message under the Receive field.
type Receive struct {
	Sender string
	Amount string
	Msg    []byte
}

type ReceiveHook struct {
	Receive *Receive `msgpack:",omitempty"`
}

type BalanceQuery struct {
	Address string
}

type QueryMsg struct {
	Balance   *BalanceQuery `msgpack:",omitempty"`
	TokenInfo *struct{}     `msgpack:",omitempty"`
}

type BalanceResponse struct {
	Balance string
}

type TokenInfoResponse struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply string
}
