package collectible

type InstantiateMsg struct {
	Name   string
	Symbol string
	Minter string
}

type Mint struct {
	TokenId  string
	Owner    string
	TokenUri string `msgpack:",omitempty"`
}

type Approve struct {
	Spender string
	TokenId string
}

type Revoke struct {
	Spender string
	TokenId string
}

type TransferNft struct {
	Recipient string
	TokenId   string
}

// SendNft transfers the token to Contract and notifies it with a ReceiveNft
// carrying Msg.
type SendNft struct {
	Contract string
	TokenId  string
	Msg      []byte
}

type ExecuteMsg struct {
	Mint        *Mint        `msgpack:",omitempty"`
	Approve     *Approve     `msgpack:",omitempty"`
	Revoke      *Revoke      `msgpack:",omitempty"`
	TransferNft *TransferNft `msgpack:",omitempty"`
	SendNft     *SendNft     `msgpack:",omitempty"`
}

type ReceiveNft struct {
	Sender  string
	TokenId string
	Msg     []byte
}

type ReceiveNftHook struct {
	ReceiveNft *ReceiveNft `msgpack:",omitempty"`
}

type OwnerOfQuery struct {
	TokenId string
}

type QueryMsg struct {
	OwnerOf      *OwnerOfQuery `msgpack:",omitempty"`
	NumTokens    *struct{}     `msgpack:",omitempty"`
	ContractInfo *struct{}     `msgpack:",omitempty"`
}

type OwnerOfResponse struct {
	Owner     string
	Approvals []string
}

type NumTokensResponse struct {
	Count uint64
}

type ContractInfoResponse struct {
	Name   string
	Symbol string
}
