package fractional

import (
	"github.com/MixinNetwork/fractional/collectible"
	"github.com/MixinNetwork/fractional/fungible"
)

// InstantiateMsg zero values take the package defaults.
type InstantiateMsg struct {
	FungibleCodeId uint64 `msgpack:",omitempty"`
	Decimals       uint8  `msgpack:",omitempty"`
	DefaultName    string `msgpack:",omitempty"`
	DefaultSymbol  string `msgpack:",omitempty"`
}

// Fractionalize is the direct request style: the caller still owns the NFT
// and has approved this contract to take it.
type Fractionalize struct {
	Collection string
	TokenId    string
	Owners     []fungible.Coin
	Name       string `msgpack:",omitempty"`
	Symbol     string `msgpack:",omitempty"`
}

// ExecuteMsg is a closed variant, exactly one field must be set.
type ExecuteMsg struct {
	Fractionalize *Fractionalize          `msgpack:",omitempty"`
	ReceiveNft    *collectible.ReceiveNft `msgpack:",omitempty"`
	Receive       *fungible.Receive       `msgpack:",omitempty"`
}

type FractionalizeHook struct {
	Owners []fungible.Coin
	Name   string `msgpack:",omitempty"`
	Symbol string `msgpack:",omitempty"`
}

type UnfractionalizeHook struct {
	Recipient string `msgpack:",omitempty"`
}

// ReceiveMsg is embedded in the notifications sent by the collection and
// by the fungible token, exactly one field must be set.
type ReceiveMsg struct {
	Fractionalize   *FractionalizeHook   `msgpack:",omitempty"`
	Unfractionalize *UnfractionalizeHook `msgpack:",omitempty"`
}

type Pair struct {
	Collection string
	TokenId    string
}

type ResolveNft struct {
	TokenAddress string
}

type ListRecords struct {
	StartAfter *Pair  `msgpack:",omitempty"`
	Limit      uint32 `msgpack:",omitempty"`
}

type QueryMsg struct {
	ResolveTokenAddress *Pair        `msgpack:",omitempty"`
	ResolveNft          *ResolveNft  `msgpack:",omitempty"`
	CountActive         *struct{}    `msgpack:",omitempty"`
	ListRecords         *ListRecords `msgpack:",omitempty"`
	ContractInfo        *struct{}    `msgpack:",omitempty"`
	Pending             *Pair        `msgpack:",omitempty"`
}

type TokenAddressResponse struct {
	Address string
}

type NftResponse struct {
	Collection string
	TokenId    string
}

type CountResponse struct {
	Count uint64
}

type RecordsResponse struct {
	Records []*Record
}

type ContractInfoResponse struct {
	Contract string
	Version  string
	Config   Config
}

type PendingResponse struct {
	Pending bool
	Id      uint64
}
