package fractional

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/MixinNetwork/fractional/chain"
	"github.com/MixinNetwork/mixin/common"
)

const (
	keyContractVersion = "CONTRACT:VERSION"
	keyContractConfig  = "CONTRACT:CONFIG"

	prefixRecordPayload = "RECORD:PAYLOAD:"
	prefixRecordToken   = "RECORD:TOKEN:"

	prefixPendingPayload = "PENDING:PAYLOAD:"
	prefixPendingPair    = "PENDING:PAIR:"
	keyPendingSequence   = "PENDING:SEQUENCE"
)

type ContractVersion struct {
	Contract string
	Version  string
}

// Config is written once by instantiate and only read afterwards.
type Config struct {
	FungibleCodeId uint64
	Decimals       uint8
	DefaultName    string
	DefaultSymbol  string
	Creator        string
}

// Record is an active fractionalization, its existence means the contract
// holds the NFT.
type Record struct {
	Collection   string
	TokenId      string
	TokenAddress string
	Height       uint64
	CreatedAt    time.Time
}

// Pending is a fractionalization waiting for the token creation reply,
// keyed by the reply id that correlates the two.
type Pending struct {
	Id         uint64
	Collection string
	TokenId    string
	Sender     string
	Height     uint64
	CreatedAt  time.Time
}

func pairKey(collection, tokenId string) []byte {
	key := binary.BigEndian.AppendUint16(nil, uint16(len(collection)))
	key = append(key, collection...)
	return append(key, tokenId...)
}

func readConfig(kv chain.Storage) (*Config, error) {
	val, err := kv.Get([]byte(keyContractConfig))
	if err != nil || val == nil {
		return nil, err
	}
	var cfg Config
	err = common.MsgpackUnmarshal(val, &cfg)
	return &cfg, err
}

func readContractVersion(kv chain.Storage) (*ContractVersion, error) {
	val, err := kv.Get([]byte(keyContractVersion))
	if err != nil || val == nil {
		return nil, err
	}
	var cv ContractVersion
	err = common.MsgpackUnmarshal(val, &cv)
	return &cv, err
}

func writeContract(kv chain.Storage, cv *ContractVersion, cfg *Config) error {
	err := kv.Set([]byte(keyContractVersion), common.MsgpackMarshalPanic(cv))
	if err != nil {
		return err
	}
	return kv.Set([]byte(keyContractConfig), common.MsgpackMarshalPanic(cfg))
}

func readRecord(kv chain.Storage, collection, tokenId string) (*Record, error) {
	key := append([]byte(prefixRecordPayload), pairKey(collection, tokenId)...)
	val, err := kv.Get(key)
	if err != nil || val == nil {
		return nil, err
	}
	var r Record
	err = common.MsgpackUnmarshal(val, &r)
	return &r, err
}

func readRecordByToken(kv chain.Storage, tokenAddress string) (*Record, error) {
	pair, err := kv.Get([]byte(prefixRecordToken + tokenAddress))
	if err != nil || pair == nil {
		return nil, err
	}
	val, err := kv.Get(append([]byte(prefixRecordPayload), pair...))
	if err != nil {
		return nil, err
	}
	if val == nil {
		panic(tokenAddress)
	}
	var r Record
	err = common.MsgpackUnmarshal(val, &r)
	return &r, err
}

// writeRecord stores the record and its reverse index together.
func writeRecord(kv chain.Storage, r *Record) error {
	pair := pairKey(r.Collection, r.TokenId)
	err := kv.Set(append([]byte(prefixRecordPayload), pair...), common.MsgpackMarshalPanic(r))
	if err != nil {
		return err
	}
	return kv.Set([]byte(prefixRecordToken+r.TokenAddress), pair)
}

func deleteRecord(kv chain.Storage, r *Record) error {
	err := kv.Delete(append([]byte(prefixRecordPayload), pairKey(r.Collection, r.TokenId)...))
	if err != nil {
		return err
	}
	return kv.Delete([]byte(prefixRecordToken + r.TokenAddress))
}

func listRecords(kv chain.Storage, startAfter *Pair, limit int) ([]*Record, error) {
	var after []byte
	if startAfter != nil {
		after = pairKey(startAfter.Collection, startAfter.TokenId)
	}
	var records []*Record
	err := kv.Iterate([]byte(prefixRecordPayload), func(key, val []byte) error {
		if len(records) == limit {
			return nil
		}
		if after != nil && bytes.Compare(key[len(prefixRecordPayload):], after) <= 0 {
			return nil
		}
		var r Record
		err := common.MsgpackUnmarshal(val, &r)
		if err != nil {
			return err
		}
		records = append(records, &r)
		return nil
	})
	return records, err
}

func countRecords(kv chain.Storage) (uint64, error) {
	var count uint64
	err := kv.Iterate([]byte(prefixRecordPayload), func(key, val []byte) error {
		count++
		return nil
	})
	return count, err
}

func pendingKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte(prefixPendingPayload), id)
}

// nextPendingId starts from 1, a reply id of 0 never correlates.
func nextPendingId(kv chain.Storage) (uint64, error) {
	seq, err := chain.NextSequence(kv, []byte(keyPendingSequence))
	return seq + 1, err
}

func readPending(kv chain.Storage, id uint64) (*Pending, error) {
	val, err := kv.Get(pendingKey(id))
	if err != nil || val == nil {
		return nil, err
	}
	var p Pending
	err = common.MsgpackUnmarshal(val, &p)
	return &p, err
}

func readPendingByPair(kv chain.Storage, collection, tokenId string) (*Pending, error) {
	val, err := kv.Get(append([]byte(prefixPendingPair), pairKey(collection, tokenId)...))
	if err != nil || val == nil {
		return nil, err
	}
	if len(val) != 8 {
		panic(val)
	}
	return readPending(kv, binary.BigEndian.Uint64(val))
}

func writePending(kv chain.Storage, p *Pending) error {
	err := kv.Set(pendingKey(p.Id), common.MsgpackMarshalPanic(p))
	if err != nil {
		return err
	}
	key := append([]byte(prefixPendingPair), pairKey(p.Collection, p.TokenId)...)
	return kv.Set(key, binary.BigEndian.AppendUint64(nil, p.Id))
}

func deletePending(kv chain.Storage, p *Pending) error {
	err := kv.Delete(pendingKey(p.Id))
	if err != nil {
		return err
	}
	return kv.Delete(append([]byte(prefixPendingPair), pairKey(p.Collection, p.TokenId)...))
}
