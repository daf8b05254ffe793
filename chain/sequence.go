package chain

import (
	"encoding/binary"
	"fmt"
)

// NextSequence returns the current value stored under key, starting from 0,
// and persists the increment in the same storage.
func NextSequence(kv Storage, key []byte) (uint64, error) {
	val, err := kv.Get(key)
	if err != nil {
		return 0, err
	}
	var seq uint64
	switch len(val) {
	case 0:
	case 8:
		seq = binary.BigEndian.Uint64(val)
	default:
		return 0, fmt.Errorf("invalid sequence %x", val)
	}
	err = kv.Set(key, binary.BigEndian.AppendUint64(nil, seq+1))
	return seq, err
}
