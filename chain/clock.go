package chain

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

const clockStorePropertyKey = "CHAIN:CLOCK:BLOCK"

// Clock hands out strictly increasing blocks and persists the last one, so
// heights and times never go backwards across restarts.
type Clock struct {
	sync.Mutex
	store Store
	block Block
}

func NewClock(store Store) (*Clock, error) {
	bs, err := store.ReadProperty([]byte(clockStorePropertyKey))
	if err != nil {
		return nil, err
	}
	clock := &Clock{store: store}
	switch len(bs) {
	case 0:
	case 16:
		clock.block.Height = binary.BigEndian.Uint64(bs[:8])
		clock.block.Time = time.Unix(0, int64(binary.BigEndian.Uint64(bs[8:])))
	default:
		return nil, fmt.Errorf("invalid clock property %x", bs)
	}
	return clock, nil
}

func (c *Clock) Now() Block {
	c.Lock()
	defer c.Unlock()

	return c.block
}

func (c *Clock) Next() (Block, error) {
	c.Lock()
	defer c.Unlock()

	next := Block{Height: c.block.Height + 1, Time: time.Now()}
	if !next.Time.After(c.block.Time) {
		next.Time = c.block.Time.Add(time.Nanosecond)
	}

	val := binary.BigEndian.AppendUint64(nil, next.Height)
	val = binary.BigEndian.AppendUint64(val, uint64(next.Time.UnixNano()))
	err := c.store.WriteProperty([]byte(clockStorePropertyKey), val)
	if err != nil {
		return Block{}, err
	}
	c.block = next
	return next, nil
}
