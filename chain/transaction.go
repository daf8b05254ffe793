package chain

import (
	"fmt"
	"time"

	"github.com/MixinNetwork/mixin/crypto"
	"github.com/fox-one/mixin-sdk-go"
	"github.com/gofrs/uuid"
)

const (
	TransactionStateCommitted = 10
	TransactionStateReverted  = 11
)

// Transaction is the journal entry of one externally triggered invocation.
type Transaction struct {
	TraceId   string
	State     int
	Sender    string
	Contract  string
	Msg       []byte
	Height    uint64
	Events    []Event
	Error     string
	Hash      crypto.Hash
	CreatedAt time.Time
}

func TransactionStateName(state int) string {
	switch state {
	case TransactionStateCommitted:
		return "committed"
	case TransactionStateReverted:
		return "reverted"
	}
	panic(state)
}

func ParseTransactionState(name string) (int, error) {
	switch name {
	case "committed":
		return TransactionStateCommitted, nil
	case "reverted":
		return TransactionStateReverted, nil
	}
	return 0, fmt.Errorf("invalid transaction state %s", name)
}

// every block carries exactly one transaction, so the height makes the trace id unique
func transactionTraceId(sender string, block Block) string {
	return mixin.UniqueConversationID(sender, fmt.Sprintf("BLOCK:%d", block.Height))
}

func buildTransaction(traceId, sender, contract string, raw []byte, block Block, out *dispatchResult, err error) (*Transaction, error) {
	id, uerr := uuid.FromString(traceId)
	if uerr != nil || id.String() == uuid.Nil.String() {
		return nil, fmt.Errorf("invalid trace id %s", traceId)
	}
	tx := &Transaction{
		TraceId:   traceId,
		State:     TransactionStateCommitted,
		Sender:    sender,
		Contract:  contract,
		Msg:       raw,
		Height:    block.Height,
		CreatedAt: block.Time,
	}
	tx.Hash = crypto.NewHash(append([]byte(traceId), raw...))
	if err != nil {
		tx.State = TransactionStateReverted
		tx.Error = err.Error()
	} else if out != nil {
		tx.Events = out.events
	}
	return tx, nil
}
