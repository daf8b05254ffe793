package chain

import (
	"fmt"
	"time"

	"github.com/MixinNetwork/mixin/common"
)

const (
	ReplyNever = iota
	ReplySuccess
	ReplyError
	ReplyAlways
)

type Block struct {
	Height uint64
	Time   time.Time
}

type Env struct {
	Block    Block
	Contract string
}

type MessageInfo struct {
	Sender string
}

type InstantiateContract struct {
	CodeId uint64
	Msg    []byte
	Label  string
}

type ExecuteContract struct {
	Contract string
	Msg      []byte
}

// Message is a tagged union, exactly one of the fields is set.
type Message struct {
	Instantiate *InstantiateContract `msgpack:",omitempty"`
	Execute     *ExecuteContract     `msgpack:",omitempty"`
}

func (m Message) validate() error {
	switch {
	case m.Instantiate != nil && m.Execute == nil:
		return nil
	case m.Execute != nil && m.Instantiate == nil:
		return nil
	}
	return fmt.Errorf("%w: message must set exactly one variant", ErrInvalidMessage)
}

func NewExecute(contract string, msg interface{}) Message {
	return Message{Execute: &ExecuteContract{
		Contract: contract,
		Msg:      common.MsgpackMarshalPanic(msg),
	}}
}

func NewInstantiate(codeId uint64, msg interface{}, label string) Message {
	return Message{Instantiate: &InstantiateContract{
		CodeId: codeId,
		Msg:    common.MsgpackMarshalPanic(msg),
		Label:  label,
	}}
}

type SubMsg struct {
	ID      uint64
	Msg     Message
	ReplyOn int
}

type Attribute struct {
	Key   string
	Value string
}

type Event struct {
	Contract   string
	Attributes []Attribute
}

type Response struct {
	Messages   []SubMsg
	Attributes []Attribute
	Data       []byte
}

func NewResponse() *Response {
	return &Response{}
}

func (r *Response) AddMessage(msg Message) *Response {
	r.Messages = append(r.Messages, SubMsg{Msg: msg, ReplyOn: ReplyNever})
	return r
}

func (r *Response) AddSubMessage(sub SubMsg) *Response {
	r.Messages = append(r.Messages, sub)
	return r
}

func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

func (r *Response) SetData(data []byte) *Response {
	r.Data = data
	return r
}

type SubMsgResult struct {
	Events []Event
	Data   []byte
	Err    string
}

func (r SubMsgResult) IsOk() bool {
	return r.Err == ""
}

type Reply struct {
	ID     uint64
	Result SubMsgResult
}

// Result is what an external caller observes after a committed transaction.
type Result struct {
	TraceId string
	Events  []Event
	Data    []byte
}

// Attribute returns the first value of key emitted by contract, if any.
func (r *Result) Attribute(contract, key string) (string, bool) {
	for _, ev := range r.Events {
		if ev.Contract != contract {
			continue
		}
		for _, a := range ev.Attributes {
			if a.Key == key {
				return a.Value, true
			}
		}
	}
	return "", false
}
