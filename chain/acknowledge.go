package chain

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// The instantiate acknowledgement is the protobuf message
//
//	message MsgInstantiateContractResponse {
//	  string address = 1;
//	  bytes data = 2;
//	}
const (
	acknowledgeFieldAddress protowire.Number = 1
	acknowledgeFieldData    protowire.Number = 2
)

func EncodeInstantiateResponse(address string, data []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, acknowledgeFieldAddress, protowire.BytesType)
	b = protowire.AppendString(b, address)
	if len(data) > 0 {
		b = protowire.AppendTag(b, acknowledgeFieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, data)
	}
	return b
}

func ParseInstantiateResponse(b []byte) (string, []byte, error) {
	var address string
	var data []byte
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidAcknowledge, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == acknowledgeFieldAddress && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", nil, fmt.Errorf("%w: address %v", ErrInvalidAcknowledge, protowire.ParseError(n))
			}
			address, b = v, b[n:]
		case num == acknowledgeFieldData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return "", nil, fmt.Errorf("%w: data %v", ErrInvalidAcknowledge, protowire.ParseError(n))
			}
			data, b = append([]byte(nil), v...), b[n:]
		case num == acknowledgeFieldAddress || num == acknowledgeFieldData:
			return "", nil, fmt.Errorf("%w: field %d has wire type %d", ErrInvalidAcknowledge, num, typ)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", nil, fmt.Errorf("%w: %v", ErrInvalidAcknowledge, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if address == "" {
		return "", nil, fmt.Errorf("%w: empty address", ErrInvalidAcknowledge)
	}
	return address, data, nil
}
