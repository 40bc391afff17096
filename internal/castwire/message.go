// Package castwire implements the length-prefixed protobuf framing used by
// the Google Cast v2 wire protocol: a big-endian u32 length followed by one
// CastMessage.
package castwire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ProtocolVersion mirrors the CastMessage.protocol_version enum. The core
// only ever speaks CASTV2_1_0.
type ProtocolVersion int32

const ProtocolVersionCastV2_1_0 ProtocolVersion = 0

// PayloadType mirrors the CastMessage.payload_type enum. The core only ever
// sends/receives STRING (UTF-8 JSON) payloads.
type PayloadType int32

const (
	PayloadTypeString PayloadType = 0
	PayloadTypeBinary PayloadType = 1
)

// Field numbers from the public cast_channel.proto schema.
const (
	fieldProtocolVersion = protowire.Number(1)
	fieldSourceID        = protowire.Number(2)
	fieldDestinationID   = protowire.Number(3)
	fieldNamespace       = protowire.Number(4)
	fieldPayloadType     = protowire.Number(5)
	fieldPayloadUTF8     = protowire.Number(6)
	fieldPayloadBinary   = protowire.Number(7)
)

// Message is one CastMessage: protocol_version, source_id, destination_id,
// namespace, payload_type, and exactly one of payload_utf8/payload_binary.
// The core only ever populates PayloadUTF8.
type Message struct {
	ProtocolVersion ProtocolVersion
	SourceID        string
	DestinationID   string
	Namespace       string
	PayloadType     PayloadType
	PayloadUTF8     string
	PayloadBinary   []byte
}

// Marshal serializes m to its wire protobuf form. Re-encoding a decoded
// message reproduces byte-identical field order, so decode(encode(m)) == m.
func (m *Message) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldProtocolVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ProtocolVersion))
	b = protowire.AppendTag(b, fieldSourceID, protowire.BytesType)
	b = protowire.AppendString(b, m.SourceID)
	b = protowire.AppendTag(b, fieldDestinationID, protowire.BytesType)
	b = protowire.AppendString(b, m.DestinationID)
	b = protowire.AppendTag(b, fieldNamespace, protowire.BytesType)
	b = protowire.AppendString(b, m.Namespace)
	b = protowire.AppendTag(b, fieldPayloadType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.PayloadType))
	if m.PayloadType == PayloadTypeBinary {
		b = protowire.AppendTag(b, fieldPayloadBinary, protowire.BytesType)
		b = protowire.AppendBytes(b, m.PayloadBinary)
	} else if m.PayloadUTF8 != "" {
		b = protowire.AppendTag(b, fieldPayloadUTF8, protowire.BytesType)
		b = protowire.AppendString(b, m.PayloadUTF8)
	}
	return b
}

// ErrMalformedMessage indicates a protobuf body that failed to parse; the
// caller discards this frame only, the stream continues.
var ErrMalformedMessage = errors.New("castwire: malformed CastMessage")

// Unmarshal parses a CastMessage from its wire protobuf form.
func Unmarshal(data []byte) (*Message, error) {
	m := &Message{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldProtocolVersion:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: protocol_version: %v", ErrMalformedMessage, protowire.ParseError(n))
			}
			m.ProtocolVersion = ProtocolVersion(v)
			data = data[n:]
		case fieldSourceID:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: source_id: %v", ErrMalformedMessage, protowire.ParseError(n))
			}
			m.SourceID = v
			data = data[n:]
		case fieldDestinationID:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: destination_id: %v", ErrMalformedMessage, protowire.ParseError(n))
			}
			m.DestinationID = v
			data = data[n:]
		case fieldNamespace:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: namespace: %v", ErrMalformedMessage, protowire.ParseError(n))
			}
			m.Namespace = v
			data = data[n:]
		case fieldPayloadType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: payload_type: %v", ErrMalformedMessage, protowire.ParseError(n))
			}
			m.PayloadType = PayloadType(v)
			data = data[n:]
		case fieldPayloadUTF8:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: payload_utf8: %v", ErrMalformedMessage, protowire.ParseError(n))
			}
			m.PayloadUTF8 = v
			data = data[n:]
		case fieldPayloadBinary:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: payload_binary: %v", ErrMalformedMessage, protowire.ParseError(n))
			}
			m.PayloadBinary = append([]byte(nil), v...)
			data = data[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: unknown field %d: %v", ErrMalformedMessage, num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return m, nil
}
