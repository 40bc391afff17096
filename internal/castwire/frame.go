package castwire

import (
	"encoding/binary"
)

// lengthPrefixSize is the size in bytes of the big-endian u32 frame length
// that precedes every CastMessage on the wire.
const lengthPrefixSize = 4

// EncodeFrame serializes m and prepends its big-endian u32 length, producing
// one atomic frame ready to write to the wire.
func EncodeFrame(m *Message) []byte {
	body := m.Marshal()
	frame := make([]byte, lengthPrefixSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[lengthPrefixSize:], body)
	return frame
}

// Decoder accumulates bytes delivered in arbitrary chunks and extracts
// complete length-prefixed frames. Incomplete trailing bytes remain
// buffered across calls. A frame whose protobuf body fails to parse is
// dropped; subsequent frames still decode.
type Decoder struct {
	buf []byte
}

// Feed appends newly received bytes and returns every complete message that
// could be decoded from the accumulator, in wire order. A malformed frame
// body is skipped and its parse error (wrapping ErrMalformedMessage) is
// returned in the second result; the length-prefix framing itself is never
// ambiguous, so skipping a bad body does not desync the stream.
func (d *Decoder) Feed(chunk []byte) ([]*Message, []error) {
	d.buf = append(d.buf, chunk...)

	var msgs []*Message
	var errs []error
	for {
		if len(d.buf) < lengthPrefixSize {
			return msgs, errs
		}
		bodyLen := binary.BigEndian.Uint32(d.buf)
		total := lengthPrefixSize + int(bodyLen)
		if len(d.buf) < total {
			return msgs, errs
		}

		body := d.buf[lengthPrefixSize:total]
		d.buf = d.buf[total:]

		msg, err := Unmarshal(body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msgs = append(msgs, msg)
	}
}

// Pending returns the number of unconsumed buffered bytes, for diagnostics.
func (d *Decoder) Pending() int {
	return len(d.buf)
}
