package castwire

import (
	"bytes"
	"reflect"
	"testing"
)

func sampleMessage(ns string) *Message {
	return &Message{
		ProtocolVersion: ProtocolVersionCastV2_1_0,
		SourceID:        "sender-0",
		DestinationID:   "receiver-0",
		Namespace:       ns,
		PayloadType:     PayloadTypeString,
		PayloadUTF8:     `{"type":"PING"}`,
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	m := sampleMessage("urn:x-cast:com.google.cast.tp.heartbeat")
	decoded, err := Unmarshal(m.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(decoded, m) {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, m)
	}
}

func TestDecoderMultiFrameArbitraryChunks(t *testing.T) {
	const n = 5
	var wire []byte
	for i := 0; i < n; i++ {
		wire = append(wire, EncodeFrame(sampleMessage("urn:x-cast:com.google.cast.media"))...)
	}

	// Feed the concatenated wire bytes in deliberately awkward chunk sizes.
	var got []*Message
	var d Decoder
	chunkSizes := []int{1, 3, 7, 50, 1000}
	offset := 0
	ci := 0
	for offset < len(wire) {
		size := chunkSizes[ci%len(chunkSizes)]
		ci++
		end := offset + size
		if end > len(wire) {
			end = len(wire)
		}
		msgs, errs := d.Feed(wire[offset:end])
		if len(errs) != 0 {
			t.Fatalf("unexpected parse errors: %v", errs)
		}
		got = append(got, msgs...)
		offset = end
	}

	if len(got) != n {
		t.Fatalf("got %d frames, want %d", len(got), n)
	}
	if d.Pending() != 0 {
		t.Fatalf("decoder has %d unconsumed bytes after feeding complete frames", d.Pending())
	}
}

func TestDecoderDropsMalformedFrameOnly(t *testing.T) {
	good1 := EncodeFrame(sampleMessage("urn:x-cast:com.google.cast.tp.connection"))
	good2 := EncodeFrame(sampleMessage("urn:x-cast:com.google.cast.receiver"))

	// A correctly length-prefixed frame whose 4-byte body is garbage: the
	// bytes form an unterminated varint, so the tag cannot be parsed.
	bad := make([]byte, 4+4)
	bad[3] = 4 // length = 4
	bad[4] = 0xFF
	bad[5] = 0xFF
	bad[6] = 0xFF
	bad[7] = 0xFF

	var wire []byte
	wire = append(wire, good1...)
	wire = append(wire, bad...)
	wire = append(wire, good2...)

	var d Decoder
	msgs, errs := d.Feed(wire)
	if len(msgs) != 2 {
		t.Fatalf("got %d decoded frames, want 2 (bad frame dropped): %v", len(msgs), msgs)
	}
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if !bytes.Equal(msgs[0].Marshal(), good1[4:]) {
		t.Fatalf("first frame mismatch")
	}
	if !bytes.Equal(msgs[1].Marshal(), good2[4:]) {
		t.Fatalf("second frame (after bad frame) mismatch")
	}
}
