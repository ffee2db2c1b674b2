package fdtest

import (
	"bytes"
	"encoding/hex"
)

// Control bytes of the LR serial link.
const (
	STX  = 0x02
	ETX  = 0x03
	EOT  = 0x04
	ACK  = 0x06
	NACK = 0x15
)

// RelayControl prefixes payloads that travel through a Seriobus relay.
const RelayControl = 'W'

// IsRelayed reports whether a queued entry starts with a relay control byte:
// a non-zero first byte followed by a byte with the high bit set.
func IsRelayed(entry []byte) bool {
	return len(entry) > 1 && entry[0] != 0 && entry[1]&0x80 != 0
}

// SplitRelay separates the relay control byte from the payload. ctrl is zero
// for entries that are sent directly.
func SplitRelay(entry []byte) (ctrl byte, payload []byte) {
	if IsRelayed(entry) {
		return entry[0], entry[1:]
	}
	return 0, entry
}

// Frame builds outgoing envelopes and classifies incoming bytes.
type Frame struct {
	IncomingBuffer []byte
	OutgoingBuffer []byte
	OnControl      func(b byte)
	OnData         func(b byte)
}

// NewFrame returns a Frame with empty buffers.
func NewFrame() *Frame {
	return &Frame{
		IncomingBuffer: make([]byte, 0),
		OutgoingBuffer: make([]byte, 0),
	}
}

// BeginFrame resets the outgoing buffer to a lone STX.
func (f *Frame) BeginFrame() {
	f.OutgoingBuffer = []byte{STX}
}

// AppendByte appends b unencoded.
func (f *Frame) AppendByte(b byte) {
	f.OutgoingBuffer = append(f.OutgoingBuffer, b)
}

// AppendHex appends the hex text of payload, uppercase for relayed frames.
func (f *Frame) AppendHex(payload []byte, upper bool) {
	text := make([]byte, hex.EncodedLen(len(payload)))
	hex.Encode(text, payload)
	if upper {
		text = bytes.ToUpper(text)
	}
	f.OutgoingBuffer = append(f.OutgoingBuffer, text...)
}

// EndFrame terminates the outgoing buffer with ETX.
func (f *Frame) EndFrame() {
	f.OutgoingBuffer = append(f.OutgoingBuffer, ETX)
}

// Build wraps a queue entry: STX [relay byte] HEX(payload) ETX.
func (f *Frame) Build(entry []byte) []byte {
	ctrl, payload := SplitRelay(entry)

	f.BeginFrame()
	if ctrl != 0 {
		f.AppendByte(ctrl)
	}
	f.AppendHex(payload, ctrl != 0)
	f.EndFrame()

	out := make([]byte, len(f.OutgoingBuffer))
	copy(out, f.OutgoingBuffer)
	return out
}

// FeedByte dispatches control bytes and accumulates everything else.
func (f *Frame) FeedByte(b byte) {
	switch b {
	case ACK, NACK, STX, ETX, EOT:
		if f.OnControl != nil {
			f.OnControl(b)
		}
	default:
		f.IncomingBuffer = append(f.IncomingBuffer, b)
		if f.OnData != nil {
			f.OnData(b)
		}
	}
}

// BuildFrame is Build on a throwaway Frame.
func BuildFrame(entry []byte) []byte {
	return NewFrame().Build(entry)
}
