package midi

import (
	"fmt"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
)

const (
	// MaxVLQ is the largest value a four byte variable-length quantity can hold
	MaxVLQ uint32 = 0x0FFFFFFF

	vlqMaxBytes     = 4
	vlqPayloadBits  = 7
	vlqPayloadMask  = 0x7F
	vlqContinuation = 0x80
)

// EncodeVLQ encodes v as a MIDI variable-length quantity: 7 bits per byte,
// most significant group first, continuation bit on every byte but the last.
func EncodeVLQ(v uint32) ([]byte, error) {
	return AppendVLQ(nil, v)
}

// AppendVLQ appends the variable-length encoding of v to dst
func AppendVLQ(dst []byte, v uint32) ([]byte, error) {
	if v > MaxVLQ {
		return dst, fmt.Errorf("value %d exceeds variable-length quantity maximum %d", v, MaxVLQ)
	}

	var groups [vlqMaxBytes]byte
	n := 0
	for {
		groups[n] = byte(v & vlqPayloadMask)
		n++
		v >>= vlqPayloadBits
		if v == 0 {
			break
		}
	}

	for i := n - 1; i >= 0; i-- {
		b := groups[i]
		if i != 0 {
			b |= vlqContinuation
		}
		dst = append(dst, b)
	}
	return dst, nil
}

// DecodeVLQ reads a variable-length quantity from the start of data and
// returns the value and the number of bytes consumed.
func DecodeVLQ(data []byte) (uint32, int, error) {
	var v uint32
	for i := 0; i < vlqMaxBytes; i++ {
		if i >= len(data) {
			return 0, 0, apperr.New(apperr.MalformedMidi, "truncated variable-length quantity")
		}
		b := data[i]
		v = v<<vlqPayloadBits | uint32(b&vlqPayloadMask)
		if b&vlqContinuation == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, apperr.New(apperr.MalformedMidi, "variable-length quantity longer than four bytes")
}
