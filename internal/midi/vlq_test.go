package midi

import (
	"testing"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVLQ(t *testing.T) {
	tests := []struct {
		value    uint32
		expected []byte
	}{
		{0, []byte{0x00}},
		{0x40, []byte{0x40}},
		{127, []byte{0x7F}},
		{128, []byte{0x81, 0x00}},
		{480, []byte{0x83, 0x60}},
		{16383, []byte{0xFF, 0x7F}},
		{16384, []byte{0x81, 0x80, 0x00}},
		{0x1FFFFF, []byte{0xFF, 0xFF, 0x7F}},
		{0x200000, []byte{0x81, 0x80, 0x80, 0x00}},
		{MaxVLQ, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, tt := range tests {
		got, err := EncodeVLQ(tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got, "value %d", tt.value)

		decoded, n, err := DecodeVLQ(got)
		require.NoError(t, err)
		assert.Equal(t, tt.value, decoded)
		assert.Equal(t, len(got), n)
	}
}

func TestEncodeVLQ_TooLarge(t *testing.T) {
	_, err := EncodeVLQ(MaxVLQ + 1)
	assert.Error(t, err)
}

func TestDecodeVLQ_StopsAtFinalByte(t *testing.T) {
	v, n, err := DecodeVLQ([]byte{0x81, 0x00, 0x90, 0x3C})
	require.NoError(t, err)
	assert.Equal(t, uint32(128), v)
	assert.Equal(t, 2, n)
}

func TestDecodeVLQ_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", []byte{0x81, 0x80}},
		{"five bytes", []byte{0x81, 0x80, 0x80, 0x80, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeVLQ(tt.data)
			require.Error(t, err)
			assert.Equal(t, apperr.MalformedMidi, apperr.KindOf(err))
		})
	}
}
