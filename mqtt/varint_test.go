package mqtt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		value     uint32
		wantBytes int
	}{
		{"zero", 0, 1},
		{"single byte max", 127, 1},
		{"two byte min", 128, 2},
		{"two byte max", 16383, 2},
		{"three byte min", 16384, 3},
		{"three byte max", 2097151, 3},
		{"four byte min", 2097152, 4},
		{"four byte max", 268435455, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeVarint(tt.value)
			require.NoError(t, err)
			assert.Len(t, encoded, tt.wantBytes)
			assert.Equal(t, tt.wantBytes, SizeVarint(tt.value))

			decoded, err := DecodeVarint(bytes.NewReader(encoded))
			require.NoError(t, err)
			assert.Equal(t, tt.value, decoded)
		})
	}
}

func TestEncodeVarintTooLarge(t *testing.T) {
	_, err := EncodeVarint(MaxRemainingLength + 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValueTooLarge)
}

func TestSizeVarintTooLarge(t *testing.T) {
	assert.Equal(t, 0, SizeVarint(MaxRemainingLength+1))
}

func TestDecodeVarintMalformed(t *testing.T) {
	// continuation bit still set after four bytes, so a fifth byte would
	// be required.
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}
	_, err := DecodeVarint(bytes.NewReader(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedLength)
}

func TestDecodeVarintTruncated(t *testing.T) {
	data := []byte{0x80, 0x80}
	_, err := DecodeVarint(bytes.NewReader(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestDecodeVarintEmpty(t *testing.T) {
	_, err := DecodeVarint(bytes.NewReader(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}
