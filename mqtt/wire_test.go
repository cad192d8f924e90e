package mqtt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTF8StringRoundTrip(t *testing.T) {
	tests := []string{"", "hello", "sensors/temp/+", "unicode: éè"}
	for _, s := range tests {
		var buf bytes.Buffer
		require.NoError(t, writeUTF8String(&buf, s))
		got, err := readUTF8String(&buf)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestReadUTF8StringRejectsEmbeddedNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUTF8String(&buf, "a\x00b"))
	_, err := readUTF8String(&buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedString)
}

func TestReadUTF8StringRejectsInvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint16(&buf, 2))
	buf.Write([]byte{0xFF, 0xFE})
	_, err := readUTF8String(&buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedString)
}

func TestReadUTF8StringTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUint16(&buf, 10))
	buf.WriteString("abc")
	_, err := readUTF8String(&buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestReadBytesZeroLength(t *testing.T) {
	got, err := readBytes(strings.NewReader(""), 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadBytesTruncated(t *testing.T) {
	_, err := readBytes(strings.NewReader("ab"), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}
