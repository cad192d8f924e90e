package mqtt

import (
	"io"

	"github.com/cockroachdb/errors"
)

// MaxRemainingLength is the largest value the MQTT Remaining Length field
// can encode (0x0FFFFFFF).
const MaxRemainingLength uint32 = 268435455

// maxRemainingLengthBytes is the maximum width of a Remaining Length varint.
const maxRemainingLengthBytes = 4

// EncodeVarint encodes n as an MQTT variable-length integer ("Remaining
// Length" in MQTT 3.1.1 terms). Per spec.md §4.1: repeatedly take n mod 128
// as the next byte, divide n by 128, and set the byte's high bit while more
// data remains.
func EncodeVarint(n uint32) ([]byte, error) {
	if n > MaxRemainingLength {
		return nil, ErrValueTooLarge
	}

	buf := make([]byte, 0, maxRemainingLengthBytes)
	for {
		b := byte(n % 128)
		n /= 128
		if n > 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if n == 0 {
			break
		}
	}
	return buf, nil
}

// DecodeVarint reads an MQTT variable-length integer from r. It fails with
// ErrMalformedLength if a fifth continuation byte would be required, or
// ErrUnexpectedEOF if the stream ends mid-varint.
func DecodeVarint(r io.Reader) (uint32, error) {
	var value uint32
	var multiplier uint32 = 1
	var b [1]byte

	for i := 0; i < maxRemainingLengthBytes; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, errors.Wrap(ErrUnexpectedEOF, "read varint byte")
		}

		value += uint32(b[0]&0x7F) * multiplier

		if b[0]&0x80 == 0 {
			return value, nil
		}

		multiplier *= 128
	}

	return 0, ErrMalformedLength
}

// SizeVarint returns the number of bytes EncodeVarint would produce for n,
// or 0 if n exceeds MaxRemainingLength.
func SizeVarint(n uint32) int {
	switch {
	case n > MaxRemainingLength:
		return 0
	case n <= 127:
		return 1
	case n <= 16383:
		return 2
	case n <= 2097151:
		return 3
	default:
		return 4
	}
}
