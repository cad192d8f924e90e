package mqtt

import (
	"io"

	"github.com/cockroachdb/errors"
)

// Helper functions for reading/writing MQTT's primitive wire types. Grounded
// on the read*/write* helpers in encoding/properties.go, trimmed to the
// subset a 3.1.1 codec needs (no four-byte integers, no UTF-8 pairs).

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(ErrUnexpectedEOF, "read byte")
	}
	return b[0], nil
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(ErrUnexpectedEOF, "read uint16")
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func readUTF8String(r io.Reader) (string, error) {
	length, err := readUint16(r)
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(ErrUnexpectedEOF, "read utf8 string body")
	}

	if err := validateUTF8String(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// readBytes reads exactly n opaque bytes (used for the PUBLISH payload,
// which is not length-prefixed — its length is derived from the fixed
// header's Remaining Length per spec.md §4.2).
func readBytes(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(ErrUnexpectedEOF, "read payload")
	}
	return buf, nil
}

func writeByte(w io.Writer, v byte) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeUint16(w io.Writer, v uint16) error {
	_, err := w.Write([]byte{byte(v >> 8), byte(v)})
	return err
}

func writeUTF8String(w io.Writer, s string) error {
	if err := writeUint16(w, uint16(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	_, err := io.WriteString(w, s)
	return err
}
