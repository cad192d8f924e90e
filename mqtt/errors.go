// Package mqtt implements the MQTT 3.1.1 control-packet wire protocol:
// the variable-length integer codec and the fixed-header/variable-header/
// payload encoders and decoders for the packet types a minimal broker core
// needs to understand.
package mqtt

import "github.com/cockroachdb/errors"

var (
	// ErrValueTooLarge indicates a Remaining Length value above 268,435,455.
	ErrValueTooLarge = errors.New("variable byte integer value exceeds maximum (268,435,455)")

	// ErrMalformedLength indicates a Remaining Length varint whose
	// continuation bit is still set after four bytes.
	ErrMalformedLength = errors.New("malformed variable byte integer")

	// ErrUnexpectedEOF indicates the stream ended while a varint, string,
	// or other fixed-width field was still being read.
	ErrUnexpectedEOF = errors.New("unexpected end of input")

	ErrUnknownPacketType   = errors.New("unknown packet type")
	ErrInvalidFlagsForType = errors.New("invalid flags for packet type")
	ErrInvalidReservedType = errors.New("reserved packet type (0) not allowed")
	ErrTruncated           = errors.New("truncated packet")
	ErrPayloadTooLarge     = errors.New("payload exceeds maximum size")
	ErrMalformedString     = errors.New("malformed UTF-8 string")
)

// MaxPayloadSize is the implementation-defined upper bound on PUBLISH
// payload size. spec.md fixes a 256 KiB minimum; this implementation uses
// exactly that bound.
const MaxPayloadSize = 256 * 1024
