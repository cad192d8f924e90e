package mqtt

import (
	"io"

	"github.com/cockroachdb/errors"
)

// PacketType is the 4-bit control-packet type code in the fixed header.
// Grounded on encoding/packet.go's PacketType, restricted to the codes
// spec.md §6 lists as implemented (PUBACK..PUBCOMP are parsed as "known but
// unsupported" only so an unknown packet type can be told apart from a QoS
// 1/2 ack; AUTH=15 is rejected as unknown).
type PacketType byte

const (
	typeReserved PacketType = 0

	CONNECT     PacketType = 1
	CONNACK     PacketType = 2
	PUBLISH     PacketType = 3
	PUBACK      PacketType = 4
	PUBREC      PacketType = 5
	PUBREL      PacketType = 6
	PUBCOMP     PacketType = 7
	SUBSCRIBE   PacketType = 8
	SUBACK      PacketType = 9
	UNSUBSCRIBE PacketType = 10
	UNSUBACK    PacketType = 11
	PINGREQ     PacketType = 12
	PINGRESP    PacketType = 13
	DISCONNECT  PacketType = 14

	// typeMax is one past the highest packet type code this codec will
	// accept (AUTH=15 is MQTT 5.0-only and out of scope).
	typeMax PacketType = 15
)

func (t PacketType) String() string {
	names := [typeMax]string{
		typeReserved: "RESERVED",
		CONNECT:      "CONNECT",
		CONNACK:      "CONNACK",
		PUBLISH:      "PUBLISH",
		PUBACK:       "PUBACK",
		PUBREC:       "PUBREC",
		PUBREL:       "PUBREL",
		PUBCOMP:      "PUBCOMP",
		SUBSCRIBE:    "SUBSCRIBE",
		SUBACK:       "SUBACK",
		UNSUBSCRIBE:  "UNSUBSCRIBE",
		UNSUBACK:     "UNSUBACK",
		PINGREQ:      "PINGREQ",
		PINGRESP:     "PINGRESP",
		DISCONNECT:   "DISCONNECT",
	}
	if t < typeMax {
		return names[t]
	}
	return "UNKNOWN"
}

// QoS is an MQTT Quality of Service level. This core only ever serves QoS 0
// (spec.md §9), but QoS 1/2 values are parsed so malformed-vs-unsupported
// can be distinguished.
type QoS byte

const (
	QoS0 QoS = 0
	QoS1 QoS = 1
	QoS2 QoS = 2
)

func (q QoS) valid() bool { return q <= QoS2 }

// FixedHeader is the first byte (type + flags) plus the Remaining Length
// field common to every MQTT control packet.
type FixedHeader struct {
	Type            PacketType
	Flags           byte
	RemainingLength uint32

	// PUBLISH-specific flag decomposition.
	DUP    bool
	QoS    QoS
	Retain bool
}

// expectedFlags gives the fixed flag nibble for packet types whose flags
// are not client-controlled. SUBSCRIBE/UNSUBSCRIBE reserve 0b0010 per the
// MQTT 3.1.1 spec; PUBLISH is handled separately since its flags carry
// DUP/QoS/RETAIN.
var expectedFlags = map[PacketType]byte{
	CONNECT:     0x00,
	CONNACK:     0x00,
	PUBACK:      0x00,
	PUBREC:      0x00,
	PUBREL:      0x02,
	PUBCOMP:     0x00,
	SUBSCRIBE:   0x02,
	SUBACK:      0x00,
	UNSUBSCRIBE: 0x02,
	UNSUBACK:    0x00,
	PINGREQ:     0x00,
	PINGRESP:    0x00,
	DISCONNECT:  0x00,
}

// ParseFixedHeader reads and validates the fixed header from r. Grounded on
// encoding/packet.go's ParseFixedHeader.
func ParseFixedHeader(r io.Reader) (*FixedHeader, error) {
	first, err := readByte(r)
	if err != nil {
		return nil, err
	}

	h := &FixedHeader{
		Type:  PacketType(first >> 4),
		Flags: first & 0x0F,
	}

	if h.Type == typeReserved {
		return nil, ErrInvalidReservedType
	}
	if h.Type >= typeMax {
		return nil, ErrUnknownPacketType
	}

	if h.Type == PUBLISH {
		h.DUP = h.Flags&0x08 != 0
		h.QoS = QoS((h.Flags & 0x06) >> 1)
		h.Retain = h.Flags&0x01 != 0
		if !h.QoS.valid() {
			return nil, errors.Wrap(ErrInvalidFlagsForType, "invalid QoS in PUBLISH flags")
		}
	} else if want, ok := expectedFlags[h.Type]; ok && h.Flags != want {
		return nil, ErrInvalidFlagsForType
	}

	remLen, err := DecodeVarint(r)
	if err != nil {
		return nil, err
	}
	h.RemainingLength = remLen

	return h, nil
}

// encode writes the fixed header (first byte + Remaining Length varint) to w.
func (h *FixedHeader) encode(w io.Writer) error {
	var flags byte
	switch h.Type {
	case PUBLISH:
		flags = h.Flags
	default:
		flags = expectedFlags[h.Type]
	}

	if err := writeByte(w, byte(h.Type)<<4|flags); err != nil {
		return err
	}

	lenBytes, err := EncodeVarint(h.RemainingLength)
	if err != nil {
		return err
	}
	_, err = w.Write(lenBytes)
	return err
}
