package mqtt

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
)

// ReadPacket implements the decode flow of spec.md §4.2: read the fixed
// header, read exactly RemainingLength bytes into a bounded buffer, then
// dispatch on packet type to the variant decoder. It returns the fixed
// header (callers need h.Type to switch on) and the decoded payload, which
// is one of *ConnectPacket, *ConnackPacket, *PublishPacket,
// *SubscribePacket, *SubackPacket, *UnsubscribePacket, *UnsubackPacket, or
// nil for PINGREQ/PINGRESP/DISCONNECT (which carry no payload).
//
// PUBACK/PUBREC/PUBREL/PUBCOMP are recognized by ParseFixedHeader but
// have no variant decoder here: this core pins max QoS to 0 (spec.md §9)
// and never needs to interpret them.
func ReadPacket(r io.Reader) (*FixedHeader, any, error) {
	h, err := ParseFixedHeader(r)
	if err != nil {
		return nil, nil, err
	}

	if h.RemainingLength > MaxPayloadSize+128 {
		return nil, nil, errors.Wrap(ErrPayloadTooLarge, "remaining length exceeds bound")
	}

	body, err := readBytes(r, int(h.RemainingLength))
	if err != nil {
		return nil, nil, err
	}

	payload, err := decodeBody(h, body)
	if err != nil {
		return nil, nil, err
	}
	return h, payload, nil
}

// ReadPacketFromBytes decodes a full packet (fixed header included) already
// held in memory, used by tests that build wire-format fixtures by hand.
func ReadPacketFromBytes(data []byte) (*FixedHeader, any, error) {
	return ReadPacket(bytes.NewReader(data))
}

func decodeBody(h *FixedHeader, body []byte) (any, error) {
	switch h.Type {
	case CONNECT:
		return DecodeConnect(body)
	case CONNACK:
		return DecodeConnack(body)
	case PUBLISH:
		return DecodePublish(h, body)
	case SUBSCRIBE:
		return DecodeSubscribe(body)
	case SUBACK:
		return DecodeSuback(body)
	case UNSUBSCRIBE:
		return DecodeUnsubscribe(body)
	case UNSUBACK:
		return DecodeUnsuback(body)
	case PINGREQ, PINGRESP, DISCONNECT:
		if len(body) != 0 {
			return nil, errors.Wrap(ErrTruncated, "unexpected payload")
		}
		return nil, nil
	case PUBACK, PUBREC, PUBREL, PUBCOMP:
		// QoS 1/2 acknowledgements: parsed-but-ignored per spec.md §9.
		return nil, nil
	default:
		return nil, ErrUnknownPacketType
	}
}
