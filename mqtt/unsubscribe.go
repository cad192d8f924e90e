package mqtt

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
)

// UnsubscribePacket is the MQTT 3.1.1 UNSUBSCRIBE control packet.
type UnsubscribePacket struct {
	PacketID     uint16
	TopicFilters []string
}

// DecodeUnsubscribe decodes an UNSUBSCRIBE variable header and payload.
func DecodeUnsubscribe(body []byte) (*UnsubscribePacket, error) {
	r := bytes.NewReader(body)

	packetID, err := readUint16(r)
	if err != nil {
		return nil, err
	}

	p := &UnsubscribePacket{PacketID: packetID}
	for r.Len() > 0 {
		filter, err := readUTF8String(r)
		if err != nil {
			return nil, err
		}
		p.TopicFilters = append(p.TopicFilters, filter)
	}

	if len(p.TopicFilters) == 0 {
		return nil, errors.Wrap(ErrTruncated, "UNSUBSCRIBE must list at least one filter")
	}

	return p, nil
}

// Encode writes the UNSUBSCRIBE packet to w, fixed header included.
func (p *UnsubscribePacket) Encode(w io.Writer) error {
	remainingLength := uint32(2)
	for _, f := range p.TopicFilters {
		remainingLength += uint32(2 + len(f))
	}

	fh := &FixedHeader{Type: UNSUBSCRIBE, RemainingLength: remainingLength}
	if err := fh.encode(w); err != nil {
		return err
	}

	if err := writeUint16(w, p.PacketID); err != nil {
		return err
	}
	for _, f := range p.TopicFilters {
		if err := writeUTF8String(w, f); err != nil {
			return err
		}
	}
	return nil
}

// UnsubackPacket is the MQTT 3.1.1 UNSUBACK control packet.
type UnsubackPacket struct {
	PacketID uint16
}

// DecodeUnsuback decodes an UNSUBACK variable header.
func DecodeUnsuback(body []byte) (*UnsubackPacket, error) {
	if len(body) != 2 {
		return nil, ErrTruncated
	}
	return &UnsubackPacket{PacketID: uint16(body[0])<<8 | uint16(body[1])}, nil
}

// Encode writes the UNSUBACK packet to w, fixed header included.
func (p *UnsubackPacket) Encode(w io.Writer) error {
	fh := &FixedHeader{Type: UNSUBACK, RemainingLength: 2}
	if err := fh.encode(w); err != nil {
		return err
	}
	return writeUint16(w, p.PacketID)
}
