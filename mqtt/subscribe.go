package mqtt

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
)

// Subscription is one (topic filter, requested QoS) pair in a SUBSCRIBE
// packet's payload.
type Subscription struct {
	TopicFilter string
	QoS         QoS
}

// SubscribePacket is the MQTT 3.1.1 SUBSCRIBE control packet.
type SubscribePacket struct {
	PacketID      uint16
	Subscriptions []Subscription
}

// DecodeSubscribe decodes a SUBSCRIBE variable header and payload.
func DecodeSubscribe(body []byte) (*SubscribePacket, error) {
	r := bytes.NewReader(body)

	packetID, err := readUint16(r)
	if err != nil {
		return nil, err
	}

	p := &SubscribePacket{PacketID: packetID}
	for r.Len() > 0 {
		filter, err := readUTF8String(r)
		if err != nil {
			return nil, err
		}
		qosByte, err := readByte(r)
		if err != nil {
			return nil, err
		}
		qos := QoS(qosByte & 0x03)
		if !qos.valid() {
			return nil, errors.Wrap(ErrTruncated, "invalid requested QoS in SUBSCRIBE")
		}
		p.Subscriptions = append(p.Subscriptions, Subscription{TopicFilter: filter, QoS: qos})
	}

	if len(p.Subscriptions) == 0 {
		return nil, errors.Wrap(ErrTruncated, "SUBSCRIBE must list at least one filter")
	}

	return p, nil
}

// Encode writes the SUBSCRIBE packet to w, fixed header included.
func (p *SubscribePacket) Encode(w io.Writer) error {
	remainingLength := uint32(2)
	for _, s := range p.Subscriptions {
		remainingLength += uint32(2 + len(s.TopicFilter) + 1)
	}

	fh := &FixedHeader{Type: SUBSCRIBE, RemainingLength: remainingLength}
	if err := fh.encode(w); err != nil {
		return err
	}

	if err := writeUint16(w, p.PacketID); err != nil {
		return err
	}
	for _, s := range p.Subscriptions {
		if err := writeUTF8String(w, s.TopicFilter); err != nil {
			return err
		}
		if err := writeByte(w, byte(s.QoS)); err != nil {
			return err
		}
	}
	return nil
}

// SubackPacket is the MQTT 3.1.1 SUBACK control packet: one return code per
// requested filter, in request order.
type SubackPacket struct {
	PacketID    uint16
	ReturnCodes []byte
}

// DecodeSuback decodes a SUBACK variable header and payload.
func DecodeSuback(body []byte) (*SubackPacket, error) {
	if len(body) < 2 {
		return nil, ErrTruncated
	}
	r := bytes.NewReader(body)
	packetID, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	codes, err := readBytes(r, r.Len())
	if err != nil {
		return nil, err
	}
	return &SubackPacket{PacketID: packetID, ReturnCodes: codes}, nil
}

// Encode writes the SUBACK packet to w, fixed header included.
func (p *SubackPacket) Encode(w io.Writer) error {
	fh := &FixedHeader{Type: SUBACK, RemainingLength: uint32(2 + len(p.ReturnCodes))}
	if err := fh.encode(w); err != nil {
		return err
	}
	if err := writeUint16(w, p.PacketID); err != nil {
		return err
	}
	_, err := w.Write(p.ReturnCodes)
	return err
}
