package mqtt

import "io"

// PingreqPacket, PingrespPacket, and DisconnectPacket carry no payload
// (spec.md §3) — their structs exist only so the codec has a symmetric
// Encode per packet type.

type PingreqPacket struct{}

func (p *PingreqPacket) Encode(w io.Writer) error {
	fh := &FixedHeader{Type: PINGREQ}
	return fh.encode(w)
}

type PingrespPacket struct{}

func (p *PingrespPacket) Encode(w io.Writer) error {
	fh := &FixedHeader{Type: PINGRESP}
	return fh.encode(w)
}

type DisconnectPacket struct{}

func (p *DisconnectPacket) Encode(w io.Writer) error {
	fh := &FixedHeader{Type: DISCONNECT}
	return fh.encode(w)
}
