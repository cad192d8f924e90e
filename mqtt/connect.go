package mqtt

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
)

// CONNECT return codes, used in the CONNACK response. Grounded on
// encoding/encoder_311.go's MQTT 3.1.1 return-code constants.
const (
	ConnectAccepted                byte = 0x00
	ConnectUnacceptableProtocol    byte = 0x01
	ConnectIdentifierRejected      byte = 0x02
	ConnectServerUnavailable       byte = 0x03
	ConnectBadUsernameOrPassword   byte = 0x04
	ConnectNotAuthorized           byte = 0x05
)

// connect flag bits, MQTT 3.1.1 section 3.1.2.3.
const (
	connectFlagUsername   = 0x80
	connectFlagPassword   = 0x40
	connectFlagWillRetain = 0x20
	connectFlagWillQoS    = 0x18 // bits 3-4
	connectFlagWillFlag   = 0x04
	connectFlagCleanSess  = 0x02
	connectFlagReserved   = 0x01
)

// ConnectPacket is the MQTT 3.1.1 CONNECT control packet (spec.md §3).
type ConnectPacket struct {
	ProtocolName  string
	ProtocolLevel byte
	CleanSession  bool
	KeepAlive     uint16
	ClientID      string

	WillFlag    bool
	WillQoS     QoS
	WillRetain  bool
	WillTopic   string
	WillPayload []byte

	UsernameFlag bool
	Username     string
	PasswordFlag bool
	Password     []byte
}

// DecodeConnect decodes a CONNECT variable header and payload from body,
// which holds exactly RemainingLength bytes per spec.md §4.2.
func DecodeConnect(body []byte) (*ConnectPacket, error) {
	r := bytes.NewReader(body)

	protoName, err := readUTF8String(r)
	if err != nil {
		return nil, err
	}

	level, err := readByte(r)
	if err != nil {
		return nil, err
	}

	flags, err := readByte(r)
	if err != nil {
		return nil, err
	}
	if flags&connectFlagReserved != 0 {
		return nil, errors.Wrap(ErrTruncated, "CONNECT reserved flag bit must be 0")
	}

	keepAlive, err := readUint16(r)
	if err != nil {
		return nil, err
	}

	clientID, err := readUTF8String(r)
	if err != nil {
		return nil, err
	}

	p := &ConnectPacket{
		ProtocolName:  protoName,
		ProtocolLevel: level,
		CleanSession:  flags&connectFlagCleanSess != 0,
		KeepAlive:     keepAlive,
		ClientID:      clientID,
		WillFlag:      flags&connectFlagWillFlag != 0,
		WillQoS:       QoS((flags & connectFlagWillQoS) >> 3),
		WillRetain:    flags&connectFlagWillRetain != 0,
		UsernameFlag:  flags&connectFlagUsername != 0,
		PasswordFlag:  flags&connectFlagPassword != 0,
	}

	if p.WillFlag {
		if p.WillTopic, err = readUTF8String(r); err != nil {
			return nil, err
		}
		willLen, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		if p.WillPayload, err = readBytes(r, int(willLen)); err != nil {
			return nil, err
		}
	}

	if p.UsernameFlag {
		if p.Username, err = readUTF8String(r); err != nil {
			return nil, err
		}
	}

	if p.PasswordFlag {
		pwLen, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		if p.Password, err = readBytes(r, int(pwLen)); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Encode writes the CONNECT packet to w, fixed header included.
func (p *ConnectPacket) Encode(w io.Writer) error {
	var varHeader bytes.Buffer
	if err := writeUTF8String(&varHeader, p.ProtocolName); err != nil {
		return err
	}
	if err := writeByte(&varHeader, p.ProtocolLevel); err != nil {
		return err
	}

	var flags byte
	if p.CleanSession {
		flags |= connectFlagCleanSess
	}
	if p.WillFlag {
		flags |= connectFlagWillFlag
		flags |= byte(p.WillQoS) << 3
		if p.WillRetain {
			flags |= connectFlagWillRetain
		}
	}
	if p.PasswordFlag {
		flags |= connectFlagPassword
	}
	if p.UsernameFlag {
		flags |= connectFlagUsername
	}
	if err := writeByte(&varHeader, flags); err != nil {
		return err
	}
	if err := writeUint16(&varHeader, p.KeepAlive); err != nil {
		return err
	}

	var payload bytes.Buffer
	if err := writeUTF8String(&payload, p.ClientID); err != nil {
		return err
	}
	if p.WillFlag {
		if err := writeUTF8String(&payload, p.WillTopic); err != nil {
			return err
		}
		if err := writeUint16(&payload, uint16(len(p.WillPayload))); err != nil {
			return err
		}
		if _, err := payload.Write(p.WillPayload); err != nil {
			return err
		}
	}
	if p.UsernameFlag {
		if err := writeUTF8String(&payload, p.Username); err != nil {
			return err
		}
	}
	if p.PasswordFlag {
		if err := writeUint16(&payload, uint16(len(p.Password))); err != nil {
			return err
		}
		if _, err := payload.Write(p.Password); err != nil {
			return err
		}
	}

	fh := &FixedHeader{
		Type:            CONNECT,
		RemainingLength: uint32(varHeader.Len() + payload.Len()),
	}
	if err := fh.encode(w); err != nil {
		return err
	}
	if _, err := w.Write(varHeader.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}
