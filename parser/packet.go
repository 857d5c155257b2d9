package parser

import (
	"encoding/base64"
	"fmt"
	"io"
	"unicode/utf8"
)

type PacketType byte

const (
	PacketTypeOpen PacketType = iota
	PacketTypeClose
	PacketTypePing
	PacketTypePong
	PacketTypeMessage
	PacketTypeUpgrade
	PacketTypeNoop

	packetTypeMin = PacketTypeOpen
	packetTypeMax = PacketTypeNoop
)

func (p PacketType) ToChar() byte {
	b := byte(p)
	b += 48
	return b
}

func (p *PacketType) FromChar(b byte) error {
	if b < 48 || b > byte(48+packetTypeMax) {
		return ErrInvalidPacketType
	}

	b = b - 48
	*p = PacketType(b)
	return nil
}

const base64Prefix byte = 'b'

var (
	// ErrInvalidPacketSize means the frame was truncated: there
	// weren't enough bytes to even contain a packet type.
	ErrInvalidPacketSize = fmt.Errorf("parser: invalid packet size")

	// ErrInvalidPacketType means the packet type character was
	// outside the range of the 7 known packet types.
	ErrInvalidPacketType = fmt.Errorf("parser: invalid packet type")

	// ErrInvalidEncoding means a text frame contained invalid UTF-8,
	// or a base64 encoded binary frame couldn't be decoded.
	ErrInvalidEncoding = fmt.Errorf("parser: invalid encoding")
)

type Packet struct {
	IsBinary bool
	Type     PacketType
	Data     []byte
}

// Only packets with a type of MESSAGE can contain binary data.
func NewPacket(packetType PacketType, isBinary bool, data []byte) (*Packet, error) {
	if packetType != PacketTypeMessage && isBinary {
		return nil, ErrInvalidPacketType
	}

	return &Packet{
		IsBinary: isBinary,
		Type:     packetType,
		Data:     data,
	}, nil
}

// If binaryData is true, data is the raw payload of a binary MESSAGE
// packet. A binary WebSocket frame carries no packet type character.
func Parse(data []byte, binaryData bool) (*Packet, error) {
	packet := new(Packet)

	if binaryData {
		packet.IsBinary = true
		packet.Type = PacketTypeMessage
		packet.Data = data
		return packet, nil
	}

	if len(data) < 1 {
		return nil, ErrInvalidPacketSize
	}

	packetType := data[0]

	if packetType == base64Prefix {
		packet.IsBinary = true
		packet.Type = PacketTypeMessage

		data = data[1:]
		dl := base64.StdEncoding.DecodedLen(len(data))
		packet.Data = make([]byte, dl)

		n, err := base64.StdEncoding.Decode(packet.Data, data)
		packet.Data = packet.Data[:n]
		if err != nil {
			return packet, fmt.Errorf("%w: %s", ErrInvalidEncoding, err)
		}
		return packet, nil
	}

	packet.IsBinary = false
	err := packet.Type.FromChar(packetType)
	if err != nil {
		return packet, err
	}
	packet.Data = data[1:]

	if !utf8.Valid(packet.Data) {
		return packet, ErrInvalidEncoding
	}
	return packet, nil
}

// Decode reads a whole frame from r and parses it.
// On the WebSocket transport one frame is exactly one packet.
func Decode(r io.Reader, binaryData bool) (*Packet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data, binaryData)
}

func (p *Packet) Build(supportsBinary bool) []byte {
	if p.IsBinary {
		if supportsBinary {
			return p.Data
		} else {
			el := base64.StdEncoding.EncodedLen(len(p.Data))
			b := make([]byte, 1+el)

			b[0] = base64Prefix
			base64.StdEncoding.Encode(b[1:], p.Data)
			return b
		}
	}

	b := make([]byte, 1+len(p.Data))
	b[0] = p.Type.ToChar()
	copy(b[1:], p.Data)
	return b
}

// EncodedLen returns the exact number of bytes Encode will write.
func (p *Packet) EncodedLen(supportsBinary bool) int {
	if p.IsBinary {
		if supportsBinary {
			return len(p.Data)
		}
		return 1 + base64.StdEncoding.EncodedLen(len(p.Data))
	}
	return 1 + len(p.Data)
}

func (p *Packet) Encode(w io.Writer, supportsBinary bool) error {
	if p.IsBinary {
		if supportsBinary {
			_, err := w.Write(p.Data)
			return err
		}

		err := writeByte(w, base64Prefix)
		if err != nil {
			return err
		}

		e := base64.NewEncoder(base64.StdEncoding, w)
		_, err = e.Write(p.Data)
		if err != nil {
			return err
		}
		return e.Close()
	}

	err := writeByte(w, p.Type.ToChar())
	if err != nil {
		return err
	}
	_, err = w.Write(p.Data)
	return err
}

func writeByte(w io.Writer, b byte) error {
	if bw, ok := w.(io.ByteWriter); ok {
		return bw.WriteByte(b)
	}
	_, err := w.Write([]byte{b})
	return err
}
