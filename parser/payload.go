package parser

import (
	"bytes"
	"io"
)

// Polling payloads are packets concatenated with a record separator
// in between. Binary packets are base64 encoded (with the 'b' prefix)
// since the payload itself must remain valid UTF-8.
const payloadDelimiter byte = 30

// EncodedPayloadsLen returns the exact number of bytes EncodePayloads
// will write. Use it to size the buffer beforehand.
func EncodedPayloadsLen(packets ...*Packet) int {
	l := 0
	for i, packet := range packets {
		l += packet.EncodedLen(false)

		// Delimiter
		if i != len(packets)-1 {
			l += 1
		}
	}
	return l
}

// Arguments must not be nil.
func EncodePayloads(w io.Writer, packets ...*Packet) error {
	for i, packet := range packets {
		err := packet.Encode(w, false)
		if err != nil {
			return err
		}

		if i != len(packets)-1 {
			err = writeByte(w, payloadDelimiter)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func DecodePayloads(r io.Reader) ([]*Packet, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	packets := make([]*Packet, 0, 1) // Minimum 1 packet expected
	splitted := bytes.Split(b, []byte{payloadDelimiter})

	for _, sp := range splitted {
		packet, err := Parse(sp, false)
		if err != nil {
			return nil, err
		}
		packets = append(packets, packet)
	}

	return packets, nil
}
