package wire

import (
	"bytes"
	"encoding/binary"
)

// HeaderSize is the fixed on-wire size of a message header: magic (4) +
// command (12, zero-padded ASCII) + length (4) + checksum (4).
const HeaderSize = 24

const commandFieldSize = 12

// Magic identifies the network a peer belongs to; a connection seeing a
// header with the wrong magic is not a framing error, it's a different
// network entirely and the caller should treat it as corrupt.
type Magic uint32

// MagicMainnet is the default network magic used when none is configured.
const MagicMainnet Magic = 0xd9b4bef9

// Header is the fixed-size preamble in front of every message payload.
// ParseHeader is infallible given HeaderSize bytes; it does not know or
// care whether Command names a recognized message type, which is decided
// at the Decode/Encode dispatch stage.
type Header struct {
	Magic    Magic
	Command  [commandFieldSize]byte
	Length   uint32
	Checksum [4]byte
}

// CommandString trims the trailing zero padding from the raw command field.
func (h Header) CommandString() string {
	return string(bytes.TrimRight(h.Command[:], "\x00"))
}

// ParseHeader decodes the first HeaderSize bytes of buf. It panics if buf is
// shorter than HeaderSize; callers (the framer) are responsible for only
// calling this once a full header is known to be present.
func ParseHeader(buf []byte) Header {
	if len(buf) < HeaderSize {
		panic("wire: ParseHeader: short buffer")
	}
	var h Header
	h.Magic = Magic(binary.LittleEndian.Uint32(buf[0:4]))
	copy(h.Command[:], buf[4:16])
	h.Length = binary.LittleEndian.Uint32(buf[16:20])
	copy(h.Checksum[:], buf[20:24])
	return h
}

// Bytes serializes the header back to its wire representation.
func (h Header) Bytes() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Magic))
	copy(buf[4:16], h.Command[:])
	binary.LittleEndian.PutUint32(buf[16:20], h.Length)
	copy(buf[20:24], h.Checksum[:])
	return buf
}

func newCommandField(command string) [commandFieldSize]byte {
	var field [commandFieldSize]byte
	copy(field[:], command)
	return field
}
