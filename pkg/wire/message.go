// Package wire implements the header framing, checksum, and command
// dispatch of the peer-to-peer protocol. It does not itself read from or
// buffer a socket; that is the stream framer's job (see pkg/network).
package wire

import (
	"errors"

	wireio "github.com/blaesus/ctbc/pkg/io"
	"github.com/blaesus/ctbc/pkg/wire/payload"
)

// ErrUnknownCommand is returned when a header names a command this node
// does not know how to encode or decode.
var ErrUnknownCommand = errors.New("wire: unknown command")

// ErrMalformedPayload is returned when a payload's bytes don't parse as its
// command's wire format.
var ErrMalformedPayload = errors.New("wire: malformed payload")

// Message pairs a decoded payload with the header it arrived under.
type Message struct {
	Magic   Magic
	Command string
	Payload payload.Payload
}

type payloadFactory func() payload.Payload

// decodeTable lists every command this node can receive. A command absent
// here fails decode with ErrUnknownCommand regardless of whether it is
// otherwise a well-formed header.
var decodeTable = map[string]payloadFactory{
	"version": func() payload.Payload { return &payload.VersionPayload{} },
	"verack":  func() payload.Payload { return &payload.VerackPayload{} },
	"inv":     func() payload.Payload { return &payload.InvPayload{} },
	"addr":    func() payload.Payload { return &payload.AddressList{} },
	"reject":  func() payload.Payload { return &payload.RejectPayload{} },
	"ping":    func() payload.Payload { return &payload.PingPayload{} },
	"pong":    func() payload.Payload { return &payload.PongPayload{} },
	"headers": func() payload.Payload { return &payload.HeadersPayload{} },
	"block":   func() payload.Payload { return &payload.BlockPayload{} },
	"getdata": func() payload.Payload { return &payload.GetDataPayload{} },
}

// sendCommands is the full set of commands this node may originate: every
// receivable command plus the request-only ones with no inbound handler.
var sendCommands = func() map[string]bool {
	set := map[string]bool{
		"getaddr":     true,
		"getheaders":  true,
		"getblocks":   true,
		"sendheaders": true,
	}
	for cmd := range decodeTable {
		set[cmd] = true
	}
	return set
}()

// Encode serializes p into a complete framed message: header plus body.
func Encode(magic Magic, p payload.Payload) ([]byte, error) {
	if !sendCommands[p.Command()] {
		return nil, ErrUnknownCommand
	}

	bw := wireio.NewBufBinWriter()
	p.EncodeBinary(bw.BinWriter)
	if bw.Err != nil {
		return nil, bw.Err
	}
	body := bw.Bytes()

	h := Header{
		Magic:    magic,
		Command:  newCommandField(p.Command()),
		Length:   uint32(len(body)),
		Checksum: Checksum(body),
	}

	out := make([]byte, 0, HeaderSize+len(body))
	out = append(out, h.Bytes()...)
	out = append(out, body...)
	return out, nil
}

// Decode parses body (already length- and checksum-verified by the caller)
// according to the command named in header.
func Decode(header Header, body []byte) (*Message, error) {
	command := header.CommandString()
	factory, ok := decodeTable[command]
	if !ok {
		return nil, ErrUnknownCommand
	}

	p := factory()
	r := wireio.NewBinReaderFromBuf(body)
	p.DecodeBinary(r)
	if r.Err != nil {
		return nil, ErrMalformedPayload
	}

	return &Message{Magic: header.Magic, Command: command, Payload: p}, nil
}
