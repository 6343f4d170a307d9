package payload

import wireio "github.com/blaesus/ctbc/pkg/io"

// Payload is implemented by every message body. Command returns the
// canonical 12-byte-field command name the body is carried under.
type Payload interface {
	wireio.Serializable
	Command() string
}

type emptyPayload struct{}

func (emptyPayload) EncodeBinary(*wireio.BinWriter) {}
func (emptyPayload) DecodeBinary(*wireio.BinReader) {}

// VerackPayload acknowledges a version message; it carries no data.
type VerackPayload struct{ emptyPayload }

func (*VerackPayload) Command() string { return "verack" }

// GetAddrPayload requests the peer's known address set; it carries no data.
type GetAddrPayload struct{ emptyPayload }

func (*GetAddrPayload) Command() string { return "getaddr" }

// SendHeadersPayload asks the peer to announce new blocks as headers
// instead of inv messages; it carries no data.
type SendHeadersPayload struct{ emptyPayload }

func (*SendHeadersPayload) Command() string { return "sendheaders" }
