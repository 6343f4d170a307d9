package payload

import wireio "github.com/blaesus/ctbc/pkg/io"

// PingPayload carries a nonce that the peer must echo back in a pong so the
// sender can measure round-trip latency.
type PingPayload struct {
	Nonce uint64
}

func (*PingPayload) Command() string { return "ping" }

func (p *PingPayload) EncodeBinary(w *wireio.BinWriter) { w.WriteLE(p.Nonce) }
func (p *PingPayload) DecodeBinary(r *wireio.BinReader)  { r.ReadLE(&p.Nonce) }

// PongPayload echoes the nonce from a received ping.
type PongPayload struct {
	Nonce uint64
}

func (*PongPayload) Command() string { return "pong" }

func (p *PongPayload) EncodeBinary(w *wireio.BinWriter) { w.WriteLE(p.Nonce) }
func (p *PongPayload) DecodeBinary(r *wireio.BinReader)  { r.ReadLE(&p.Nonce) }
