package payload

import wireio "github.com/blaesus/ctbc/pkg/io"

// VersionPayload is the first message sent on every outgoing connection; the
// peer's reply is compared against the local minimum accepted version.
type VersionPayload struct {
	ProtocolVersion uint32
	Services        uint64
	Timestamp       int64
	AddrRecv        NetAddr
	AddrFrom        NetAddr
	Nonce           uint64
	UserAgent       string
	StartHeight     uint32
	Relay           bool
}

func (*VersionPayload) Command() string { return "version" }

func (v *VersionPayload) EncodeBinary(w *wireio.BinWriter) {
	w.WriteLE(v.ProtocolVersion)
	w.WriteLE(v.Services)
	w.WriteLE(v.Timestamp)
	v.AddrRecv.EncodeBinary(w)
	v.AddrFrom.EncodeBinary(w)
	w.WriteLE(v.Nonce)
	w.WriteString(v.UserAgent)
	w.WriteLE(v.StartHeight)
	w.WriteLE(v.Relay)
}

func (v *VersionPayload) DecodeBinary(r *wireio.BinReader) {
	r.ReadLE(&v.ProtocolVersion)
	r.ReadLE(&v.Services)
	r.ReadLE(&v.Timestamp)
	v.AddrRecv.DecodeBinary(r)
	v.AddrFrom.DecodeBinary(r)
	r.ReadLE(&v.Nonce)
	v.UserAgent = r.ReadString()
	r.ReadLE(&v.StartHeight)
	r.ReadLE(&v.Relay)
}
