package payload

import wireio "github.com/blaesus/ctbc/pkg/io"

// RejectCode enumerates the reason a message was refused.
type RejectCode byte

const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectCheckpoint       RejectCode = 0x43
)

// RejectPayload tells a peer that one of its messages was refused and why.
type RejectPayload struct {
	RejectedCommand string
	Code            RejectCode
	Reason          string
}

func (*RejectPayload) Command() string { return "reject" }

func (p *RejectPayload) EncodeBinary(w *wireio.BinWriter) {
	w.WriteString(p.RejectedCommand)
	w.WriteB(byte(p.Code))
	w.WriteString(p.Reason)
}

func (p *RejectPayload) DecodeBinary(r *wireio.BinReader) {
	p.RejectedCommand = r.ReadString()
	p.Code = RejectCode(r.ReadB())
	p.Reason = r.ReadString()
}
