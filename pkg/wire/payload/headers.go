package payload

import (
	"crypto/sha256"

	wireio "github.com/blaesus/ctbc/pkg/io"
)

// BlockHeader is the metadata portion of a block. Validation of its
// contents belongs to the chain collaborator; here it is only a wire shape.
type BlockHeader struct {
	Version    uint32
	PrevHash   Hash
	MerkleRoot Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
	Height     uint32
}

func (h *BlockHeader) EncodeBinary(w *wireio.BinWriter) {
	w.WriteLE(h.Version)
	h.PrevHash.EncodeBinary(w)
	h.MerkleRoot.EncodeBinary(w)
	w.WriteLE(h.Timestamp)
	w.WriteLE(h.Bits)
	w.WriteLE(h.Nonce)
	w.WriteLE(h.Height)
}

func (h *BlockHeader) DecodeBinary(r *wireio.BinReader) {
	r.ReadLE(&h.Version)
	h.PrevHash.DecodeBinary(r)
	h.MerkleRoot.DecodeBinary(r)
	r.ReadLE(&h.Timestamp)
	r.ReadLE(&h.Bits)
	r.ReadLE(&h.Nonce)
	r.ReadLE(&h.Height)
}

// Hash computes the header's identity. Block hashing is normally a
// domain-specific algorithm; here it stands in for whatever the chain
// collaborator would compute, since that collaborator owns validation.
func (h *BlockHeader) Hash() Hash {
	w := wireio.NewBufBinWriter()
	h.EncodeBinary(w.BinWriter)
	first := sha256.Sum256(w.Bytes())
	return Hash(sha256.Sum256(first[:]))
}

// HeadersPayload carries a batch of headers announced in response to a
// getheaders request or a sendheaders subscription.
type HeadersPayload struct {
	Headers []*BlockHeader
}

func (*HeadersPayload) Command() string { return "headers" }

func (p *HeadersPayload) EncodeBinary(w *wireio.BinWriter) { w.WriteArray(p.Headers) }
func (p *HeadersPayload) DecodeBinary(r *wireio.BinReader)  { r.ReadArray(&p.Headers) }
