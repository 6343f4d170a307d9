package payload

import wireio "github.com/blaesus/ctbc/pkg/io"

// BlockPayload is a full block: header plus an opaque transaction blob.
// Transaction parsing and validation belong to the chain collaborator; the
// network layer only needs enough structure to route the block to it.
type BlockPayload struct {
	Header BlockHeader
	TxData []byte
}

func (*BlockPayload) Command() string { return "block" }

func (b *BlockPayload) EncodeBinary(w *wireio.BinWriter) {
	b.Header.EncodeBinary(w)
	w.WriteVarBytes(b.TxData)
}

func (b *BlockPayload) DecodeBinary(r *wireio.BinReader) {
	b.Header.DecodeBinary(r)
	b.TxData = r.ReadVarBytes()
}
