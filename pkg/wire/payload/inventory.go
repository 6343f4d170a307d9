package payload

import wireio "github.com/blaesus/ctbc/pkg/io"

// InventoryType identifies what kind of object an inventory vector names.
type InventoryType uint32

const (
	InventoryTypeError InventoryType = iota
	InventoryTypeTx
	InventoryTypeBlock
)

// InventoryVector names a single object a peer is offering or requesting.
type InventoryVector struct {
	Type InventoryType
	Hash Hash
}

func (v *InventoryVector) EncodeBinary(w *wireio.BinWriter) {
	w.WriteLE(uint32(v.Type))
	v.Hash.EncodeBinary(w)
}

func (v *InventoryVector) DecodeBinary(r *wireio.BinReader) {
	var t uint32
	r.ReadLE(&t)
	v.Type = InventoryType(t)
	v.Hash.DecodeBinary(r)
}

// InvPayload advertises objects the sender has available.
type InvPayload struct {
	Items []*InventoryVector
}

func (*InvPayload) Command() string { return "inv" }

func (p *InvPayload) EncodeBinary(w *wireio.BinWriter) { w.WriteArray(p.Items) }
func (p *InvPayload) DecodeBinary(r *wireio.BinReader)  { r.ReadArray(&p.Items) }

// GetDataPayload requests the full contents of the named objects.
type GetDataPayload struct {
	Items []*InventoryVector
}

func (*GetDataPayload) Command() string { return "getdata" }

func (p *GetDataPayload) EncodeBinary(w *wireio.BinWriter) { w.WriteArray(p.Items) }
func (p *GetDataPayload) DecodeBinary(r *wireio.BinReader)  { r.ReadArray(&p.Items) }
