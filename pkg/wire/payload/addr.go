package payload

import wireio "github.com/blaesus/ctbc/pkg/io"

// AddressAndTime is a single gossiped address annotated with the sender's
// claimed last-seen time, as carried inside an AddressList.
type AddressAndTime struct {
	Timestamp uint32
	Addr      NetAddr
}

func (a *AddressAndTime) EncodeBinary(w *wireio.BinWriter) {
	w.WriteLE(a.Timestamp)
	a.Addr.EncodeBinary(w)
}

func (a *AddressAndTime) DecodeBinary(r *wireio.BinReader) {
	r.ReadLE(&a.Timestamp)
	a.Addr.DecodeBinary(r)
}

// AddressList is the body of an addr message: a varuint-prefixed list of
// timestamped addresses.
type AddressList struct {
	Addrs []*AddressAndTime
}

func (*AddressList) Command() string { return "addr" }

func (a *AddressList) EncodeBinary(w *wireio.BinWriter) {
	w.WriteArray(a.Addrs)
}

func (a *AddressList) DecodeBinary(r *wireio.BinReader) {
	r.ReadArray(&a.Addrs)
}
