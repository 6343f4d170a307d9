package payload

import wireio "github.com/blaesus/ctbc/pkg/io"

// blockLocator is a sparse list of known block hashes, densest near the
// caller's tip, used by the recipient to find the common ancestor to start
// sending from. HashStop, if non-zero, caps how far the reply extends.
type blockLocator struct {
	Version  uint32
	Locator  []Hash
	HashStop Hash
}

func (b *blockLocator) EncodeBinary(w *wireio.BinWriter) {
	w.WriteLE(b.Version)
	w.WriteVarUint(uint64(len(b.Locator)))
	for i := range b.Locator {
		b.Locator[i].EncodeBinary(w)
	}
	b.HashStop.EncodeBinary(w)
}

func (b *blockLocator) DecodeBinary(r *wireio.BinReader) {
	r.ReadLE(&b.Version)
	n := r.ReadVarUint()
	b.Locator = make([]Hash, n)
	for i := range b.Locator {
		b.Locator[i].DecodeBinary(r)
	}
	b.HashStop.DecodeBinary(r)
}

// GetHeadersPayload requests headers starting after the best-known hash in
// Locator, stopping at HashStop (or the peer's tip if HashStop is zero).
type GetHeadersPayload struct{ blockLocator }

func (*GetHeadersPayload) Command() string { return "getheaders" }

// NewGetHeaders builds a getheaders request anchored at locator, which
// callers outside this package cannot construct directly since blockLocator
// is unexported.
func NewGetHeaders(version uint32, locator []Hash, hashStop Hash) *GetHeadersPayload {
	return &GetHeadersPayload{blockLocator{Version: version, Locator: locator, HashStop: hashStop}}
}

// GetBlocksPayload requests full blocks the same way GetHeadersPayload
// requests headers.
type GetBlocksPayload struct{ blockLocator }

func (*GetBlocksPayload) Command() string { return "getblocks" }

// NewGetBlocks builds a getblocks request anchored at locator.
func NewGetBlocks(version uint32, locator []Hash, hashStop Hash) *GetBlocksPayload {
	return &GetBlocksPayload{blockLocator{Version: version, Locator: locator, HashStop: hashStop}}
}
