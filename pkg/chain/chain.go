// Package chain defines the interface the network layer uses to consult
// and feed the persistent blockchain store. Block and transaction
// validation, and the storage format itself, belong entirely to whatever
// implements this interface; the network layer only calls through it.
package chain

import "github.com/blaesus/ctbc/pkg/wire/payload"

// Chain is the external collaborator the peer pool and protocol handler
// depend on for everything related to chain state. A node under initial
// block download is one whose Chain reports a tip far behind its peers'.
type Chain interface {
	// BlockHeight returns the height of the highest fully-validated block.
	BlockHeight() uint32
	// HeaderHeight returns the height of the highest known header, which
	// may be ahead of BlockHeight while full blocks are still downloading.
	HeaderHeight() uint32
	// TipHash returns the hash of the header at HeaderHeight, used to anchor
	// the locator sent in getheaders requests.
	TipHash() payload.Hash
	// MaxFullBlockHeight returns the highest height any peer has reported
	// through RecordPeerHeight, used to drive IBD-mode recomputation. It
	// never decreases when a peer disconnects.
	MaxFullBlockHeight() uint32
	// RecordPeerHeight updates the high-water mark used by
	// MaxFullBlockHeight when a peer announces its own height.
	RecordPeerHeight(height uint32)

	// FindMissingBlocks returns up to limit block hashes this node has a
	// header for but no full block, in height order, to drive getdata.
	FindMissingBlocks(limit int) []payload.Hash

	// ProcessHeader validates and appends a header announced by a peer.
	ProcessHeader(h *payload.BlockHeader) error
	// ProcessBlock validates and appends a full block announced by a peer.
	ProcessBlock(b *payload.BlockPayload) error

	// SaveChainData flushes any pending chain state to persistent storage.
	SaveChainData() error
}
