package network

import (
	"go.uber.org/atomic"
)

// pool owns the fixed-size array of peer slots and the bookkeeping needed
// to keep exactly one candidate bound per occupied slot. It does not own
// sockets or protocol state beyond what Peer already carries; dialing and
// rebinding are driven from the server's event loop, which is the only
// thing that calls into the pool.
type pool struct {
	slots []*Peer
	bound map[string]bool // candidate key -> bound

	ibdMode *atomic.Bool
}

func newPool(size int) *pool {
	slots := make([]*Peer, size)
	for i := range slots {
		slots[i] = NewPeer(i)
	}
	return &pool{
		slots:   slots,
		bound:   make(map[string]bool),
		ibdMode: atomic.NewBool(false),
	}
}

// Size returns the number of peer slots, fixed for the pool's lifetime.
func (p *pool) Size() int { return len(p.slots) }

// TargetSize returns how many slots should actually be filled, which
// shrinks while the node believes it is in initial block download.
func (p *pool) TargetSize(maxOutgoing, maxOutgoingIBD int) int {
	if p.ibdMode.Load() {
		return min(maxOutgoingIBD, len(p.slots))
	}
	return min(maxOutgoing, len(p.slots))
}

// FreeSlot returns the index of the first idle slot below target, or -1 if
// none exists.
func (p *pool) FreeSlot(target int) int {
	for i := 0; i < target && i < len(p.slots); i++ {
		if p.slots[i].State == StateIdle {
			return i
		}
	}
	return -1
}

// Bind records that slot index is about to hold the given candidate key, so
// future selections skip it. It must be called before dialing begins.
func (p *pool) Bind(index int, candidateKey string) {
	p.slots[index].CandidateKey = candidateKey
	p.bound[candidateKey] = true
}

// Unbind releases a slot's candidate key once its connection has fully
// closed. Until this is called the slot's former candidate remains
// ineligible for re-selection, so the pool never redials a peer whose
// previous connection is still closing.
func (p *pool) Unbind(index int) {
	key := p.slots[index].CandidateKey
	delete(p.bound, key)
	p.slots[index].reset()
}

// ActivePeers returns every slot currently in StateActive.
func (p *pool) ActivePeers() []*Peer {
	var out []*Peer
	for _, peer := range p.slots {
		if peer.State == StateActive {
			out = append(out, peer)
		}
	}
	return out
}

// BoundCount returns how many slots are not idle.
func (p *pool) BoundCount() int {
	n := 0
	for _, peer := range p.slots {
		if peer.State != StateIdle {
			n++
		}
	}
	return n
}

// SetIBDMode updates the pool's IBD flag and reports whether it changed.
func (p *pool) SetIBDMode(v bool) bool {
	return p.ibdMode.Swap(v) != v
}

// IBDMode reports the pool's current IBD flag.
func (p *pool) IBDMode() bool { return p.ibdMode.Load() }
